package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/ingest"
)

// Generate is the synchronous path: the caller waits inline for a small
// batch and receives the enriched table in the submission's own format.
// Oversized batches are redirected to the job path instead of tying up a
// request for minutes.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	in, err := a.readBatch(r)
	if err != nil {
		a.failFrom(w, err)
		return
	}
	if len(in.records) > a.Cfg.SyncMaxRecords {
		a.fail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d records exceeds the synchronous limit of %d; submit to /v1/jobs instead",
				len(in.records), a.Cfg.SyncMaxRecords))
		return
	}

	outcomes, err := a.Runner.Run(r.Context(), in.records, in.cfg)
	if err != nil {
		a.failFrom(w, err)
		return
	}
	a.writeTable(w, in, in.records, outcomes)
}

// GenerateSingle handles one JSON record and responds with the generated
// text inline.
func (a *App) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	in, err := a.readBatch(r)
	if err != nil {
		a.failFrom(w, err)
		return
	}
	if len(in.records) != 1 {
		a.fail(w, http.StatusBadRequest, "expected exactly one record")
		return
	}

	outcomes, err := a.Runner.Run(r.Context(), in.records, in.cfg)
	if err != nil {
		a.failFrom(w, err)
		return
	}
	out := outcomes[0]
	if !out.OK() {
		code := http.StatusBadGateway
		if out.Kind == domain.FailureInvalidRequest {
			code = http.StatusBadRequest
		}
		a.fail(w, code, out.Message)
		return
	}

	record := make(map[string]string, len(in.records[0].Fields))
	for _, f := range in.records[0].Fields {
		record[f.Name] = f.Value
	}
	a.json(w, http.StatusOK, map[string]any{
		"record":      record,
		"description": out.Text,
		"usage":       out.Usage,
	})
}

// writeTable serializes records+outcomes back into the input's shape.
func (a *App) writeTable(w http.ResponseWriter, in *batchInput, records []domain.Record, outcomes []domain.Outcome) {
	switch in.format {
	case ingest.FormatCSV:
		var buf bytes.Buffer
		if err := ingest.MergeCSV(&buf, records, outcomes); err != nil {
			a.failFrom(w, err)
			return
		}
		name := in.name
		if name == "" {
			name = "yachts.csv"
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "yacht_descriptions_"+sanitizeFilename(name)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		out, err := ingest.MergeJSON(records, outcomes)
		if err != nil {
			a.failFrom(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		_, _ = w.Write([]byte("\n"))
	}
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}
