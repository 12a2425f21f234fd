package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/ingest"
)

// SubmitJob accepts a batch for asynchronous processing and returns the
// job handle without waiting on generation.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	in, err := a.readBatch(r)
	if err != nil {
		a.failFrom(w, err)
		return
	}

	id, err := a.Manager.Submit(in.records, in.cfg)
	if err != nil {
		a.failFrom(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"id":      id,
		"status":  domain.JobStatusQueued,
		"records": len(in.records),
	})
}

// JobStatus reports the lifecycle snapshot for one job.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Manager.Status(chi.URLParam(r, "id"))
	if err != nil {
		a.failFrom(w, err)
		return
	}

	resp := map[string]any{
		"id":           job.ID,
		"status":       job.Status,
		"submitted_at": job.SubmittedAt.Format(time.RFC3339),
		"records":      len(job.Records),
	}
	if job.Status == domain.JobStatusFailed {
		resp["error"] = job.ErrorMessage
	}
	if job.Status.Terminal() && !job.FinishedAt.IsZero() {
		resp["finished_at"] = job.FinishedAt.Format(time.RFC3339)
	}
	a.json(w, http.StatusOK, resp)
}

// JobResult streams the enriched table of a completed job. Anything short
// of completed is a conflict; unknown and evicted ids are both 404.
func (a *App) JobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, outcomes, err := a.Manager.Result(id)
	if err != nil {
		a.failFrom(w, err)
		return
	}

	format := ingest.FormatCSV
	if f, err := ingest.ParseFormat(r.URL.Query().Get("format")); err == nil {
		format = f
	}
	a.writeTable(w, &batchInput{format: format, name: id + ".csv"}, records, outcomes)
}
