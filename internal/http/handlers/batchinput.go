package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/ingest"
)

const maxUploadBytes = 32 << 20

// batchInput is the normalized submission: records plus the resolved
// prompt configuration and the format the response should come back in.
type batchInput struct {
	records []domain.Record
	cfg     domain.PromptConfig
	format  ingest.Format
	name    string
}

// configPayload carries the optional PromptConfig override, from JSON keys
// or multipart form fields.
type configPayload struct {
	SystemPrompt string  `json:"system_prompt"`
	Instructions string  `json:"instructions"`
	MergeMode    string  `json:"merge_mode"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

func (a *App) resolveConfig(p configPayload) (domain.PromptConfig, error) {
	mode, err := domain.ParseMergeMode(p.MergeMode)
	if err != nil {
		return domain.PromptConfig{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	cfg := domain.PromptConfig{
		SystemPrompt:     p.SystemPrompt,
		UserInstructions: p.Instructions,
		MergeMode:        mode,
		Temperature:      p.Temperature,
		MaxOutputTokens:  p.MaxTokens,
	}
	return cfg.Normalize(a.Cfg.GroqTemperature, a.Cfg.GroqMaxTokens), nil
}

// readBatch accepts either a multipart upload (field "file", format from
// the filename or an explicit "format" field) or a raw JSON array body.
func (a *App) readBatch(r *http.Request) (*batchInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		return a.readMultipartBatch(r)
	}
	return a.readJSONBatch(r)
}

func (a *App) readMultipartBatch(r *http.Request) (*batchInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %s", domain.ErrInvalidInput, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", domain.ErrInvalidInput)
	}
	defer func() {
		_ = file.Close()
	}()

	formatTag := r.FormValue("format")
	if formatTag == "" {
		formatTag = filepath.Ext(header.Filename)
	}
	format, err := ingest.ParseFormat(formatTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %s", domain.ErrInvalidInput, err)
	}
	records, err := ingest.Parse(data, format)
	if err != nil {
		return nil, err
	}

	temperature, _ := strconv.ParseFloat(r.FormValue("temperature"), 64)
	maxTokens, _ := strconv.Atoi(r.FormValue("max_tokens"))
	cfg, err := a.resolveConfig(configPayload{
		SystemPrompt: r.FormValue("system_prompt"),
		Instructions: r.FormValue("instructions"),
		MergeMode:    r.FormValue("merge_mode"),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &batchInput{records: records, cfg: cfg, format: format, name: header.Filename}, nil
}

// jsonBatchEnvelope is the JSON submission shape. The envelope form
// carries overrides beside the records; a bare array is also accepted.
type jsonBatchEnvelope struct {
	Records json.RawMessage `json:"records"`
	configPayload
}

func (a *App) readJSONBatch(r *http.Request) (*batchInput, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %s", domain.ErrInvalidInput, err)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidInput)
	}

	payload := body
	var envelope jsonBatchEnvelope
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: invalid json: %s", domain.ErrInvalidInput, err)
		}
		if envelope.Records != nil {
			payload = envelope.Records
		}
	}

	records, err := ingest.Parse(payload, ingest.FormatJSON)
	if err != nil {
		return nil, err
	}
	cfg, err := a.resolveConfig(envelope.configPayload)
	if err != nil {
		return nil, err
	}
	return &batchInput{records: records, cfg: cfg, format: ingest.FormatJSON}, nil
}
