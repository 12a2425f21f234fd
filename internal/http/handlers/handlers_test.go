package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Mo-420/Yacht-SEO/internal/batch"
	"github.com/Mo-420/Yacht-SEO/internal/groq"
	"github.com/Mo-420/Yacht-SEO/internal/http/handlers"
	"github.com/Mo-420/Yacht-SEO/internal/http/httpapi"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/jobs"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func completionResponse(text string) *http.Response {
	body := fmt.Sprintf(
		`{"choices":[{"message":{"content":%q}}],"usage":{"prompt_tokens":5,"completion_tokens":10}}`, text)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestHandler(t *testing.T, rt roundTripFunc) http.Handler {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:            "test",
		GroqAPIKey:        "gsk_test",
		GroqTemperature:   0.7,
		GroqMaxTokens:     1100,
		BatchWorkers:      4,
		GlobalConcurrency: 8,
		SyncMaxRecords:    3,
		JobRetention:      time.Minute,
		JobTimeout:        time.Minute,
		SweepInterval:     10 * time.Millisecond,
	}
	logger := infra.NewLogger("test", "handlers-test")

	client, err := groq.NewClient(groq.Options{
		APIKey:      "gsk_test",
		HTTPClient:  &http.Client{Transport: rt},
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	runner := batch.NewRunner(client, cfg.BatchWorkers, semaphore.NewWeighted(8), logger)
	manager := jobs.NewManager(jobs.Options{
		Runner:        runner,
		Retention:     cfg.JobRetention,
		Timeout:       cfg.JobTimeout,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})
	t.Cleanup(manager.Close)

	return httpapi.NewRouter(handlers.NewApp(cfg, logger, runner, manager, client))
}

func echoNameTransport(t *testing.T) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad completion request: %v", err)
		}
		name := "?"
		for _, line := range strings.Split(payload.Messages[1].Content, "\n") {
			if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Name: "); ok {
				name = rest
			}
		}
		return completionResponse("about " + name), nil
	}
}

func multipartCSV(t *testing.T, csvBody string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "yachts.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		return completionResponse("unused"), nil
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"api_key_set":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGenerateSyncCSV(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, echoNameTransport(t))

	body, contentType := multipartCSV(t, "name,length\nAquaVista,24\nCélestine,19\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("Content-Type = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "name,length,description" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "about AquaVista") || !strings.Contains(lines[2], "about Célestine") {
		t.Fatalf("rows out of order or missing text: %q", lines[1:])
	}
}

func TestGenerateSyncLimitRedirectsToJobs(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, echoNameTransport(t))

	body, contentType := multipartCSV(t, "name\nA\nB\nC\nD\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/v1/jobs") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGenerateValidationError(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, echoNameTransport(t))

	body, contentType := multipartCSV(t, "builder\nLagoon\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGenerateSingle(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, echoNameTransport(t))

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/single",
		strings.NewReader(`{"name":"AquaVista","length":24.5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Record      map[string]string `json:"record"`
		Description string            `json:"description"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Description != "about AquaVista" {
		t.Fatalf("description = %q", resp.Description)
	}
	if resp.Record["length"] != "24.5" {
		t.Fatalf("record = %v", resp.Record)
	}
}

func TestGenerateUnauthorizedIsBadGateway(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"invalid api key"}}`)),
		}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/generate",
		strings.NewReader(`[{"name":"AquaVista"}]`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	h := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		time.Sleep(time.Millisecond)
		return completionResponse("generated"), nil
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs",
		strings.NewReader(`{"records":[{"name":"A"},{"name":"B"}],"merge_mode":"append"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decoding submit response: %v", err)
	}
	if submitted.ID == "" || submitted.Status != "queued" {
		t.Fatalf("submit response = %+v", submitted)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+submitted.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status query = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), `"status":"completed"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed: %s", rec.Body.String())
		}
		time.Sleep(2 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+submitted.ID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d, body = %s", rec.Code, rec.Body.String())
	}
	csvBody := strings.TrimSpace(rec.Body.String())
	if !strings.HasPrefix(csvBody, "name,description") {
		t.Fatalf("result body = %q", csvBody)
	}
	if calls.Load() != 2 {
		t.Fatalf("completion calls = %d, want 2", calls.Load())
	}
}

func TestJobResultNotReady(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	h := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		<-release
		return completionResponse("late"), nil
	})
	defer close(release)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs",
		strings.NewReader(`[{"name":"A"}]`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rec.Code)
	}
	var submitted struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &submitted)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+submitted.ID+"/result", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("result status = %d, want 409", rec.Code)
	}
}

func TestJobNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, echoNameTransport(t))
	for _, path := range []string{"/v1/jobs/unknown-id", "/v1/jobs/unknown-id/result"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", path, rec.Code)
		}
	}
}
