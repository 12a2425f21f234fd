package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mo-420/Yacht-SEO/internal/batch"
	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/groq"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/ingest"
	"github.com/Mo-420/Yacht-SEO/internal/jobs"
)

// App aggregates the handler dependencies.
type App struct {
	Cfg     *infra.Config
	Log     infra.Logger
	Runner  *batch.Runner
	Manager *jobs.Manager
	Client  *groq.Client
}

func NewApp(cfg *infra.Config, log infra.Logger, runner *batch.Runner, manager *jobs.Manager, client *groq.Client) *App {
	return &App{Cfg: cfg, Log: log, Runner: runner, Manager: manager, Client: client}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) fail(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// failFrom maps domain errors onto transport status codes.
func (a *App) failFrom(w http.ResponseWriter, err error) {
	var verr *ingest.ValidationError
	switch {
	case errors.As(err, &verr):
		a.fail(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotReady):
		a.fail(w, http.StatusConflict, "job not ready")
	case errors.Is(err, domain.ErrUnauthorized):
		a.fail(w, http.StatusBadGateway, "completion service rejected the configured credentials")
	case errors.Is(err, domain.ErrInvalidInput):
		a.fail(w, http.StatusBadRequest, err.Error())
	default:
		a.fail(w, http.StatusInternalServerError, err.Error())
	}
}
