package http

import (
	"encoding/json"
	"net/http"
	"time"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/calc"
	"cbt-exam-runner/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter mounts the websocket endpoint and the read-only JSON API.
func NewRouter(service *app.ExamService, log zerolog.Logger) http.Handler {
	ws := NewWSHandler(service, log)
	api := &apiHandler{service: service, log: log.With().Str("component", "api").Logger()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Route("/api", func(r chi.Router) {
		r.Get("/subjects", api.subjects)
		r.Get("/state", api.state)
		r.Get("/history", api.history)
		r.Post("/calc", api.calc)
	})
	return r
}

type apiHandler struct {
	service *app.ExamService
	log     zerolog.Logger
}

func (h *apiHandler) subjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, selectionPayload{
		Catalog:  h.service.Catalog(),
		Selected: h.service.Selection(),
		Required: h.service.RequiredCount(),
		CanStart: h.service.CanStart(),
		State:    h.service.State(),
	})
}

func (h *apiHandler) state(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session()
	if err != nil {
		respondJSON(w, http.StatusOK, domain.Snapshot{State: h.service.State()})
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *apiHandler) history(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("history lookup failed")
		respondJSON(w, http.StatusInternalServerError, errorPayload{Message: "history unavailable", Code: "internal"})
		return
	}
	respondJSON(w, http.StatusOK, lb)
}

func (h *apiHandler) calc(w http.ResponseWriter, r *http.Request) {
	var req calcPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid json", Code: "invalid"})
		return
	}
	v, err := calc.Eval(req.Expression)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorPayload{Message: err.Error(), Code: "calc"})
		return
	}
	respondJSON(w, http.StatusOK, calcResult{Expression: req.Expression, Value: v, Display: calc.Format(v)})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}
