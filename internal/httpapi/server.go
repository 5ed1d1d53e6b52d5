package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swarmd/internal/scheduler"
	"swarmd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Profiles() []*types.Profile
	Status() types.StatusResponse
	ActiveQueueStates() []types.QueueStatus
	StartAll(ctx context.Context) error
	StopAll()
	PauseAll()
	ResumeAll()
	Pause(profileID string) error
	Resume(profileID string) error
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ProfilesResponse{Profiles: svc.Profiles()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/queues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"queues": svc.ActiveQueueStates()})
	})

	r.Post("/queues/start", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := commandContext(r)
		defer cancel()
		if err := svc.StartAll(ctx); err != nil {
			if scheduler.IsAlreadyStarted(err) {
				writeJSONError(w, http.StatusConflict, err.Error())
				logCommand(r, "start", http.StatusConflict, err)
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			logCommand(r, "start", http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "start", http.StatusOK, nil)
	})

	r.Post("/queues/stop", func(w http.ResponseWriter, r *http.Request) {
		svc.StopAll()
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "stop", http.StatusOK, nil)
	})

	r.Post("/queues/pause", func(w http.ResponseWriter, r *http.Request) {
		svc.PauseAll()
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "pause_all", http.StatusOK, nil)
	})

	r.Post("/queues/resume", func(w http.ResponseWriter, r *http.Request) {
		svc.ResumeAll()
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "resume_all", http.StatusOK, nil)
	})

	r.Post("/queues/{profileID}/pause", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "profileID")
		if err := svc.Pause(id); err != nil {
			status := commandErrorStatus(err)
			writeJSONError(w, status, err.Error())
			logCommand(r, "pause", status, err)
			return
		}
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "pause", http.StatusOK, nil)
	})

	r.Post("/queues/{profileID}/resume", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "profileID")
		if err := svc.Resume(id); err != nil {
			status := commandErrorStatus(err)
			writeJSONError(w, status, err.Error())
			logCommand(r, "resume", status, err)
			return
		}
		writeJSON(w, types.CommandResponse{Status: "ok"})
		logCommand(r, "resume", http.StatusOK, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stopped"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// commandErrorStatus maps well-known scheduler errors to HTTP status codes.
func commandErrorStatus(err error) int {
	switch {
	case scheduler.IsProfileNotFound(err):
		return http.StatusNotFound
	case scheduler.IsAlreadyStarted(err):
		return http.StatusConflict
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
