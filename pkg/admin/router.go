package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/logger"
	"github.com/josenovais97/distributed-systems/pkg/session"
)

// ErrNotReady is reported by the readiness probe once admission is closed.
var ErrNotReady = errors.New("admission controller is closed")

// AdmissionStats reports the state of the admission controller.
type AdmissionStats interface {
	Stats() admission.Stats
}

// Sources are the components the admin endpoints report on. Nil fields are
// left out of /stats; a nil Sessions makes /sessions return an empty list.
type Sources struct {
	Admission AdmissionStats
	Store     interface{ Len() int }
	Users     interface{ Count() int }
	Sessions  *session.Registry
}

// Stats is the body of GET /stats.
type Stats struct {
	Admission *admission.Stats `json:"admission,omitempty"`
	Keys      *int             `json:"keys,omitempty"`
	Users     *int             `json:"users,omitempty"`
	Sessions  *SessionCounts   `json:"sessions,omitempty"`
}

type SessionCounts struct {
	Total   int `json:"total"`
	Waiting int `json:"waiting"`
	Active  int `json:"active"`
}

// Router returns the admin routes:
//
//	GET /healthz   liveness, always "ALIVE"
//	GET /readyz    "READY", or 503 once admission is closed
//	GET /stats     JSON counters
//	GET /sessions  JSON list of sessions, oldest first
func Router(src Sources, log *slog.Logger) chi.Router {
	if log == nil {
		log = logger.Noop()
	}

	r := chi.NewRouter()
	r.Use(RequestID, accessLog(log))

	r.Get("/healthz", HealthCheckHandler(log))
	r.Get("/readyz", HealthCheckHandler(log, func(context.Context) error {
		if src.Admission != nil && src.Admission.Stats().Closed {
			return ErrNotReady
		}
		return nil
	}))

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		var out Stats
		if src.Admission != nil {
			st := src.Admission.Stats()
			out.Admission = &st
		}
		if src.Store != nil {
			n := src.Store.Len()
			out.Keys = &n
		}
		if src.Users != nil {
			n := src.Users.Count()
			out.Users = &n
		}
		if src.Sessions != nil {
			total, waiting, active := src.Sessions.Stats()
			out.Sessions = &SessionCounts{Total: total, Waiting: waiting, Active: active}
		}
		writeJSON(w, r, log, out)
	})

	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		list := []session.Info{}
		if src.Sessions != nil {
			list = src.Sessions.List()
		}
		writeJSON(w, r, log, list)
	})

	return r
}

func writeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorContext(r.Context(), "failed to encode admin response", logger.Error(err))
	}
}
