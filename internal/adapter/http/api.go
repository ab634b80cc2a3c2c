package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/couchcryptid/parking-ticket-explorer/internal/pipeline"
	"github.com/couchcryptid/parking-ticket-explorer/internal/session"
	"github.com/couchcryptid/parking-ticket-explorer/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const maxBodyBytes = 1 << 20

type sessionResponse struct {
	session.Session
	Summary string `json:"summary"`
}

type dashboardResponse struct {
	SessionID string `json:"session_id"`
	view.Dashboard
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.NewSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	ev, err := domain.DecodeEvent(body)
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	id := r.PathValue("id")
	d, err := s.svc.Apply(r.Context(), id, ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDashboard(w, id, d)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	var sig domain.Signals
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sig); err != nil {
		s.writeError(w, badRequest(fmt.Errorf("decode signals: %w", err)))
		return
	}
	id := r.PathValue("id")
	d, err := s.svc.ApplySignals(r.Context(), id, sig)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDashboard(w, id, d)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := s.svc.Dashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDashboard(w, id, d)
}

func (s *Server) handleAgencies(w http.ResponseWriter, _ *http.Request) {
	t, err := s.svc.Table()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"agencies": t.Agencies()})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	if s.geojson == nil {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "zip polygons not configured"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.geojson) //nolint:errcheck // client disconnects are not actionable
}

func (s *Server) writeSession(w http.ResponseWriter, status int, sess session.Session) {
	t, err := s.svc.Table()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, status, sessionResponse{Session: sess, Summary: domain.Summary(t, sess.State)})
}

func (s *Server) writeDashboard(w http.ResponseWriter, id string, d domain.Dashboard) {
	t, err := s.svc.Table()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, dashboardResponse{SessionID: id, Dashboard: s.views.Build(t, d)})
}

// requestError marks a malformed request body.
type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err: err} }

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "status", status)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &reqErr),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
