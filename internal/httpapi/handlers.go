package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turbofuel/fueltwin/internal/dispatcher"
	"github.com/turbofuel/fueltwin/internal/history"
	"github.com/turbofuel/fueltwin/internal/parser"
	"github.com/turbofuel/fueltwin/internal/worker"
)

type throttleRequest struct {
	Percent *float64 `json:"percent"`
}

type faultRequest struct {
	Kind      string  `json:"kind"`
	Magnitude float64 `json:"magnitude"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Runner.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Runner.Snapshot().History)
}

func (s *Server) handleHistorySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := history.Summarize(s.deps.Runner.Snapshot().History)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Runner.Snapshot().Logs)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, worker.CommandTick)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, worker.CommandToggle)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, worker.CommandReset)
}

func (s *Server) handleThrottle(w http.ResponseWriter, r *http.Request) {
	var req throttleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Percent == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("percent is required"))
		return
	}
	s.dispatch(w, worker.CommandThrottle, strconv.FormatFloat(*req.Percent, 'g', -1, 64))
}

func (s *Server) handleFault(w http.ResponseWriter, r *http.Request) {
	var req faultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, worker.CommandFault,
		chi.URLParam(r, "channel"),
		req.Kind,
		strconv.FormatFloat(req.Magnitude, 'g', -1, 64))
}

func (s *Server) dispatch(w http.ResponseWriter, command string, args ...string) {
	res, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// statusFor maps malformed input to 400 and anything else to 500.
func statusFor(err error) int {
	for _, target := range []error{
		parser.ErrArgCount,
		parser.ErrUnknownChannel,
		parser.ErrUnknownFaultKind,
		parser.ErrNotFinite,
		strconv.ErrSyntax,
		strconv.ErrRange,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.deps.Logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
