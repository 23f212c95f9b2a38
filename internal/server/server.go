// Package server exposes the match operations over a thin JSON dispatcher:
// one POST per named operation, returning a state snapshot or a tagged error,
// plus a read-only websocket feed of state snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sonarfleet/sonar-server-go/internal/config"
	"github.com/sonarfleet/sonar-server-go/internal/game"
	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// Server dispatches named operations to the match manager.
type Server struct {
	logger  *zap.Logger
	cfg     config.ServerConfig
	matches *game.Manager
	hub     *Hub

	httpServer *http.Server
}

// New creates the HTTP/websocket server.
func New(cfg config.ServerConfig, matches *game.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:  logger,
		cfg:     cfg,
		matches: matches,
		hub:     newHub(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/op/{name}", s.handleOperation)
	mux.HandleFunc("GET /api/match/{id}", s.handleGetState)
	mux.HandleFunc("GET /api/match/{id}/board", s.handleGetBoard)
	mux.HandleFunc("GET /ws/{id}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.withRecovery(s.withLogging(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.cfg.Address))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener gracefully and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// operationRequest carries the arguments of every named operation; each
// operation reads the fields it needs.
type operationRequest struct {
	MatchID   string   `json:"match_id"`
	Teams     []string `json:"teams,omitempty"`
	Team      string   `json:"team,omitempty"`
	Direction string   `json:"direction,omitempty"`
	System    string   `json:"system,omitempty"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
}

type stateResponse struct {
	State *game.MatchState `json:"state"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// handleOperation dispatches one named operation. On success the new snapshot
// is returned and pushed to the match's websocket subscribers.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, rules.InputErrorf("malformed request body: %v", err))
		return
	}

	ctx := r.Context()
	var (
		state *game.MatchState
		err   error
	)

	switch name {
	case "start-match":
		state, err = s.matches.StartMatch(ctx, req.MatchID, req.Teams)
	case "move":
		state, err = s.matches.Move(ctx, req.MatchID, req.Team, req.Direction)
	case "charge-system":
		state, err = s.matches.ChargeSystem(ctx, req.MatchID, req.Team, req.System)
	case "surface":
		state, err = s.matches.Surface(ctx, req.MatchID, req.Team)
	case "drop-mine":
		state, err = s.matches.DropMine(ctx, req.MatchID, req.Team, req.X, req.Y)
	case "trigger-mine":
		state, err = s.matches.TriggerMine(ctx, req.MatchID, req.Team, req.X, req.Y)
	case "launch-torpedo":
		state, err = s.matches.LaunchTorpedo(ctx, req.MatchID, req.Team, req.X, req.Y)
	default:
		s.writeError(w, rules.InputErrorf("unknown operation %q", name))
		return
	}

	if err != nil {
		s.writeError(w, err)
		return
	}

	s.hub.broadcastState(state)
	s.writeJSON(w, http.StatusOK, stateResponse{State: state})
}

// handleGetState returns the current snapshot. No turn check: state queries
// are open to either team and to observers.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.matches.GetState(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse{State: state})
}

// handleGetBoard returns the textual board grid.
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	rendering, err := s.matches.BoardRendering(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rendering))
}

// handleWebSocket subscribes the caller to state snapshots for one match.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if _, err := s.matches.GetState(r.Context(), matchID); err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.serveWS(w, r, matchID)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := rules.CodeOf(err)
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("operation failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: errorBody{
		Code:   string(code),
		Reason: err.Error(),
	}})
}

// httpStatus maps the error taxonomy onto HTTP statuses. Every tagged error
// is a caller problem, never fatal to the process.
func httpStatus(err error) int {
	switch rules.CodeOf(err) {
	case rules.CodeInput, rules.CodeFormat:
		return http.StatusBadRequest
	case rules.CodeTurn, rules.CodeRule:
		return http.StatusConflict
	case rules.CodeInvalidMove:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, game.ErrMatchNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
