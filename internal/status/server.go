// Package status serves a small HTTP API over a running session: read-only
// risk and bracket views plus the operator commands (kill switch, flatten,
// halt acknowledgement, bracket cancel, reconciliation).
package status

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Session is the part of the trader the endpoint reads and commands.
type Session interface {
	Snapshot() trader.Snapshot
	EngageKillSwitch(reason string)
	ResetKillSwitch() error
	ClearHalt()
	FlattenAll(reason string)
	CancelBracket(id string) error
	Reconcile()
}

// Executor runs a command on the session's own thread and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

const commandTimeout = 5 * time.Second

// Server is the HTTP status endpoint.
type Server struct {
	session    Session
	executor   Executor
	logger     *logger.Logger
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
}

type commandRequest struct {
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

type commandResponse struct {
	Status string          `json:"status"`
	Risk   json.RawMessage `json:"risk,omitempty"`
}

func NewServer(session Session, executor Executor, log *logger.Logger) *Server {
	s := &Server{
		session:  session,
		executor: executor,
		logger:   log.Named("status"),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/risk", s.handleRisk).Methods(http.MethodGet)
	s.router.HandleFunc("/brackets", s.handleBrackets).Methods(http.MethodGet)
	s.router.HandleFunc("/brackets/{id}", s.handleBracket).Methods(http.MethodGet)
	s.router.HandleFunc("/brackets/{id}", s.handleCancelBracket).Methods(http.MethodDelete)
	s.router.HandleFunc("/kill-switch", s.handleEngageKillSwitch).Methods(http.MethodPost)
	s.router.HandleFunc("/kill-switch", s.handleResetKillSwitch).Methods(http.MethodDelete)
	s.router.HandleFunc("/flatten", s.handleFlatten).Methods(http.MethodPost)
	s.router.HandleFunc("/halt", s.handleClearHalt).Methods(http.MethodDelete)
	s.router.HandleFunc("/reconcile", s.handleReconcile).Methods(http.MethodPost)

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Status server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Addr is the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Run serves on address until ctx is cancelled.
func (s *Server) Run(ctx context.Context, address string) error {
	if err := s.Start(address); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	return s.Stop(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().Risk)
}

func (s *Server) handleBrackets(w http.ResponseWriter, _ *http.Request) {
	brackets := s.session.Snapshot().OpenBrackets
	if brackets == nil {
		brackets = []bracket.BracketOrder{}
	}

	writeJSON(w, http.StatusOK, brackets)
}

func (s *Server) handleBracket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	for _, b := range s.session.Snapshot().OpenBrackets {
		if b.ID == id {
			writeJSON(w, http.StatusOK, b)

			return
		}
	}

	s.writeError(w, errors.Newf(errors.ErrCodeBracketNotFound, "bracket %s is not open", id))
}

func (s *Server) handleCancelBracket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var cancelErr error

	if err := s.call(r.Context(), func() { cancelErr = s.session.CancelBracket(id) }); err != nil {
		s.writeError(w, err)

		return
	}

	if cancelErr != nil {
		s.writeError(w, cancelErr)

		return
	}

	s.logger.Info("Bracket cancelled by operator", zap.String("bracket_id", id))
	s.writeCommandResult(w, "cancelled")
}

func (s *Server) handleEngageKillSwitch(w http.ResponseWriter, r *http.Request) {
	reason := readReason(r, risk.ReasonManual)

	if err := s.call(r.Context(), func() { s.session.EngageKillSwitch(reason) }); err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Warn("Kill switch engaged by operator", zap.String("reason", reason))
	s.writeCommandResult(w, "engaged")
}

func (s *Server) handleResetKillSwitch(w http.ResponseWriter, r *http.Request) {
	var resetErr error

	if err := s.call(r.Context(), func() { resetErr = s.session.ResetKillSwitch() }); err != nil {
		s.writeError(w, err)

		return
	}

	if resetErr != nil {
		s.writeError(w, resetErr)

		return
	}

	s.logger.Info("Kill switch reset by operator")
	s.writeCommandResult(w, "reset")
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	reason := readReason(r, risk.ReasonManual)

	if err := s.call(r.Context(), func() { s.session.FlattenAll(reason) }); err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Warn("Flatten requested by operator", zap.String("reason", reason))
	s.writeCommandResult(w, "flattened")
}

func (s *Server) handleClearHalt(w http.ResponseWriter, r *http.Request) {
	if err := s.call(r.Context(), s.session.ClearHalt); err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Warn("Reconciliation halt cleared by operator")
	s.writeCommandResult(w, "cleared")
}

// handleReconcile only starts the broker query. A mismatch shows up as a halt
// in later risk reads.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if err := s.call(r.Context(), s.session.Reconcile); err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Info("Reconciliation requested by operator")
	s.writeCommandResult(w, "requested")
}

func (s *Server) call(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return s.executor.Call(ctx, fn)
}

func (s *Server) writeCommandResult(w http.ResponseWriter, status string) {
	riskJSON, err := json.Marshal(s.session.Snapshot().Risk)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Status: status, Risk: riskJSON})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Status request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}

func statusFor(err error) int {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeBracketNotFound, errors.ErrCodeLegNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidTransition, errors.ErrCodeLegNotCancellable, errors.ErrCodeReconciliationMismatch:
		return http.StatusConflict
	case errors.ErrCodeLoopStopped:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func readReason(r *http.Request, fallback string) string {
	var req commandRequest

	if r.Body == nil || r.ContentLength == 0 {
		return fallback
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		return fallback
	}

	return req.Reason
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
