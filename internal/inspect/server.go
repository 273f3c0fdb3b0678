package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

var (
	ErrNoDocument     = errors.New("no workflow loaded")
	ErrAlreadyStarted = errors.New("inspect server already started")
)

type (
	// SessionSource exposes the current execution session.
	SessionSource interface {
		Session() execution.Session
	}

	// DocumentSource exposes the open workflow. Document returns nil when
	// nothing is loaded.
	DocumentSource interface {
		Document() *workflow.Workflow
		Dirty() bool
	}

	// Server is the inspection HTTP server.
	Server struct {
		sessions SessionSource
		docs     DocumentSource
		logger   *slog.Logger

		mu         sync.Mutex
		httpServer *http.Server
		addr       net.Addr
	}

	// ErrorResponse is the body of every non-2xx response.
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// SessionView is the JSON form of an execution session.
	SessionView struct {
		ExecutionID   string          `json:"executionId,omitempty"`
		Phase         execution.Phase `json:"phase"`
		IsRunning     bool            `json:"isRunning"`
		Logs          []execution.Log `json:"logs"`
		FinalResponse any             `json:"finalResponse,omitempty"`
		Error         string          `json:"error,omitempty"`
	}

	// GraphView is the JSON form of the open workflow.
	GraphView struct {
		Workflow *workflow.Workflow `json:"workflow"`
		Dirty    bool               `json:"dirty"`
	}
)

// NewServer creates a server over the given sources. Either may be nil, in
// which case its routes answer 404.
func NewServer(ctx context.Context, sessions SessionSource, docs DocumentSource) *Server {
	return &Server{
		sessions: sessions,
		docs:     docs,
		logger:   ctxlog.FromContext(ctx).With("component", "inspect"),
	}
}

// NewSessionView converts a session for JSON output.
func NewSessionView(s execution.Session) SessionView {
	v := SessionView{
		ExecutionID:   s.ExecutionID,
		Phase:         s.Phase,
		IsRunning:     s.IsRunning,
		Logs:          s.Logs,
		FinalResponse: s.FinalResponse,
	}
	if v.Logs == nil {
		v.Logs = []execution.Log{}
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

// SetupRoutes returns the router with every endpoint registered.
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	router.GET("/health", s.handleHealth)
	router.GET("/session", s.handleSession)
	router.GET("/graph", s.handleGraph)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK\n")
}

func (s *Server) handleSession(c *gin.Context) {
	if s.sessions == nil {
		notFound(c, "no execution orchestrator")
		return
	}
	c.JSON(http.StatusOK, NewSessionView(s.sessions.Session()))
}

func (s *Server) handleGraph(c *gin.Context) {
	if s.docs == nil {
		notFound(c, ErrNoDocument.Error())
		return
	}
	doc := s.docs.Document()
	if doc == nil {
		notFound(c, ErrNoDocument.Error())
		return
	}
	c.JSON(http.StatusOK, GraphView{Workflow: doc, Dirty: s.docs.Dirty()})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:  msg,
		Status: http.StatusNotFound,
	})
}

// Start listens on addr and serves in the background. Use ":0" to pick a
// free port; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspect server listen on %s: %w", addr, err)
	}
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := s.httpServer
	go func() {
		s.logger.Info("Inspect server starting", "address", fmt.Sprintf("http://%s", ln.Addr()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Inspect server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the server gracefully. It is a no-op if never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		s.logger.Debug("Inspect server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Inspect server shutdown failed", "error", err)
		return err
	}
	s.logger.Debug("Inspect server shut down gracefully.")
	return nil
}
