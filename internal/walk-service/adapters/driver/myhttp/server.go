package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/adapters/driver/myhttp/handlers"
	"pawwalk/internal/walk-service/core/ports/driver"
)

const WaitTime = 10

// Server exposes the walk session to UI layers: JSON read models, manual
// start/end/cancel controls and a websocket feed of block snapshots.
type Server struct {
	port        int
	token       string
	srv         *http.Server
	listener    net.Listener
	mylog       mylogger.Logger
	walkService driver.IWalkService
	dispatcher  *handlers.Dispatcher
	stopFeed    func()
	mu          sync.Mutex
}

func NewServer(walkService driver.IWalkService, port int, token string, mylog mylogger.Logger) *Server {
	return &Server{
		port:        port,
		token:       token,
		walkService: walkService,
		mylog:       mylog,
	}
}

// Run configures routes and serves until ctx is done or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	mylog := s.mylog.Action("overlay_started")

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("overlay listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Configure(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("addr", ln.Addr().String()).Info("overlay server is running")
	return s.startHTTPServer(ctx)
}

// Addr is the bound listener address, empty before Run.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down overlay server...")

	if s.stopFeed != nil {
		s.stopFeed()
		s.stopFeed = nil
	}

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down overlay server gracefully", err)
			return fmt.Errorf("overlay shutdown: %w", err)
		}
	}

	s.mylog.Info("Overlay server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure builds the handlers and subscribes the websocket feed to the
// block store.
func (s *Server) Configure() http.Handler {
	walkHandler := handlers.NewWalkHandler(s.walkService, s.mylog)
	s.dispatcher = handlers.NewDispatcher(s.walkService, s.mylog)
	s.stopFeed = s.dispatcher.Start()

	return Router(handlers.New(walkHandler, s.dispatcher), s.token, s.mylog)
}
