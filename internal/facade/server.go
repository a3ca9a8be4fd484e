package facade

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"sysconfigd/pkg/logging"
)

// Server wires a Facade's business logic up as an MCP server reachable over
// a single Unix domain socket (spec §1: "a trusted local IPC substrate"),
// following the teacher's AggregatorServer bring-up/shutdown shape but
// trimmed to one transport.
type Server struct {
	facade     *Facade
	socketPath string

	mu         sync.Mutex
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
	listener   net.Listener
	ownsSock   bool
	wg         sync.WaitGroup
	errCh      chan error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer constructs a Server for facade, listening at socketPath unless
// systemd socket activation supplies a listener at Start time.
func NewServer(facade *Facade, socketPath string) *Server {
	return &Server{facade: facade, socketPath: socketPath, errCh: make(chan error, 1)}
}

// Start builds the MCP tool surface and begins serving it. It returns once
// the listener is bound; serving continues on a background goroutine until
// Stop is called or the listener errors.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mcpServer != nil {
		return fmt.Errorf("facade server already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	mcpSrv := mcpserver.NewMCPServer(
		"sysconfigd",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)
	s.mcpServer = mcpSrv
	mcpSrv.AddTools(s.serverTools()...)

	listener, owns, err := s.acquireListener()
	if err != nil {
		s.mcpServer = nil
		s.cancel()
		return err
	}
	s.listener = listener
	s.ownsSock = owns

	streamableHandler := mcpserver.NewStreamableHTTPServer(mcpSrv)
	s.httpServer = &http.Server{Handler: streamableHandler}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.Error("Facade", err, "facade server stopped serving")
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	logging.Info("Facade", "serving on %s", s.socketPath)
	return nil
}

// acquireListener prefers a systemd-activated socket (SPEC_FULL.md §5;
// grounded on the teacher's same activation.ListenersWithNames
// call in AggregatorServer.Start), falling back to binding socketPath
// directly, removing a stale socket file first.
func (s *Server) acquireListener() (net.Listener, bool, error) {
	listenersWithNames, err := activation.ListenersWithNames()
	if err != nil {
		logging.Warn("Facade", "systemd socket activation check failed: %v", err)
	} else {
		for name, listeners := range listenersWithNames {
			for _, l := range listeners {
				logging.Info("Facade", "using systemd-activated listener %s", name)
				return l, false, nil
			}
		}
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, false, fmt.Errorf("binding facade socket %s: %w", s.socketPath, err)
	}
	return listener, true, nil
}

// Stop closes the listener, waits for the serve goroutine to exit, and
// removes the socket file if this Server created it.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.mcpServer == nil {
		s.mu.Unlock()
		return nil
	}
	httpServer := s.httpServer
	ownsSock := s.ownsSock
	socketPath := s.socketPath
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Facade", "error shutting down facade server: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}

	if ownsSock {
		_ = os.Remove(socketPath)
	}

	s.mu.Lock()
	s.mcpServer = nil
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()
	return nil
}
