package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/discovery"
	"github.com/muurk/hcishell/internal/transport"
)

// Default ports per protocol.
const (
	DefaultTCPPort       = 4000
	DefaultWebSocketPort = 8765
)

const shutdownTimeout = 10 * time.Second

// ErrBusy is reported to a client that connects while another is served.
var ErrBusy = errors.New("bridge busy: another client is connected")

// Config holds the bridge configuration
type Config struct {
	// Proto is discovery.ProtoTCP or discovery.ProtoWebSocket.
	Proto string
	Host  string
	// Port 0 selects a free port; see Addr.
	Port int
	// Path is the WebSocket endpoint, discovery.DefaultPath when empty.
	Path string

	// Advertise registers the bridge with mDNS.
	Advertise bool
	// Instance is the mDNS instance name; the hostname when empty.
	Instance string
	// Metadata is published in the TXT record (e.g. device, backend).
	Metadata map[string]string

	Logger *zap.Logger
}

// Server bridges network clients to a controller transport.
type Server struct {
	config Config
	ctrl   transport.Transport
	logger *zap.Logger

	listener net.Listener
	httpSrv  *http.Server
	ad       *discovery.Advertisement

	mu     sync.Mutex
	client string
	cancel context.CancelFunc
	wg     sync.WaitGroup

	failOnce sync.Once
	failErr  error
	failed   chan struct{}
}

// New validates config and returns a server for ctrl. The server does not
// own ctrl; the caller closes it after Serve returns.
func New(config Config, ctrl transport.Transport) (*Server, error) {
	switch config.Proto {
	case discovery.ProtoTCP, discovery.ProtoWebSocket:
	case "":
		config.Proto = discovery.ProtoTCP
	default:
		return nil, fmt.Errorf("unknown bridge protocol %q (want %s or %s)", config.Proto, discovery.ProtoTCP, discovery.ProtoWebSocket)
	}
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config: config,
		ctrl:   ctrl,
		logger: logger,
		failed: make(chan struct{}),
	}, nil
}

// Listen binds the listening socket. Serve calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the address clients connect to: host:port for tcp bridges,
// a ws:// URL for WebSocket bridges.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	addr := s.listener.Addr().String()
	if s.config.Proto == discovery.ProtoWebSocket {
		return "ws://" + addr + s.config.Path
	}
	return addr
}

// Serve accepts clients until ctx ends or the controller fails, then shuts
// down. It returns the controller failure, if any.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("Bridge listening",
		zap.String("proto", s.config.Proto),
		zap.String("addr", s.URL()),
	)

	if s.config.Advertise {
		if err := s.advertise(); err != nil {
			s.logger.Warn("mDNS advertisement failed, continuing without it", zap.Error(err))
		}
	}

	if s.config.Proto == discovery.ProtoWebSocket {
		s.httpSrv = &http.Server{Handler: s.webSocketHandler(), ReadHeaderTimeout: 10 * time.Second}
	}
	errChan := make(chan error, 1)
	go func() {
		if s.httpSrv != nil {
			errChan <- s.serveWebSocket()
		} else {
			errChan <- s.acceptConnections()
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown requested, stopping bridge...")
	case <-s.failed:
		serveErr = s.failErr
	case serveErr = <-errChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (s *Server) advertise() error {
	instance := s.config.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return err
		}
		instance = host
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	path := ""
	if s.config.Proto == discovery.ProtoWebSocket {
		path = s.config.Path
	}
	ad, err := discovery.Advertise(instance, port, discovery.TXT(s.config.Proto, path, s.config.Metadata))
	if err != nil {
		return err
	}
	s.ad = ad
	s.logger.Info("Advertising bridge", zap.String("instance", instance), zap.Int("port", port))
	return nil
}

// acceptConnections accepts raw H4 clients
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Failed to accept connection", zap.Error(err))
			continue
		}
		remote := conn.RemoteAddr().String()

		ctx, ok := s.claim(remote)
		if !ok {
			s.logger.Warn("Rejecting client, bridge busy", zap.String("remote_addr", remote), zap.String("active", s.ActiveClient()))
			_ = conn.Close()
			continue
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveClient(ctx, remote, transport.NewStream(conn))
		}()
	}
}

func (s *Server) serveWebSocket() error {
	err := s.httpSrv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) webSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, func(w http.ResponseWriter, r *http.Request) {
		remote := r.RemoteAddr
		ctx, ok := s.claim(remote)
		if !ok {
			s.logger.Warn("Rejecting client, bridge busy", zap.String("remote_addr", remote))
			http.Error(w, ErrBusy.Error(), http.StatusConflict)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.release(remote)
			s.logger.Error("WebSocket upgrade failed", zap.String("remote_addr", remote), zap.Error(err))
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveClient(ctx, remote, backend.NewWebSocketTransport(conn))
		}()
	})
	return mux
}

// claim marks remote as the active client.
func (s *Server) claim(remote string) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != "" {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.client, s.cancel = remote, cancel
	return ctx, true
}

func (s *Server) release(remote string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == remote {
		s.cancel()
		s.client, s.cancel = "", nil
	}
}

// serveClient pumps packets both ways until either side fails.
func (s *Server) serveClient(ctx context.Context, remote string, client transport.Transport) {
	s.logger.Info("Client connected", zap.String("remote_addr", remote))
	defer func() {
		_ = client.Close()
		s.release(remote)
		s.logger.Info("Client disconnected", zap.String("remote_addr", remote))
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Client ending the session is the normal way out.
		err := pump(gctx, client, s.ctrl)
		if errors.Is(err, errSend) {
			return fmt.Errorf("controller: %w", err)
		}
		return errClientGone
	})
	g.Go(func() error {
		err := pump(gctx, s.ctrl, client)
		if errors.Is(err, errSend) {
			return errClientGone
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}
		return fmt.Errorf("controller: %w", err)
	})

	err := g.Wait()
	switch {
	case err == nil, errors.Is(err, errClientGone), errors.Is(err, context.Canceled):
	default:
		s.logger.Error("Controller failed, stopping bridge", zap.String("remote_addr", remote), zap.Error(err))
		s.fail(err)
	}
}

var (
	errSend       = errors.New("send failed")
	errClientGone = errors.New("client gone")
)

// pump copies packets from src to dst. A failed Send is wrapped in errSend
// so callers can tell which side broke.
func pump(ctx context.Context, src, dst transport.Transport) error {
	for {
		pkt, err := src.Recv(ctx)
		if err != nil {
			return err
		}
		if err := dst.Send(ctx, pkt); err != nil {
			return fmt.Errorf("%w: %w", errSend, err)
		}
	}
}

func (s *Server) fail(err error) {
	s.failOnce.Do(func() {
		s.failErr = err
		close(s.failed)
	})
}

// Shutdown gracefully shuts down the bridge
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down bridge...")

	s.ad.Shutdown()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("Error stopping HTTP server", zap.Error(err))
		}
	} else if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.logger.Info("Closing active client", zap.String("remote_addr", s.client))
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Bridge stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// ActiveClient returns the remote address of the connected client, or "".
func (s *Server) ActiveClient() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}
