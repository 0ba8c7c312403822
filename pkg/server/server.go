package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/logger"
	"github.com/josenovais97/distributed-systems/pkg/session"
)

// Store is the key-value backend served to admitted sessions.
type Store interface {
	Put(key string, value []byte)
	Get(key string) ([]byte, bool)
	MultiPut(pairs map[string][]byte)
	MultiGet(keys []string) map[string][]byte
}

// Admitter gates authenticated sessions before they may issue commands.
type Admitter interface {
	Admit(ctx context.Context, id uuid.UUID, notify admission.WaitFunc) error
	Release(id uuid.UUID)
	Close() error
}

// Authenticator checks and registers user credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
}

type config struct {
	addr            string
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	maxValueSize    int
	maxBatchSize    int
	sessions        *session.Registry
	throttle        *auth.Throttle
	logger          *slog.Logger
	startHooks      []func(*slog.Logger)
	stopHooks       []func(*slog.Logger)
}

func defaultConfig() *config {
	return &config{
		addr:            ":12345",
		shutdownTimeout: 5 * time.Second,
		maxValueSize:    16 << 20,
		maxBatchSize:    10000,
	}
}

// Server accepts TCP connections and runs one session per connection:
// authentication, admission, then the command loop.
type Server struct {
	cfg   *config
	store Store
	gate  Admitter
	creds Authenticator
	log   *slog.Logger

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup

	once sync.Once
	done chan struct{}
}

// New returns a configured Server.
func New(store Store, gate Admitter, creds Authenticator, opts ...Option) *Server {
	if store == nil || gate == nil || creds == nil {
		panic("server.New: store, gate and credentials are required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Noop()
	}
	if cfg.sessions == nil {
		cfg.sessions = session.NewRegistry()
	}
	return &Server{
		cfg:   cfg,
		store: store,
		gate:  gate,
		creds: creds,
		log:   cfg.logger.With(logger.Component("kvserver")),
		conns: make(map[net.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

// Run listens on the configured address and serves connections until ctx is
// cancelled or Shutdown is called. It returns once shutdown has finished.
// It returns ErrStart wrapped with the underlying error if the server fails to start.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ln != nil || s.closing {
		s.mu.Unlock()
		return errors.Join(ErrStart, errors.New("server already running or shut down"))
	}
	ln, err := net.Listen("tcp", s.cfg.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, err)
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.InfoContext(ctx, "kv server listening", logger.Addr(ln.Addr().String()))
	for _, h := range s.cfg.startHooks {
		h(s.cfg.logger)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.Shutdown(context.Background())
	})
	defer stop()

	// Connections outlive ctx until Shutdown decides otherwise.
	connCtx := context.WithoutCancel(ctx)

	var runErr error
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			runErr = errors.Join(ErrStart, err)
			s.log.ErrorContext(ctx, "accept failed", logger.Error(err))
			_ = s.Shutdown(context.Background())
			break
		}
		if !s.track(nc) {
			_ = nc.Close()
			continue
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(nc)
			s.serveConn(connCtx, nc)
		}()
	}

	<-s.done
	return runErr
}

// Shutdown stops accepting connections and closes the admission gate so that
// queued sessions are told the server is closing. Active sessions get the
// shutdown timeout to log out before their connections are closed.
// It is safe for repeated calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		defer close(s.done)

		s.mu.Lock()
		s.closing = true
		ln := s.ln
		s.mu.Unlock()

		if ln != nil {
			if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				err = cerr
			}
		}
		_ = s.gate.Close()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			s.log.Warn("shutdown timeout reached, closing open sessions",
				logger.Active(s.openConns()),
			)
			s.closeConns()
			<-finished
		}

		for _, h := range s.cfg.stopHooks {
			h(s.cfg.logger)
		}
		s.log.Info("kv server stopped")
	})

	if err != nil {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}

// Addr returns the listener address, or nil before Run starts listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Sessions returns the registry the server records sessions in.
func (s *Server) Sessions() *session.Registry {
	return s.cfg.sessions
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// track registers nc and reserves a WaitGroup slot for its handler.
// It refuses once shutdown has begun so wg.Add never races wg.Wait.
func (s *Server) track(nc net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[nc] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(nc net.Conn) {
	s.mu.Lock()
	delete(s.conns, nc)
	s.mu.Unlock()
}

func (s *Server) openConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for nc := range s.conns {
		_ = nc.Close()
	}
}
