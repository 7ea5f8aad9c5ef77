// Package server assembles the mock identity provider from its configuration
// and runs it as an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/lukaszraczylo/mockoauth2/config"
	"github.com/lukaszraczylo/mockoauth2/handlers"
	"github.com/lukaszraczylo/mockoauth2/internal/kv"
	"github.com/lukaszraczylo/mockoauth2/internal/logger"
	"github.com/lukaszraczylo/mockoauth2/internal/random"
	"github.com/lukaszraczylo/mockoauth2/internal/token"
	"github.com/lukaszraczylo/mockoauth2/internal/ui"
	"github.com/lukaszraczylo/mockoauth2/internal/validator"
	"github.com/lukaszraczylo/mockoauth2/middleware"
	"github.com/lukaszraczylo/mockoauth2/session"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type options struct {
	generator random.Generator
	backend   kv.Backend
}

// Option customises New.
type Option func(*options)

// WithGenerator replaces the random source used for codes and tokens.
func WithGenerator(gen random.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithBackend uses backend instead of the one described by the configuration.
// The caller keeps ownership and must close it.
func WithBackend(backend kv.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// Server is a configured mock identity provider.
type Server struct {
	cfg         *config.Config
	logger      logger.Logger
	backend     kv.Backend
	ownsBackend bool
	handler     http.Handler
	httpServer  *http.Server
}

// New wires stores, handlers and middleware for cfg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if log == nil {
		log = logger.GetNoOpLogger()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, fmt.Errorf("build scope resolver: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Infof("Config warning: %s", w)
	}

	backend, owns := o.backend, false
	if backend == nil {
		backend, err = kv.New(ctx, cfg.KVConfig())
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
		}
		owns = true
	}

	sessions, err := session.NewManager(cfg.SessionManagerConfig(), log)
	if err != nil {
		closeOwned(backend, owns)
		return nil, err
	}

	paths := handlers.Paths{
		Authorize: cfg.AuthPath,
		Token:     cfg.TokenPath,
		Userinfo:  cfg.UserinfoPath,
		Tokeninfo: cfg.TokeninfoPath,
	}
	renderer, err := ui.NewTemplateRenderer(handlers.DefaultPaths().LoginAs, resolver.Scopes(), cfg.DefaultExpiresIn)
	if err != nil {
		closeOwned(backend, owns)
		return nil, err
	}

	h, err := handlers.New(handlers.Options{
		Paths:            paths,
		ClientID:         cfg.ClientID,
		ClientSecret:     cfg.ClientSecret,
		DefaultExpiresIn: cfg.DefaultExpiresIn,
		Validator:        validator.New(cfg.ValidatorSettings()),
		Tokens:           token.NewStore(backend, o.generator, resolver),
		Sessions:         session.NewStore(backend, cfg.Session.MaxAge),
		Renderer:         renderer,
		Logger:           log,
	})
	if err != nil {
		closeOwned(backend, owns)
		return nil, err
	}

	mux := http.NewServeMux()
	h.Routes(mux)

	handler := middleware.Chain(mux,
		middleware.Recover(log),
		middleware.AccessLog(log),
		middleware.RateLimit(middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)),
		sessions.Middleware,
	)

	return &Server{
		cfg:         cfg,
		logger:      log,
		backend:     backend,
		ownsBackend: owns,
		handler:     handler,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

func closeOwned(backend kv.Backend, owns bool) {
	if owns {
		_ = backend.Close()
	}
}

// Handler returns the complete middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	s.logger.Infof("Listening on %s", ln.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.logger.Info("Server stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the backend when the server opened it.
func (s *Server) Close() error {
	if !s.ownsBackend {
		return nil
	}
	return s.backend.Close()
}
