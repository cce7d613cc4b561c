// Package api provides the read-only status HTTP API. It deliberately
// has no control surface: the UDP wire protocol is the only way to
// change channel state.
package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/ledpd/internal/backend"
	"github.com/smazurov/ledpd/internal/events"
	"github.com/smazurov/ledpd/internal/logging"
	"github.com/smazurov/ledpd/internal/version"
)

// Options configures the status API server.
type Options struct {
	Backend        backend.Backend
	Bus            *events.Bus
	UDPPort        int
	MetricsHandler http.Handler // optional Prometheus handler
}

// Server is the Huma v2 status API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     interface {
		Info(msg string, args ...any)
		Error(msg string, args ...any)
	}

	started time.Time

	// Tallies kept independently of Prometheus so /api/status works
	// even with metrics disabled.
	applied     atomic.Uint64
	dropped     atomic.Uint64
	unsubscribe []func()
}

// NewServer creates the status API server and subscribes it to the bus.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("LEDP Status API", version.Version)
	config.Info.Description = "Read-only status for the LEDP channel control daemon"
	config.Servers = []*huma.Server{}

	s := &Server{
		api:     humago.New(mux, config),
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
		started: time.Now(),
	}

	if opts.Bus != nil {
		s.unsubscribe = append(s.unsubscribe,
			opts.Bus.Subscribe(func(events.CommandAppliedEvent) { s.applied.Add(1) }),
			opts.Bus.Subscribe(func(events.PacketDroppedEvent) { s.dropped.Add(1) }),
		)
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.registerRoutes()
	return s
}

// Start serves the API on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting status API server", "addr", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down and drops bus subscriptions.
func (s *Server) Stop() error {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
