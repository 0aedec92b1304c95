package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/app"
	"github.com/bobmcallan/tickerwatch/internal/common"
)

// Server serves the REST API, the /ws event stream and /mcp for one App.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel registers ch to receive a signal from POST /api/shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the routed, middleware-wrapped HTTP server for a.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// WriteTimeout is generous because /ws and streamed /mcp responses
	// share this server with the short REST calls.
	s.server = &http.Server{
		Addr:         net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:      applyMiddleware(mux, a.Logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the wrapped handler for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens and serves until Shutdown; it returns http.ErrServerClosed then.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("tickerwatch HTTP server listening")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and drains in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
