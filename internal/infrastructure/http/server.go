package http

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const shutdownTimeout = 10 * time.Second

// Server runs the echo instance for the lifetime of the fx application.
type Server struct {
	echo *echo.Echo
	addr string
	log  zerolog.Logger
}

// NewServer registers start/stop hooks serving e on addr.
func NewServer(lc fx.Lifecycle, e *echo.Echo, addr string, log zerolog.Logger) *Server {
	s := &Server{echo: e, addr: addr, log: log}
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s
}

// Start binds the listener synchronously, so a busy port fails start-up, and
// serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.echo.Listener = ln

	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()
	return nil
}

// Addr reports the bound address once Start has returned.
func (s *Server) Addr() string {
	if s.echo.Listener == nil {
		return s.addr
	}
	return s.echo.Listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.log.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}
