package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
	inmemdb "github.com/angeraphael/parrainage/storage/inmem"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		ReferralSvc    *referral.Service
		Sessions       *inmemdb.SessionStore
		Registry       *prometheus.Registry // a new one is created when nil
		DisableReqLogs bool
	}

	Server struct {
		app      *echo.Echo
		addr     string
		shutdown chan os.Signal
		errors   chan error
		metrics  *metrics
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		addr:     deps.Conf.Server.Address,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(reg, deps.Sessions)

	s.setup(deps, reg)
	return s
}

func (s *Server) setup(deps ServerDeps, reg *prometheus.Registry) {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(deps.Conf.Debug || deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger)
	s.app.Debug = deps.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", metricsHandler(reg))

	v1 := s.app.Group("/v1")
	registerReferralAPI(v1, bearerTokenMiddleware(), deps.ReferralSvc, deps.Sessions, s.metrics)
}

// Start listens on the configured address; failures are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Parrainage API!")
}
