package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		Repos       model.Repositories
		Provisioner model.Provisioner
		UserSvc     user.Service
		Validate    *validator.Validate
		Translator  ut.Translator
		// Metrics registers the request metrics; nil disables them.
		Metrics prometheus.Registerer
	}

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(newMetrics(s.deps.Metrics).middleware)
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerAuthAPI(api, s.deps)
	registerUserAPI(api, jwt, s.deps)
	registerConversationAPI(api, jwt, s.deps)

	repos := s.deps.Repos
	newCollectionAPI(repos.Assignments, s.deps.Validate).register(api.Group("/assignments"), jwt)
	newCollectionAPI(repos.Messages, s.deps.Validate).register(api.Group("/messages"), jwt)
	newCollectionAPI(repos.Notifications, s.deps.Validate).register(api.Group("/notifications"), jwt)
	newCollectionAPI(repos.Templates, s.deps.Validate).register(api.Group("/templates"), jwt)
	newCollectionAPI(repos.Resources, s.deps.Validate).register(api.Group("/resources"), jwt)
	newCollectionAPI(repos.Goals, s.deps.Validate).register(api.Group("/goals"), jwt)
	newCollectionAPI(repos.Badges, s.deps.Validate).register(api.Group("/badges"), jwt)
	newCollectionAPI(repos.Events, s.deps.Validate).register(api.Group("/events"), jwt)
	newCollectionAPI(repos.Questions, s.deps.Validate).register(api.Group("/questions"), jwt)

	exams := newCollectionAPI(repos.Exams, s.deps.Validate)
	exams.prepare = func(e *model.Exam) { e.Recalculate() }
	exams.register(api.Group("/exams"), jwt)
}

// Start listens until the server is shut down. Listener failures are sent on Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
