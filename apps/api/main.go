package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/tutora/apps/api/echo"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
	"github.com/trezcool/tutora/services/email"
	"github.com/trezcool/tutora/services/logger"
	"github.com/trezcool/tutora/storage/database"
	"github.com/trezcool/tutora/storage/database/inmem"
	"github.com/trezcool/tutora/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	var repos model.Repositories
	var provisioner model.Provisioner
	if conf.Database.InMemory {
		repos = inmemdb.Open()
		provisioner = inmemdb.NewProvisioner(repos)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		repos = sqlxrepos.NewRepositories(db)
		provisioner = database.NewProvisioner(db)
	}

	// set up services
	validate, translator := model.NewValidator()
	user.InitValidators(validate, translator)
	usrSvc := user.NewService(conf, repos.Users, emailsvc.New(conf, logger), validate)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err := provisioner.Setup(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("provisioning storage: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Repos:       repos,
			Provisioner: provisioner,
			UserSvc:     usrSvc,
			Validate:    validate,
			Translator:  translator,
			Metrics:     prometheus.DefaultRegisterer,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.Open(conf)
}
