package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/trezcool/tutora/client/assist"
	"github.com/trezcool/tutora/client/gateway"
	"github.com/trezcool/tutora/client/session"
	"github.com/trezcool/tutora/client/store"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/services/email"
	"github.com/trezcool/tutora/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "CLIENT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	prefs, err := session.OpenPreferences(filepath.Join(conf.Client.DataDir, "preferences.db"))
	if err != nil {
		logger.Fatal("opening preferences", err)
	}
	defer func() { _ = prefs.Close() }()

	validate, _ := model.NewValidator()
	gw := gateway.New(gateway.Config{
		BaseURL: conf.Client.BaseURL,
		Timeout: conf.Client.Timeout,
		ErrorHandler: func(err error) {
			logger.Warn("request failed", err)
		},
	})

	cli := commandLine{
		st: store.New(store.Deps{
			API:      gw,
			Session:  session.NewStorage(conf.Client.KeyringService),
			Validate: validate,
			Logger:   logger,
		}),
		prefs:   prefs,
		assist:  assist.New(conf.Assist, logger),
		mailSvc: emailsvc.New(conf, logger),
		now:     time.Now,
		out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cli.run(ctx, os.Args)
	stop()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = prefs.Close()
		os.Exit(1)
	}
}
