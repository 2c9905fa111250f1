package main

import (
	"log"
	"os"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
	"github.com/trezcool/tutora/services/email"
	"github.com/trezcool/tutora/services/logger"
	"github.com/trezcool/tutora/storage/database"
	"github.com/trezcool/tutora/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	// set up services
	validate, translator := model.NewValidator()
	user.InitValidators(validate, translator)
	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(conf, usrRepo, emailsvc.New(conf, logger), validate),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
