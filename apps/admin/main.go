package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	cachesvc "github.com/trezcool/admissions/services/cache"
	emailsvc "github.com/trezcool/admissions/services/email"
	logsvc "github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/storage/database"
	"github.com/trezcool/admissions/storage/database/memdb"
	sqlxrepos "github.com/trezcool/admissions/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	cache := cachesvc.NewNoopCache()
	mailSvc := emailsvc.NewConsoleService(conf, appLogger)

	cli := commandLine{}
	if conf.Database.Engine == "memory" {
		db := memdb.Open()
		cli.admissionSvc = admission.NewService(db, memdb.NewAdmissionRepository(db), cache, conf, appLogger)
		cli.appSvc = application.NewService(db, memdb.NewApplicationRepositories(db), cli.admissionSvc, mailSvc, cache, conf, appLogger)
	} else {
		db, err := database.Open(context.Background(), conf)
		errAndDie(err)
		defer func(db *sql.DB) { _ = db.Close() }(db.DB)

		tx := sqlxrepos.NewTransactor(db)
		cli.db = db.DB
		cli.admissionSvc = admission.NewService(tx, sqlxrepos.NewAdmissionRepository(db), cache, conf, appLogger)
		cli.appSvc = application.NewService(tx, sqlxrepos.NewApplicationRepositories(db), cli.admissionSvc, mailSvc, cache, conf, appLogger)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
