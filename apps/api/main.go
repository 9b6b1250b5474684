package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
	"github.com/trezcool/admissions/core/lookup"
	cachesvc "github.com/trezcool/admissions/services/cache"
	emailsvc "github.com/trezcool/admissions/services/email"
	logsvc "github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/storage/database"
	"github.com/trezcool/admissions/storage/database/memdb"
	sqlxrepos "github.com/trezcool/admissions/storage/database/sqlx"
)

// stores groups the repositories of one storage engine.
type stores struct {
	tx           core.Transactor
	lookups      lookup.Repository
	admissions   admission.Repository
	applications application.Repositories
	fees         fees.Repository
	exams        exam.Repository
	close        func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx := context.Background()

	// set up storage
	st, err := setUpStores(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = st.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	cache := cachesvc.NewNoopCache()
	if conf.Redis.URL != "" {
		redisCache, closeCache, err := cachesvc.NewRedisCache(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer func() { _ = closeCache() }()
		cache = redisCache
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	lookupSvc := lookup.NewService(st.lookups, cache, conf, logger)
	admissionSvc := admission.NewService(st.tx, st.admissions, cache, conf, logger)
	applicationSvc := application.NewService(st.tx, st.applications, admissionSvc, mailSvc, cache, conf, logger)
	feesSvc := fees.NewService(st.fees, lookupSvc, logger)
	examSvc := exam.NewService(st.exams, lookupSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	application.InitValidators(validate, translator)

	if n, err := admissionSvc.CloseExpired(ctx); err != nil {
		logger.Error("closing expired admissions", err)
	} else if n > 0 {
		logger.Info(fmt.Sprintf("closed %d expired admission(s)", n))
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			LookupSvc:      lookupSvc,
			AdmissionSvc:   admissionSvc,
			ApplicationSvc: applicationSvc,
			FeesSvc:        feesSvc,
			ExamSvc:        examSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStores(ctx context.Context, conf *core.Config) (*stores, error) {
	if conf.Database.Engine == "memory" {
		db := memdb.Open()
		return &stores{
			tx:           db,
			lookups:      memdb.NewLookupRepository(db),
			admissions:   memdb.NewAdmissionRepository(db),
			applications: memdb.NewApplicationRepositories(db),
			fees:         memdb.NewFeesRepository(db),
			exams:        memdb.NewExamRepository(db),
			close:        func() error { return nil },
		}, nil
	}

	db, err := setUpDB(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &stores{
		tx:           sqlxrepos.NewTransactor(db),
		lookups:      sqlxrepos.NewLookupRepository(db),
		admissions:   sqlxrepos.NewAdmissionRepository(db),
		applications: sqlxrepos.NewApplicationRepositories(db),
		fees:         sqlxrepos.NewFeesRepository(db),
		exams:        sqlxrepos.NewExamRepository(db),
		close:        db.Close,
	}, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
