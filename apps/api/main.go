package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/gnarlyhq/gnarly/apps/api/echo"
	"github.com/gnarlyhq/gnarly/core"
	"github.com/gnarlyhq/gnarly/core/pdf"
	"github.com/gnarlyhq/gnarly/core/user"
	emailsvc "github.com/gnarlyhq/gnarly/services/email"
	logsvc "github.com/gnarlyhq/gnarly/services/logger"
	"github.com/gnarlyhq/gnarly/storage/database"
	sqlxrepos "github.com/gnarlyhq/gnarly/storage/database/sqlx"
	"github.com/gnarlyhq/gnarly/storage/filestore"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("%+v", err)
	}
}

func run(std *log.Logger) error {
	conf, err := core.NewConfig()
	if err != nil {
		return err
	}

	var logger core.Logger
	if !conf.Debug && conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewConsoleLogger(std)
	}

	// validation
	translator, _ := ut.New(en.New()).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// storage
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db.DB); err != nil {
		return err
	}
	store, err := filestore.New(conf.UploadDir)
	if err != nil {
		return err
	}

	// services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	pdfSvc := pdf.NewService(sqlxrepos.NewPDFRepository(db), store, usrSvc, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Addr:         conf.Server.Addr(),
		ClientOrigin: conf.ClientOrigin,
		UploadDir:    store.Dir(),
		Debug:        conf.Debug,
		TestMode:     conf.TestMode,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		PDFSvc:       pdfSvc,
		Shutdown:     shutdown,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + conf.Server.Addr())
		serverErrors <- server.Start()
	}()

	select {
	case err = <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = server.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}
