package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"qcinspect/frontend/inspections/delivery"
	"qcinspect/frontend/inspections/form"
	"qcinspect/frontend/inspections/report"
	"qcinspect/frontend/settings"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/config"
	httpserver "qcinspect/infrastructure/http"
	"qcinspect/infrastructure/kv"
	"qcinspect/infrastructure/logging"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	logging.Setup(logger)

	ctx := context.Background()

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	if cfg.MigrationsDir != "" {
		err = sqlite.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	} else {
		err = sqlite.ApplyEmbeddedMigrations(ctx, db)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	store, err := kv.Open(cfg.BadgerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open station store")
	}
	defer store.Close()

	catalog, err := options.LoadCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("load option catalog")
	}
	backends, err := config.ParseOptionBackends(cfg.OptionBackends)
	if err != nil {
		log.Fatal().Err(err).Msg("parse option backends")
	}
	auditSvc := audit.NewService()
	central := options.NewCentralStore(db, auditSvc)
	registry, err := options.NewRegistry(catalog, options.NewLocalStore(store), central, backends)
	if err != nil {
		log.Fatal().Err(err).Msg("build option registry")
	}

	var (
		blobs   storage.BlobStore
		local   *storage.LocalStore
		fetcher report.ImageFetcher = report.NewHTTPFetcher(cfg.HTTPClientTimeout)
	)
	switch cfg.StorageBackend {
	case "gcs":
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("open gcs bucket")
		}
		defer gcs.Close()
		blobs = gcs
	default:
		local, err = storage.NewLocalStore(cfg.StorageLocalDir, cfg.PublicBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("open local storage")
		}
		blobs = local
		fetcher = report.NewLocalFirstFetcher(local, fetcher)
	}

	recipients := settings.NewRecipients(store)
	deliverySvc := &delivery.Service{
		Recipients: recipients,
		Dispatcher: mailer.NewDispatcher(cfg.EmailEndpointURL, cfg.HTTPClientTimeout, logger),
		Catalog:    catalog,
		Fetcher:    fetcher,
		DB:         db,
		Audit:      auditSvc,
	}
	drafts := form.NewDrafts(catalog)

	server := httpserver.NewServer(cfg.Addr, httpserver.Deps{
		DB:       db,
		Audit:    auditSvc,
		Catalog:  catalog,
		Registry: registry,
		Central:  central,
		Drafts:   drafts,
		Submitter: &form.Submitter{
			Drafts:   drafts,
			Uploader: storage.NewUploader(blobs, cfg.PhotoCollection, cfg.UploadConcurrency, logger),
			DB:       db,
			Audit:    auditSvc,
			Delivery: deliverySvc,
		},
		Delivery:   deliverySvc,
		Recipients: recipients,
		Sender: mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}),
		Local:  local,
		Logger: logger,
	})
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("start server")
	}
	log.Info().Str("addr", cfg.Addr).Str("storage", cfg.StorageBackend).Msg("qcinspect listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}
