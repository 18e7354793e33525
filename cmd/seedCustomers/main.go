package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/config"
	"qcinspect/infrastructure/logging"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
)

// buyers.csv is the buyer list every station starts with.
//
//go:embed buyers.csv
var buyersCSV []byte

const seedActor = "seed"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr))

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	summary, err := seedCustomers(context.Background(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("seed customers")
	}
	fmt.Printf("seeded customers (inserted=%d updated=%d errors=%d)\n", summary.Inserted, summary.Updated, summary.Errors)
}

// seedCustomers migrates db and upserts the embedded buyers into the central
// customer list. Running it again only refreshes codes.
func seedCustomers(ctx context.Context, db *sqlite.DB) (options.ImportSummary, error) {
	if err := sqlite.ApplyEmbeddedMigrations(ctx, db); err != nil {
		return options.ImportSummary{}, fmt.Errorf("apply migrations: %w", err)
	}
	central := options.NewCentralStore(db, audit.NewService())
	return central.ImportCustomers(ctx, seedActor, bytes.NewReader(buyersCSV))
}
