package main

import (
	"context"
	"database/sql"
	"delivery-planner/internal/adapters/cache"
	"delivery-planner/internal/config"
	"delivery-planner/internal/platform/db"
	"flag"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// dbtool creates the distance cache schema. Postgres is used when
// DATABASE_URL is set, the SQLite file at DB_PATH otherwise.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	dialect := flag.String("dialect", "", "sqlite or postgres (default: postgres when DATABASE_URL is set)")
	flag.Parse()

	databaseURL := strings.TrimSpace(config.Get("DATABASE_URL", ""))
	if *dialect == "" {
		*dialect = cache.DialectSQLite
		if databaseURL != "" {
			*dialect = cache.DialectPostgres
		}
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch *dialect {
	case cache.DialectPostgres:
		if databaseURL == "" {
			log.Fatal("DATABASE_URL is required")
		}
		sqlDB, err = db.Open(databaseURL)
	case cache.DialectSQLite:
		sqlDB, err = db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
	default:
		log.Fatalf("unknown dialect %q", *dialect)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	log.WithField("dialect", *dialect).Info("Initializing distance cache schema...")
	if err := cache.InitSchema(context.Background(), sqlDB, *dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Info("Schema ready.")
}
