package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"wisefido-asset/common/database"
	"wisefido-asset/common/logger"
	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/config"
	"wisefido-asset/internal/domain"
	httpapi "wisefido-asset/internal/http"
	"wisefido-asset/internal/registry"
	"wisefido-asset/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		migrate    bool
		skipAssets bool
		issueToken string
		username   string
		role       string
		department string
	)
	flagSet := pflag.NewFlagSet("seed-demo", pflag.ContinueOnError)
	flagSet.BoolVar(&migrate, "migrate", false, "apply the database schema before seeding")
	flagSet.BoolVar(&skipAssets, "skip-assets", false, "do not register demo assets")
	flagSet.StringVar(&issueToken, "issue-token", "", "print a bearer token for this operator id")
	flagSet.StringVar(&username, "username", "demo.nurse", "operator username for --issue-token")
	flagSet.StringVar(&role, "role", "nurse", "operator role for --issue-token")
	flagSet.StringVar(&department, "department", "ICU", "operator department for --issue-token")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zapLogger, err := logger.NewLogger(cfg.Log.Level, "console", "seed-demo")
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if migrate || !skipAssets {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return err
		}
		store := repository.NewPostgresStore(db, zapLogger)
		defer store.Close()

		if err := seedDatabase(ctx, db, store, cfg, migrate, skipAssets, zapLogger); err != nil {
			return err
		}
	}

	if issueToken != "" {
		secret := cfg.Auth.JWTSecret
		if secret == "" {
			return fmt.Errorf("JWT_SECRET must be set to issue tokens")
		}
		issuer := httpapi.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
		token, err := issuer.Issue(domain.Operator{ID: issueToken, Username: username, Role: role, Department: department}, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(token)
	}
	return nil
}

func seedDatabase(ctx context.Context, db *sql.DB, store repository.Store, cfg *config.Config, migrate, skipAssets bool, logger *zap.Logger) error {
	if migrate {
		if err := repository.ApplySchema(ctx, db); err != nil {
			return err
		}
		logger.Info("Schema applied", zap.Int("statements", len(repository.SchemaStatements())))
	}
	if skipAssets {
		return nil
	}

	kb := atlas.Default()
	if cfg.Tracking.AtlasFile != "" {
		loaded, err := atlas.LoadFile(cfg.Tracking.AtlasFile)
		if err != nil {
			return err
		}
		kb = loaded
	}
	reg := registry.New(store, kb, clock.Real(), logger)
	created, skipped, err := SeedDemoAssets(ctx, reg, logger)
	if err != nil {
		return err
	}
	logger.Info("Demo assets seeded", zap.Int("created", created), zap.Int("skipped", skipped))
	return nil
}
