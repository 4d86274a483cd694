package main

import (
	"context"
	"log"

	"launchlab/adapters/postgres"
	"launchlab/adapters/rng"
	"launchlab/app"
	"launchlab/domain/decision"
	"launchlab/internal"
	"launchlab/internal/config"
	"launchlab/internal/errors"
	"launchlab/internal/migration"
	"launchlab/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	service := app.NewDecisionService(
		postgres.NewDecisionRepository(db),
		rng.NewAdapter(),
		logger,
		engineConfig(appConfig),
		appConfig.Engine.BaseSeed,
	)

	httpApp := ui.NewApp(ui.Config{
		Port:                  appConfig.Server.Port,
		MaxConcurrentAnalyses: appConfig.Server.MaxConcurrentAnalyses,
	}, service, logger)

	if err := httpApp.Serve(appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// engineConfig applies the deployment's engine tuning on top of the stock
// decision config.
func engineConfig(appConfig *config.Config) decision.Config {
	cfg := decision.DefaultConfig()
	cfg.Statistics.Simulations = appConfig.Engine.Simulations
	cfg.Statistics.PriorAlpha = appConfig.Engine.PriorAlpha
	cfg.Statistics.PriorBeta = appConfig.Engine.PriorBeta
	return cfg
}

// initDatabase connects to PostgreSQL and applies migrations
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	runner := migration.NewRunner()
	if err := runner.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}
