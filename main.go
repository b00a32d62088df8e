package main

import (
	"context"
	"log"

	"goviper/adapters/postgres"
	"goviper/adapters/rng"
	"goviper/app"
	"goviper/internal"
	"goviper/internal/api"
	"goviper/internal/config"
	"goviper/internal/errors"
	"goviper/internal/migration"
	"goviper/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to ping database"))
	}

	// Run migrations
	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("Database schema at version %s", migrator.Version())

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))
	gin.SetMode(appConfig.Server.GinMode)

	// Persistence is optional
	var repo ports.ActivityRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		repo = postgres.NewActivityRepository(db)
	} else {
		log.Println("DATABASE_URL not set, runs will not be stored")
	}

	service := app.NewActivityService(rng.NewSource(), repo, logger)
	handler := api.NewActivityHandler(service, repo, appConfig.Options(), logger)
	router := api.NewRouter(handler)

	// Start the server
	log.Printf("🚀 Starting goviper server on port %s", appConfig.Server.Port)
	log.Fatal(router.Run(":" + appConfig.Server.Port))
}
