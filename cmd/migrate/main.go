package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"smart-meal-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate every table (destroys all sessions)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		color.Yellow("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	schema := database.NewSchema(db)

	if *reset {
		if os.Getenv("GO_ENV") == "production" {
			color.Red("Error: refusing to reset the schema in production")
			os.Exit(1)
		}
		color.Yellow("Dropping and recreating tables...")
		tables, err := schema.ResetSchema(ctx)
		if err != nil {
			color.Red("Error: reset failed: %v", err)
			os.Exit(1)
		}
		color.Green("Success: recreated %s", strings.Join(tables, ", "))
		return
	}

	color.Cyan("Running AutoMigrate...")
	if err := schema.Migrate(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	color.Green("Success: database migration completed")
}
