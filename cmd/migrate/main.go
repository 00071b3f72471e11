package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/washlytics/tenant-onboarding/internal/infra/config"
	"github.com/washlytics/tenant-onboarding/internal/infra/database"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var dir database.Direction
	switch *direction {
	case "up":
		dir = database.DirectionUp
	case "down":
		dir = database.DirectionDown
	default:
		log.Fatalf("unknown direction %q", *direction)
	}

	if err := database.Migrate(cfg.Postgres.DSN(), dir); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Printf("migrations applied (%s)", *direction)
}
