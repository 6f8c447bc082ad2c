package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/runcrew/runcrew-backend/internal/auth"
	"github.com/runcrew/runcrew-backend/internal/config"
	"github.com/runcrew/runcrew-backend/internal/db"
	"github.com/runcrew/runcrew-backend/internal/logging"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/seeds"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture to load instead of the built-in demo data")
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	log := logging.Setup(logging.Options{Level: "info"})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := auth.Init(conn); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := models.Migrate(conn); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fixture, err := seeds.Default()
	if *fixturePath != "" {
		var raw []byte
		if raw, err = os.ReadFile(*fixturePath); err == nil {
			fixture, err = seeds.Parse(raw)
		}
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if _, err := seeds.Apply(context.Background(), conn, fixture, time.Now()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
