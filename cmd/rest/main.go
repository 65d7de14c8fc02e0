package main

import (
	"context"
	"log"

	"health-agent-be/internal/bootstrap"
	"health-agent-be/internal/config"
	"health-agent-be/internal/server"
	"health-agent-be/internal/tracer"
	"health-agent-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load configuration
	cfg := config.Load()

	// 2. Initialize database. Only needed for the pgvector index backend;
	// the default local file index runs without one.
	var gormDB *gorm.DB
	if cfg.Rag.IndexBackend == "postgres" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	}

	// 3. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start background services
	go func() {
		log.Println("Background: Starting ingestion consumer...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background consumer error: %v", err)
		}
	}()

	// 5. Run server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
