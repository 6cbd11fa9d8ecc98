package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"saas-notes-be/internal/bootstrap"
	"saas-notes-be/internal/config"
	"saas-notes-be/internal/server"
	"saas-notes-be/internal/tracer"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container). A bad store config is fatal.
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to start: %v", err)
	}
	defer container.Close()

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(ctx, cfg.Otel, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Start Background Services
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if err := container.ConsumerService.Consume(consumerCtx); err != nil {
		container.Logger.Error("MAIN", "Failed to start note event consumer", map[string]interface{}{"error": err.Error()})
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		container.Logger.Info("MAIN", "Shutting down", nil)
		_ = srv.Shutdown()
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
}
