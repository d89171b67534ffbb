package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/server"
	"ai-docqa-be/internal/tracer"
	"ai-docqa-be/pkg/rag/ragerr"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.Environment)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	// 4. Start Background Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// 5. Startup indexing. An empty docs folder leaves the pipeline uninitialized until an upload or reindex.
	res, err := container.RagService.Reindex(ctx)
	switch {
	case errors.Is(err, ragerr.ErrEmptyCorpus):
		container.Logger.Warn("STARTUP", "No documents to index, serving uninitialized", map[string]interface{}{
			"docs_dir": cfg.Rag.DocsDir,
		})
	case err != nil:
		container.Logger.Error("STARTUP", "Initial indexing failed", map[string]interface{}{
			"docs_dir": cfg.Rag.DocsDir,
			"error":    err.Error(),
		})
	default:
		container.Logger.Info("STARTUP", "Initial indexing complete", map[string]interface{}{
			"version": res.SnapshotVersion,
			"chunks":  res.IndexedChunks,
		})
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		_ = srv.Shutdown()
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
