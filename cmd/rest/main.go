package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-researcher-be/internal/bootstrap"
	"ai-researcher-be/internal/config"
	"ai-researcher-be/internal/server"
	"ai-researcher-be/internal/tracer"
)

func main() {
	cleanupTracer := tracer.InitTracer()
	defer cleanupTracer(context.Background())

	cfg := config.Load()

	container, err := bootstrap.SetupContainer(cfg)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := container.ConsumerService.Start(ctx); err != nil {
			container.Log.Error("main", "lifecycle consumer stopped", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	srv := server.New(container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		container.Log.Info("main", "shutdown signal received", nil)
		cancel()
		srv.Shutdown()
	}()

	container.Log.Info("main", "server starting", map[string]any{"port": cfg.App.Port})
	if err := srv.Listen(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
