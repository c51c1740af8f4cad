package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"paperchat/internal/bootstrap"
	"paperchat/internal/config"
	"paperchat/internal/server"
	"paperchat/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing, "paperchat-gateway")
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap gateway: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)
	if err := container.SessionEventConsumer.Consume(ctx); err != nil {
		log.Fatalf("Unable to start session event consumer: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
