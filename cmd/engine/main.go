// The engine binary is the delivery worker: it consumes queued funnel
// dispatches from Redis and hands them to the WhatsApp gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"despacho_backend/internal/scheduler"
	"despacho_backend/internal/whatsapp"
	"despacho_backend/platform/config"
	"despacho_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting delivery worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender scheduler.Sender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		sender = client
	} else {
		log.Warn("WHATSAPP_BASE_URL not configured; outbound messages will be dropped")
	}

	worker, err := scheduler.NewWorker(cfg, sender, log)
	if err != nil {
		log.Error("failed to initialize delivery worker", "error", err)
		panic("failed to initialize delivery worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("delivery worker stopped")
}
