package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"despacho_backend/internal/events"
	"despacho_backend/internal/funnel"
	"despacho_backend/internal/funnel/handler"
	"despacho_backend/internal/funnel/repository"
	"despacho_backend/internal/scheduler"
	"despacho_backend/platform/config"
	"despacho_backend/platform/db"
	"despacho_backend/platform/logger"
	"despacho_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	dispatcher, closeDispatcher := initDispatcher(cfg, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}
	if dispatcher != nil {
		subscribeDispatches(eventBus, dispatcher)
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	repo := repository.New(pool)
	funnelModule, err := funnel.NewModule(ctx, repo, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize funnel module", "error", err)
		panic("failed to initialize funnel module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	h := handler.New(funnelModule.Engine(), val)
	router := newRouter(cfg, log, pool, h)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runTickLoop(gctx, funnelModule.Engine(), cfg, log)
		return nil
	})

	g.Go(func() error {
		runSnapshotLoop(gctx, funnelModule, cfg, log)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// Last flush so no runtime state is lost across the restart.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := funnelModule.Flush(flushCtx); err != nil {
		log.Error("final snapshot flush failed", "error", err)
	}
	log.Info("server stopped")
}

// runTickLoop drives the funnel engine clock. Dispatch intents leave
// through the event bus, so the loop itself only observes volume.
func runTickLoop(ctx context.Context, engine *funnel.Engine, cfg config.EngineConfig, log *logger.Logger) {
	ticker := time.NewTicker(cfg.GetTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().In(cfg.GetTimezone())
			intents := engine.Tick(ctx, now)
			if len(intents) > 0 {
				log.Info("tick fired pending actions", "count", len(intents))
			}
		}
	}
}

func runSnapshotLoop(ctx context.Context, module *funnel.Module, cfg config.EngineConfig, log *logger.Logger) {
	ticker := time.NewTicker(cfg.GetSnapshotInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := module.Flush(ctx); err != nil {
				log.Error("snapshot flush failed", "error", err)
			}
		}
	}
}

func initDispatcher(cfg config.RedisConfig, log *logger.Logger) (scheduler.Dispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; outbound delivery disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func subscribeDispatches(bus events.Bus, dispatcher scheduler.Dispatcher) {
	bus.Subscribe(events.DispatchQueued{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.DispatchQueued)
		if !ok {
			return nil
		}
		return dispatcher.EnqueueDispatch(ctx, scheduler.FunnelDispatchPayload{
			ContactID:      e.ContactID.String(),
			Phone:          e.Phone,
			Text:           e.Text,
			AttachmentKind: e.AttachmentKind,
			AttachmentName: e.AttachmentName,
			QueuedAt:       e.OccurredAt(),
		})
	}))
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
