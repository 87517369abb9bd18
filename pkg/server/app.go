package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SectorPulse/internal/scheduler"
	"SectorPulse/internal/usecase"
	pkgch "SectorPulse/pkg/clickhouse"
	"SectorPulse/pkg/config"
	xhttp "SectorPulse/pkg/http"
	pkgkafka "SectorPulse/pkg/kafka"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.QuoteCollector
	consumer    *pkgkafka.Consumer
	handlers    []pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	queue       *queue.RedisQueue
	sched       *scheduler.Scheduler
	backfiller  *usecase.Backfiller
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		consumer:  consumer,
		handlers:  handlers,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetQueue wires the on-demand recompute queue.
func (a *App) SetQueue(q *queue.RedisQueue) { a.queue = q }

// SetScheduler wires the periodic correlation scheduler.
func (a *App) SetScheduler(s *scheduler.Scheduler) { a.sched = s }

// SetBackfiller wires the startup history seeder.
func (a *App) SetBackfiller(b *usecase.Backfiller) { a.backfiller = b }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	// Seed trailing history for symbols with no stored closes so the first
	// scheduled pass has a full window.
	if a.backfiller != nil {
		seedCtx, seedCancel := context.WithTimeout(ctx, 2*time.Minute)
		if err := a.backfiller.Seed(seedCtx, a.cfg.FeedSymbols(), a.cfg.QuoteAPI.BackfillDays); err != nil {
			l.Warn("history backfill incomplete", applogger.Error(err))
		}
		seedCancel()
	}

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		path := a.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		serverOpts = append(serverOpts, xhttp.WithMetrics(path))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, serverOpts...)

	// Start live quote collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.FeedSymbols()))

	// Start consumer if configured
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			l.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
	}

	// Start recompute queue consumer
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		a.queue.StartRetryProcessor()
		l.Info("recompute queue started")
	}

	// Start periodic correlation runs
	if a.sched != nil {
		if err := a.sched.RegisterSectors(a.cfg); err != nil {
			l.Error("scheduler register error", applogger.Error(err))
			return err
		}
		a.sched.Start()
		l.Info("scheduler started", applogger.String("spec", a.cfg.Correlations.Schedule))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log

	// Stop scheduling new work first
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop queue consumer
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Stop kafka consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close processor resources (publisher/storage)
	if a.collector.Processor() != nil {
		a.collector.Processor().Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
