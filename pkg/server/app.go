package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	mid "DripView/internal/middleware"
	"DripView/internal/usecase"
	pkgch "DripView/pkg/clickhouse"
	"DripView/pkg/config"
	xhttp "DripView/pkg/http"
	pkgkafka "DripView/pkg/kafka"
	applogger "DripView/pkg/logger"
	"DripView/pkg/queue"
)

// Components are the long-running parts of the service. Everything except
// HTTP and Log may be nil when its feature is disabled.
type Components struct {
	Log        *applogger.Logger
	HTTP       *xhttp.Server
	Pipeline   *mid.ArchivePipeline
	Processor  *usecase.ArchiveProcessor
	Consumer   *pkgkafka.Consumer
	Queue      *queue.RedisQueue
	Refresher  *usecase.Refresher
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
	Redis      redis.UniversalClient
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	c   Components
	log *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, c Components) *App {
	if c.Log == nil {
		c.Log = applogger.NewNop()
	}
	return &App{cfg: cfg, c: c, log: c.Log.With("app")}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx is
// done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}
	a.log.Info("started",
		applogger.String("env", a.cfg.App.Env),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("archive", a.c.Pipeline != nil),
		applogger.Bool("consumer", a.c.Consumer != nil),
		applogger.Bool("refresher", a.c.Refresher != nil),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	if a.c.Producer != nil && a.cfg.Log.Collect {
		a.c.Log.AddCollector(&applogger.CollectionConfig{
			Service:   a.cfg.App.Name,
			Topic:     a.cfg.Kafka.LogsTopic,
			Publisher: a.c.Producer,
		})
	}

	if a.c.Pipeline != nil {
		// the flusher outlives ctx so Stop can drain it
		a.c.Pipeline.Start(context.WithoutCancel(ctx))
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}
	if a.c.Refresher != nil {
		if err := a.c.Refresher.Start(); err != nil {
			return fmt.Errorf("start refresher: %w", err)
		}
	}
	return a.c.HTTP.Start()
}

// shutdown stops producers of work before their consumers and closes
// clients last.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			a.log.Warn(name+" stop error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.c.HTTP != nil {
		step("http", a.c.HTTP.Stop(ctx))
	}
	if a.c.Refresher != nil {
		step("refresher", a.c.Refresher.Stop(ctx))
	}
	if a.c.Queue != nil {
		step("queue", a.c.Queue.Stop(ctx))
	}
	if a.c.Pipeline != nil {
		step("archive pipeline", a.c.Pipeline.Stop(ctx))
	}
	if a.c.Consumer != nil {
		step("kafka consumer", a.c.Consumer.Stop(ctx))
	}

	a.c.Log.RemoveCollector()

	if a.c.Processor != nil {
		a.c.Processor.Close()
	}
	if a.c.Producer != nil {
		step("kafka producer", a.c.Producer.Close())
	}
	if a.c.ClickHouse != nil {
		step("clickhouse", a.c.ClickHouse.Close())
	}
	if a.c.Redis != nil {
		step("redis", a.c.Redis.Close())
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return 10 * time.Second
}
