// Command warmcached runs refresh-ahead caches and reports their values and
// refresh metrics. It serves as a reference wiring of the warmcache packages.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/kafka"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/metric"
	"github.com/dailyyoga/warmcache/redis"
	"github.com/dailyyoga/warmcache/routine"
	"github.com/dailyyoga/warmcache/ticker"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		logger.Error("failed to create logger", zap.Error(err))
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("warmcached exited with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

// app owns everything that must be released on shutdown
type app struct {
	log     logger.Logger
	runner  routine.Runner
	closers []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order and waits for background work
func (a *app) close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.runner.Wait()
	return result.ErrorOrNil()
}

func run(ctx context.Context, log logger.Logger, cfg *Config) (err error) {
	a := &app{log: log, runner: routine.New(log)}
	defer func() {
		if cerr := a.close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	metrics, err := a.startMetrics(cfg.Metrics)
	if err != nil {
		return err
	}

	balance, err := a.loadBalance(ctx, cfg, metrics)
	if err != nil {
		return err
	}

	var document *cache.Handle[map[string]any]
	if cfg.Redis != nil {
		if document, err = a.loadDocument(ctx, cfg.Redis, metrics, balance); err != nil {
			return err
		}
	}

	report := time.NewTicker(cfg.ReportInterval)
	defer report.Stop()

	log.Info("warmcached started")
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-balance.Done():
			log.Warn("balance cache stopped", zap.Error(balance.Err()))
			return balance.Err()
		case <-report.C:
			snap := balance.Read()
			fields := []zap.Field{
				zap.String("balance", snap.Value().StringFixed(2)),
				zap.Uint64("version", snap.Version()),
				zap.Duration("age", snap.Age()),
			}
			if document != nil {
				fields = append(fields, zap.Int("document_fields", len(document.Get())))
			}
			log.Info("current values", fields...)
		}
	}
}

func (a *app) startMetrics(cfg MetricsConfig) (cache.Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := metric.NewPrometheus(reg, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return metrics, nil
	}

	srv := metric.NewServer(a.log, cfg.Addr, cfg.Path, reg)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	a.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	})
	return metrics, nil
}

func (a *app) loadBalance(ctx context.Context, cfg *Config, metrics cache.Metrics) (_ *cache.Handle[decimal.Decimal], err error) {
	src, err := newBalanceSource(cfg.Balance, time.Now)
	if err != nil {
		return nil, err
	}

	b := cache.New[decimal.Decimal](a.log).
		WithConfig(&cfg.Cache).
		WithRefresh(src).
		WithRunner(a.runner).
		WithMetrics(metrics)

	// the builder owns triggers once Load is called
	var triggers []ticker.Ticker
	defer func() {
		if err != nil && triggers != nil {
			for _, t := range triggers {
				t.Stop()
			}
		}
	}()

	name := cfg.Cache.Name
	if k := cfg.Kafka; k != nil && k.Producer != nil {
		producer, err := kafka.NewProducer(a.log, k.Producer)
		if err != nil {
			return nil, err
		}
		a.onClose(producer.Close)
		b.WithOnRefresh(kafka.OnRefresh[decimal.Decimal](kafka.NewAnnouncer(a.log, producer, k.Producer.Topic), name))
	}
	if cfg.Cron != "" {
		tk, err := ticker.NewCron(cfg.Cron, time.Local)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, tk)
	}
	if k := cfg.Kafka; k != nil && k.Consumer != nil {
		consumer, err := kafka.NewConsumer(a.log, k.Consumer)
		if err != nil {
			return nil, err
		}
		tr, err := kafka.NewTrigger(a.log, consumer, kafka.ForCache(name))
		if err != nil {
			consumer.Close()
			return nil, err
		}
		triggers = append(triggers, tr)
	}

	for _, t := range triggers {
		b.WithTrigger(t)
	}
	triggers = nil
	if cfg.TriggerRate > 0 {
		b.WithTriggerRateLimit(cfg.TriggerRate, cfg.TriggerBurst)
	}

	h, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.onClose(func() error {
		h.Close()
		<-h.Done()
		return nil
	})
	return h, nil
}

// loadDocument caches a JSON document stored in redis. It is refreshed on
// its own frequency and whenever a message arrives on the channel; every
// balance snapshot is announced on the same channel.
func (a *app) loadDocument(
	ctx context.Context, cfg *RedisConfig, metrics cache.Metrics, balance *cache.Handle[decimal.Decimal],
) (*cache.Handle[map[string]any], error) {
	rdb, err := redis.NewRedis(a.log, &cfg.Config)
	if err != nil {
		return nil, err
	}
	a.onClose(rdb.Close)

	b := cache.New[map[string]any](a.log).
		WithName("document").
		WithRefresh(redis.NewKeySource[map[string]any](rdb, cfg.Key, nil)).
		WithFrequency(cfg.Frequency).
		WithRunner(a.runner).
		WithMetrics(metrics)

	if cfg.Channel != "" {
		tr, err := redis.NewTrigger(ctx, a.log, rdb, cfg.Channel, redis.WithFilter(func(payload string) bool {
			// balance announcements share the channel
			_, err := cache.ParseAnnouncement([]byte(payload))
			return err != nil
		}))
		if err != nil {
			return nil, err
		}
		b.WithTrigger(tr)
	}

	h, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.onClose(func() error {
		h.Close()
		<-h.Done()
		return nil
	})

	if cfg.Channel != "" {
		announce := redis.OnRefresh[decimal.Decimal](redis.NewAnnouncer(a.log, rdb, cfg.Channel), balance.Name())
		updates := balance.Watch(ctx)
		a.runner.Go("balance-announcer", func() {
			for snap := range updates {
				announce(snap)
			}
		})
	}

	a.runner.GoContext(ctx, "document-watcher", func(ctx context.Context) {
		for snap := range h.Watch(ctx) {
			a.log.Debug("document updated", zap.Uint64("version", snap.Version()), zap.Int("fields", len(snap.Value())))
		}
	})
	return h, nil
}
