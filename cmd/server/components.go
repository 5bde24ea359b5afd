package main

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	vc "github.com/linnemanlabs/triageline/internal/cfg"
	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/events/kafka"
	"github.com/linnemanlabs/triageline/internal/llm/claude"
	"github.com/linnemanlabs/triageline/internal/notify/slack"
	"github.com/linnemanlabs/triageline/internal/postgres"
	"github.com/linnemanlabs/triageline/internal/triage"
	"github.com/linnemanlabs/triageline/internal/triage/memstore"
	"github.com/linnemanlabs/triageline/internal/triage/pgstore"
)

// components is everything the intake service depends on, plus the
// close functions main has to sequence during shutdown.
type components struct {
	svc           *triage.Service
	closeProducer func(context.Context) error
	closePool     func(context.Context) error
}

func noopClose(context.Context) error { return nil }

// closeAll releases whatever buildComponents managed to open. Used when
// start-up fails after some components exist.
func (c *components) closeAll() {
	_ = c.closeProducer(context.Background())
	_ = c.closePool(context.Background())
}

// buildComponents loads the vocabulary, picks a store and wires the optional
// advisory, notification and event integrations into a Service.
func buildComponents(ctx context.Context, L log.Logger, reg prometheus.Registerer, appCfg *vc.Config) (*components, error) {
	c := &components{closeProducer: noopClose, closePool: noopClose}

	vocab := classify.DefaultVocabulary()
	if appCfg.VocabularyFile != "" {
		var err error
		if vocab, err = classify.LoadVocabulary(appCfg.VocabularyFile); err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		L.Info(ctx, "loaded symptom vocabulary", "path", appCfg.VocabularyFile)
	}
	classifier, err := classify.New(vocab)
	if err != nil {
		return nil, fmt.Errorf("classifier init: %w", err)
	}

	store, err := openStore(ctx, L, appCfg, c)
	if err != nil {
		return nil, err
	}

	tm := triage.NewMetrics(reg)

	opts := triage.Options{
		Classifier: classifier,
		NotifyAt:   classify.Priority(appCfg.NotifyPriority),
		Hooks:      tm.ServiceHooks(),
	}

	if appCfg.ClaudeAPIKey != "" {
		opts.Advisor = triage.NewAdvisor(claude.New(appCfg.ClaudeAPIKey, appCfg.ClaudeModel), L, tm.AdvisorHooks())
		L.Info(ctx, "advisory notes enabled", "provider", "claude", "model", appCfg.ClaudeModel)
	}

	if appCfg.SlackWebhookURL != "" {
		opts.Notifier = slack.New(appCfg.SlackWebhookURL, L)
		L.Info(ctx, "notifier enabled", "type", "slack", "notify_priority", opts.NotifyAt.String())
	}

	if brokers := appCfg.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, appCfg.KafkaTopic, L)
		opts.Publisher = producer
		c.closeProducer = func(context.Context) error { return producer.Close() }
		L.Info(ctx, "event publisher enabled", "type", "kafka", "topic", appCfg.KafkaTopic, "brokers", brokers)
	}

	c.svc = triage.NewService(store, L, opts)
	return c, nil
}

// openStore returns the Postgres store when a database URL is set and the
// in-memory store otherwise. The pool close func is recorded on c.
func openStore(ctx context.Context, L log.Logger, appCfg *vc.Config, c *components) (triage.Store, error) {
	if appCfg.DatabaseURL == "" {
		L.Info(ctx, "using in-memory store (no database-url configured)")
		return memstore.New(), nil
	}

	pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:  int32(appCfg.DBMaxConns), //nolint:gosec // G115: Validate bounds it to 0..MaxInt32
		SlowQuery: time.Duration(appCfg.DBSlowQueryMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	store, err := pgstore.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore init: %w", err)
	}
	c.closePool = func(context.Context) error { pool.Close(); return nil }
	L.Info(ctx, "using postgres store", "max_conns", appCfg.DBMaxConns)
	return store, nil
}

// observeQueries registers the DB query histogram and routes the postgres
// tracer's observations into it.
func observeQueries(reg prometheus.Registerer) {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triageline_db_query_duration_seconds",
		Help:    "Duration of individual database queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "outcome"})
	reg.MustRegister(hist)

	postgres.SetQueryObserver(postgres.QueryObserverFunc(
		func(_ context.Context, method, route, outcome string, dur time.Duration) {
			hist.WithLabelValues(method, route, outcome).Observe(dur.Seconds())
		},
	))
}
