package lab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zero-day-ai/lab/cache"
	"github.com/zero-day-ai/lab/config"
	"github.com/zero-day-ai/lab/judge"
	"github.com/zero-day-ai/lab/llm"
	"github.com/zero-day-ai/lab/mutation"
	"github.com/zero-day-ai/lab/persona"
	"github.com/zero-day-ai/lab/schedule"
	"github.com/zero-day-ai/lab/storage"
	"github.com/zero-day-ai/lab/telemetry"
	"github.com/zero-day-ai/lab/trial"
)

// Lab bundles the engine's collaborators, wired from one Settings value:
// the cached model client, trial storage, the judge, and the scheduler.
type Lab struct {
	client    *llm.Client
	store     storage.Store
	judge     *judge.Judge
	scheduler *schedule.Scheduler
	logger    *slog.Logger

	closers  []io.Closer
	shutdown func(context.Context) error
}

// Option overrides a piece of the default wiring.
type Option func(*labConfig)

type labConfig struct {
	logger   *slog.Logger
	provider llm.Provider
	taxonomy *judge.Taxonomy
}

// WithLogger sets the structured logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *labConfig) { c.logger = logger }
}

// WithProvider substitutes the model provider, bypassing the configured
// OpenAI-compatible endpoint. Useful for tests and local models.
func WithProvider(p llm.Provider) Option {
	return func(c *labConfig) { c.provider = p }
}

// WithTaxonomy replaces the judge's built-in violation taxonomy.
func WithTaxonomy(t *judge.Taxonomy) Option {
	return func(c *labConfig) { c.taxonomy = t }
}

// New wires a Lab from settings. The returned Lab owns its connections;
// call Close when done.
func New(ctx context.Context, settings *config.Settings, opts ...Option) (*Lab, error) {
	cfg := &labConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	l := &Lab{logger: cfg.logger}
	ok := false
	defer func() {
		if !ok {
			l.Close()
		}
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "lab",
		ServiceVersion: "1.0.0",
		Exporter:       settings.Telemetry.Exporter,
		OTLPEndpoint:   settings.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	l.shutdown = shutdown

	var store cache.Store
	switch settings.Cache.Backend {
	case "memory":
		store = cache.NewMemoryStore()
	case "redis":
		rs, err := cache.NewRedisStore(cache.RedisOptions{
			URL: settings.Cache.RedisURL,
			TTL: settings.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect completion cache: %w", err)
		}
		l.closers = append(l.closers, rs)
		store = rs
	case "none":
		// every call goes to the provider
	default:
		return nil, fmt.Errorf("unknown cache backend %q", settings.Cache.Backend)
	}

	provider := cfg.provider
	if provider == nil {
		provider, err = llm.NewOpenAIProvider(llm.OpenAIOptions{
			BaseURL:           settings.Provider.BaseURL,
			APIKey:            settings.Provider.APIKey,
			Timeout:           settings.Provider.Timeout,
			MaxRetries:        settings.Provider.MaxRetries,
			RequestsPerSecond: settings.Provider.RequestsPerSecond,
			Logger:            cfg.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model provider: %w", err)
		}
	}

	clientOpts := []llm.ClientOption{
		llm.WithModel(settings.Provider.Model),
		llm.WithEffort(llm.Effort(settings.Provider.Effort)),
		llm.WithLogger(cfg.logger),
	}
	if store != nil {
		clientOpts = append(clientOpts, llm.WithCache(store))
	}
	l.client = llm.NewClient(provider, clientOpts...)

	db, err := storage.OpenSQLite(settings.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial storage: %w", err)
	}
	l.closers = append(l.closers, db)
	l.store = db

	l.judge, err = judge.New(l.client, cfg.taxonomy, cfg.logger)
	if err != nil {
		return nil, err
	}

	l.scheduler = schedule.New(l.store, l.judge,
		schedule.WithMaxConcurrent(settings.Scheduler.MaxConcurrent),
		schedule.WithMaxIterations(settings.Scheduler.MaxIterations),
		schedule.WithLogger(cfg.logger))

	ok = true
	return l, nil
}

// Client returns the cached model client.
func (l *Lab) Client() *llm.Client { return l.client }

// Store returns trial storage.
func (l *Lab) Store() storage.Store { return l.store }

// Judge returns the transcript judge.
func (l *Lab) Judge() *judge.Judge { return l.judge }

// Scheduler returns the trial scheduler.
func (l *Lab) Scheduler() *schedule.Scheduler { return l.scheduler }

// Run expands the template against the personas and executes the whole
// grid: every variant of the template paired with every persona becomes
// one scheduled trial.
func (l *Lab) Run(
	ctx context.Context,
	description string,
	template *mutation.Template,
	personas []persona.Persona,
	factory schedule.UnitFactory,
) (*schedule.Report, error) {
	variants, err := template.Expand(ctx)
	if err != nil {
		return nil, err
	}

	exp := trial.NewExperiment(description, template.Text)
	return l.scheduler.Run(ctx, exp, variants, personas, factory)
}

// Close releases every connection the Lab owns and flushes telemetry.
func (l *Lab) Close() error {
	var firstErr error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.shutdown != nil {
		if err := l.shutdown(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
