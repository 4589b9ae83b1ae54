package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"findingmovie/searchservice/internal/cache"
	"findingmovie/searchservice/internal/enrich"
	"findingmovie/searchservice/internal/intent"
	"findingmovie/searchservice/internal/providers/tmdb"
	"findingmovie/searchservice/internal/ranking"
	"findingmovie/searchservice/internal/retrieval"
	"findingmovie/searchservice/internal/retry"
	"findingmovie/searchservice/internal/roster"
	"findingmovie/searchservice/internal/search"
	"findingmovie/searchservice/internal/semantic"
)

const (
	redisPingTimeout = 3 * time.Second
	mongoTimeout     = 10 * time.Second
)

// Pipeline holds the assembled search service and the connections it owns.
type Pipeline struct {
	Service *search.Service
	TMDB    *tmdb.Client
	Roster  *roster.Roster

	closers []func(context.Context) error
}

// Close releases Redis and Mongo connections opened by BuildPipeline.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildPipeline wires the roster, TMDB client, caches and scoring into a
// search service. Unreachable Redis or Mongo only degrade the pipeline.
func BuildPipeline(ctx context.Context, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{}

	memory, store := p.buildCache(ctx, cfg, logger)

	p.TMDB = tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.TMDBLanguage,
		Timeout:   cfg.TMDBTimeout,
		Cache:     store,
		RateLimit: float64(cfg.TMDBRateLimitRPS),
		Retry: retry.Policy{
			MaxAttempts: cfg.TMDBRetryAttempts,
			Backoff:     retry.Linear(cfg.TMDBRetryBase),
			Retryable:   retry.IsConnectionReset,
		},
		Logger: logger,
	})
	if !p.TMDB.Enabled() {
		logger.Warn("tmdb api key not configured, searches will return no movies")
	}

	p.Roster = roster.Load(ctx, logger, p.rosterSources(ctx, cfg, logger)...)

	matcher, err := semantic.NewMatcher()
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}

	opts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithPersonCatalog(p.TMDB),
		search.WithTimeout(cfg.SearchTimeout),
	}
	if memory != nil {
		opts = append(opts, search.WithCacheSweeper(memory, cfg.CacheSweepInterval))
	}
	p.Service = search.NewService(
		intent.NewExtractor(p.Roster),
		retrieval.New(p.TMDB, retrieval.WithLogger(logger)),
		ranking.NewScorer(matcher),
		enrich.New(p.TMDB, enrich.WithLogger(logger)),
		p.Roster,
		opts...,
	)
	return p, nil
}

func (p *Pipeline) buildCache(ctx context.Context, cfg Config, logger *slog.Logger) (*cache.MemoryStore, cache.Store) {
	if cfg.CacheDisabled {
		logger.Info("tmdb response cache disabled")
		return nil, nil
	}
	memory := cache.NewMemoryStore(cache.WithMaxEntries(cfg.CacheMaxEntries))

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return memory, memory
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return memory, memory
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	remote := cache.NewRedisStore(client)
	if err := remote.Ping(pingCtx); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return memory, memory
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	p.closers = append(p.closers, func(context.Context) error { return client.Close() })
	return memory, cache.NewLayered(remote, memory)
}

func (p *Pipeline) rosterSources(ctx context.Context, cfg Config, logger *slog.Logger) []roster.Source {
	var sources []roster.Source
	if path := strings.TrimSpace(cfg.RosterFile); path != "" {
		sources = append(sources, roster.FileSource{Path: path})
	}
	if uri := strings.TrimSpace(cfg.MongoURI); uri != "" {
		connectCtx, cancel := context.WithTimeout(ctx, mongoTimeout)
		defer cancel()
		client, err := roster.Connect(connectCtx, uri, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Warn("mongo roster disabled", slog.String("error", err.Error()))
		} else {
			p.closers = append(p.closers, client.Disconnect)
			sources = append(sources, roster.NewMongoSource(client, cfg.MongoDatabase))
		}
	}
	return sources
}

// NewLogger builds the process logger writing to w, or stdout when w is nil.
func NewLogger(levelRaw, formatRaw string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	options := &slog.HandlerOptions{Level: ParseLogLevel(levelRaw)}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
