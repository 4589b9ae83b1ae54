package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"findingmovie/searchservice/internal/cache"
	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/metrics"
	"findingmovie/searchservice/internal/retry"
)

const (
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultLanguage  = "en-US"
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 35
	maxBodyBytes     = 2 << 20

	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second

	searchTTL      = 30 * time.Minute
	personHitTTL   = 24 * time.Hour
	personMissTTL  = 5 * time.Minute
	keywordHitTTL  = time.Hour
	keywordMissTTL = 5 * time.Minute
	detailsTTL     = 6 * time.Hour
)

const (
	kindSearchMovie   = "search_movie"
	kindDiscover      = "discover"
	kindSearchPerson  = "search_person"
	kindSearchKeyword = "search_keyword"
	kindDetails       = "movie_details"
)

// errNotSent marks a call that never reached TMDB, so the breaker does not
// count it against the upstream.
var errNotSent = errors.New("tmdb request not sent")

// Client is a cached, retrying, rate-limited view of the TMDB v3 API.
// Public lookups never return errors: failures are logged and counted, and
// the caller sees an empty list or nil.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	timeout  time.Duration
	cache    cache.Store
	retry    retry.Policy
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	group    singleflight.Group
	logger   *slog.Logger
}

type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	// Client overrides the default otelhttp-instrumented client.
	Client  *http.Client
	Timeout time.Duration
	// Cache may be nil, in which case every call goes upstream.
	Cache cache.Store
	// Retry defaults to retry.DefaultPolicy when MaxAttempts is zero.
	Retry retry.Policy
	// RateLimit is requests per second. Zero uses the default, negative disables.
	RateLimit       float64
	Burst           int
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Logger          *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	policy := cfg.Retry
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}

	limit := rate.Limit(cfg.RateLimit)
	switch {
	case cfg.RateLimit == 0:
		limit = defaultRateLimit
	case cfg.RateLimit < 0:
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     cooldown,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotSent) || errors.Is(err, context.Canceled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("tmdb circuit state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				metrics.UpstreamAvailable.Set(0)
			} else {
				metrics.UpstreamAvailable.Set(1)
			}
		},
	})
	metrics.UpstreamAvailable.Set(1)

	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		http:     httpClient,
		timeout:  timeout,
		cache:    cfg.Cache,
		retry:    policy,
		limiter:  rate.NewLimiter(limit, burst),
		breaker:  breaker,
		logger:   logger,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// SearchMovies looks a title up via /search/movie.
func (c *Client) SearchMovies(ctx context.Context, title string) []domain.CandidateMovie {
	title = strings.TrimSpace(title)
	if !c.Enabled() || title == "" {
		return []domain.CandidateMovie{}
	}
	req := request{
		kind: kindSearchMovie,
		path: "/search/movie",
		params: url.Values{
			"query":         {title},
			"include_adult": {"false"},
			"page":          {"1"},
		},
	}
	movies, err := fetch(ctx, c, req, parseMovies, func([]domain.CandidateMovie) time.Duration { return searchTTL })
	if err != nil {
		c.logFailure(req.kind, err)
		return []domain.CandidateMovie{}
	}
	return nonNilMovies(movies)
}

// Discover lists movies by popularity, narrowed by the filter. An empty
// filter yields the unconstrained popular list.
func (c *Client) Discover(ctx context.Context, filter domain.DiscoverFilter) []domain.CandidateMovie {
	if !c.Enabled() {
		return []domain.CandidateMovie{}
	}
	req := request{
		kind:   kindDiscover,
		path:   "/discover/movie",
		params: discoverParams(filter),
	}
	movies, err := fetch(ctx, c, req, parseMovies, func([]domain.CandidateMovie) time.Duration { return searchTTL })
	if err != nil {
		c.logFailure(req.kind, err)
		return []domain.CandidateMovie{}
	}
	return nonNilMovies(movies)
}

// SearchPerson returns the top /search/person hit, or nil.
func (c *Client) SearchPerson(ctx context.Context, name string) *domain.Person {
	name = strings.TrimSpace(name)
	if !c.Enabled() || name == "" {
		return nil
	}
	req := request{
		kind: kindSearchPerson,
		path: "/search/person",
		params: url.Values{
			"query":         {name},
			"include_adult": {"false"},
		},
	}
	person, err := fetch(ctx, c, req, parsePerson, func(p *domain.Person) time.Duration {
		if p == nil {
			return personMissTTL
		}
		return personHitTTL
	})
	if err != nil {
		c.logFailure(req.kind, err)
		return nil
	}
	return person
}

// SearchKeyword returns the top /search/keyword hit, or nil.
func (c *Client) SearchKeyword(ctx context.Context, name string) *domain.Keyword {
	name = strings.TrimSpace(name)
	if !c.Enabled() || name == "" {
		return nil
	}
	req := request{
		kind:   kindSearchKeyword,
		path:   "/search/keyword",
		params: url.Values{"query": {name}},
	}
	keyword, err := fetch(ctx, c, req, parseKeyword, func(k *domain.Keyword) time.Duration {
		if k == nil {
			return keywordMissTTL
		}
		return keywordHitTTL
	})
	if err != nil {
		c.logFailure(req.kind, err)
		return nil
	}
	return keyword
}

// MovieDetails fetches genres, credits, keywords and videos in one call.
func (c *Client) MovieDetails(ctx context.Context, id int) *domain.MovieDetails {
	if !c.Enabled() || id <= 0 {
		return nil
	}
	req := request{
		kind:   kindDetails,
		path:   "/movie/" + strconv.Itoa(id),
		params: url.Values{"append_to_response": {"videos,credits,keywords"}},
	}
	details, err := fetch(ctx, c, req, parseDetails, func(*domain.MovieDetails) time.Duration { return detailsTTL })
	if err != nil {
		c.logFailure(req.kind, err)
		return nil
	}
	return details
}

type request struct {
	kind   string
	path   string
	params url.Values
}

// fetch serves req from the cache, or collapses concurrent identical misses
// into one upstream call whose parsed result is cached for ttl(result).
// A 404 yields the zero value and is not cached. The shared call is detached
// from any single caller and bounded by the client timeout; each caller
// stops waiting when its own ctx ends.
func fetch[T any](ctx context.Context, c *Client, req request, parse func([]byte) (T, error), ttl func(T) time.Duration) (T, error) {
	var zero T
	key := cache.Key(req.kind+":"+req.path, req.params)

	if data, ok := c.lookup(ctx, req.kind, key); ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		c.logger.Debug("tmdb cache entry undecodable", slog.String("key", key))
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		body, err := c.call(callCtx, req)
		if err != nil {
			return zero, err
		}
		if body == nil {
			return zero, nil
		}
		value, err := parse(body)
		if err != nil {
			return zero, fmt.Errorf("decode %s: %w", req.kind, err)
		}
		c.store(callCtx, key, value, ttl(value))
		return value, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Client) lookup(ctx context.Context, kind, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Debug("tmdb cache read failed", slog.String("error", err.Error()))
	}
	if err != nil || !found {
		metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues(kind).Inc()
	return data, true
}

func (c *Client) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.cache == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Debug("tmdb cache write failed", slog.String("error", err.Error()))
	}
}

// call runs one logical upstream request through the breaker and the retry
// policy. A nil body with a nil error means the resource does not exist.
func (c *Client) call(ctx context.Context, req request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		var body []byte
		attempts, err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
			var err error
			body, err = c.get(ctx, req)
			return err
		})
		if attempts > 1 {
			metrics.UpstreamRetriesTotal.WithLabelValues(req.kind).Add(float64(attempts - 1))
		}
		return body, err
	})
	metrics.UpstreamRequestDuration.WithLabelValues(req.kind).Observe(time.Since(started).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(req.kind, upstreamStatus(body, err)).Inc()
	return body, err
}

func (c *Client) get(ctx context.Context, req request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotSent, err)
	}

	params := make(url.Values, len(req.params)+2)
	for name, values := range req.params {
		params[name] = values
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+req.path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = []byte{}
	}
	return body, nil
}

func (c *Client) logFailure(kind string, err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Debug("tmdb circuit open, skipping call", slog.String("endpoint", kind))
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, errNotSent) {
		c.logger.Debug("tmdb call not sent", slog.String("endpoint", kind), slog.String("error", err.Error()))
		return
	}
	c.logger.Warn("tmdb request failed",
		slog.String("endpoint", kind),
		slog.String("error", err.Error()),
	)
}

func upstreamStatus(body []byte, err error) string {
	switch {
	case err == nil && body == nil:
		return "not_found"
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

func discoverParams(filter domain.DiscoverFilter) url.Values {
	params := url.Values{
		"sort_by":       {"popularity.desc"},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	if ids := genreIDs(filter.Genres); len(ids) > 0 {
		params.Set("with_genres", joinInts(ids, ","))
	}
	switch {
	case filter.YearFrom > 0 && filter.YearFrom == filter.YearTo:
		params.Set("primary_release_year", strconv.Itoa(filter.YearFrom))
	default:
		if filter.YearFrom > 0 {
			params.Set("primary_release_date.gte", fmt.Sprintf("%04d-01-01", filter.YearFrom))
		}
		if filter.YearTo > 0 {
			params.Set("primary_release_date.lte", fmt.Sprintf("%04d-12-31", filter.YearTo))
		}
	}
	if len(filter.KeywordIDs) > 0 {
		params.Set("with_keywords", joinInts(sortedUnique(filter.KeywordIDs), "|"))
	}
	if len(filter.CastIDs) > 0 {
		params.Set("with_cast", joinInts(sortedUnique(filter.CastIDs), ","))
	}
	return params
}

func sortedUnique(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

func nonNilMovies(movies []domain.CandidateMovie) []domain.CandidateMovie {
	if movies == nil {
		return []domain.CandidateMovie{}
	}
	return movies
}
