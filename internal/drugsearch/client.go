// Package drugsearch looks up medication names and strengths from the NLM
// RxTerms clinical tables service.
package drugsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public clinical tables endpoint.
	DefaultBaseURL = "https://clinicaltables.nlm.nih.gov"
	searchPath     = "/api/rxterms/v3/search"

	// MinQueryLength is the shortest term that triggers a lookup.
	MinQueryLength = 2
	// MaxResults caps the number of suggestions requested.
	MaxResults = 10

	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
	defaultTimeout   = 10 * time.Second
)

// ErrUpstream is returned when the lookup service fails or answers with an
// unexpected payload.
var ErrUpstream = errors.New("drugsearch: upstream lookup failed")

// Suggestion is one matching drug with its available strengths and forms.
type Suggestion struct {
	Name      string   `json:"name"`
	Strengths []string `json:"strengths"`
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	CacheTTL          time.Duration
	// Timeout bounds one shared upstream lookup, rate limit wait included.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client queries the lookup service. Identical concurrent lookups share one
// upstream call and answers are cached for a while.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	cache      *expirable.LRU[string, []Suggestion]
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a Client from opts, filling in defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      expirable.NewLRU[string, []Suggestion](size, nil, ttl),
		timeout:    timeout,
		logger:     logger.With("component", "drugsearch"),
	}
}

// Search returns suggestions for term. Terms shorter than MinQueryLength
// yield no suggestions without contacting the service.
//
// The upstream call is shared by every caller asking for the same term and
// is bounded by the client's timeout only. A caller whose ctx ends stops
// waiting without failing the others, and the lookup still fills the cache.
func (c *Client) Search(ctx context.Context, term string) ([]Suggestion, error) {
	key := strings.ToLower(strings.TrimSpace(term))
	if len([]rune(key)) < MinQueryLength {
		return nil, nil
	}
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("drug lookup %q: %w", key, err)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		suggestions, err := c.fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, suggestions)
		return suggestions, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("drug lookup %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.logger.WarnContext(ctx, "drug lookup failed", "term", key, "error", res.Err)
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "drug lookup shared with in-flight request", "term", key)
		}
		return res.Val.([]Suggestion), nil
	}
}

func (c *Client) fetch(ctx context.Context, term string) ([]Suggestion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrUpstream, limiterCause(ctx, err))
	}

	query := url.Values{}
	query.Set("terms", term)
	query.Set("ef", "STRENGTHS_AND_FORMS")
	query.Set("maxList", fmt.Sprint(MaxResults))
	endpoint := c.baseURL + searchPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return decodeSuggestions(resp.Body)
}

// limiterCause maps a limiter rejection to the context error it stands for.
// Wait refuses up front when the reservation would outlast ctx's deadline,
// which is a timeout even though ctx has not expired yet.
func limiterCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	return err
}

// decodeSuggestions reads the positional response array
// [total, names, {STRENGTHS_AND_FORMS: [[...], ...]}, ...].
func decodeSuggestions(r io.Reader) ([]Suggestion, error) {
	var payload []json.RawMessage
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: short response", ErrUpstream)
	}

	var names []string
	if err := json.Unmarshal(payload[1], &names); err != nil {
		return nil, fmt.Errorf("%w: decode names: %v", ErrUpstream, err)
	}

	var extra struct {
		StrengthsAndForms [][]string `json:"STRENGTHS_AND_FORMS"`
	}
	if len(payload) > 2 {
		if err := json.Unmarshal(payload[2], &extra); err != nil {
			return nil, fmt.Errorf("%w: decode strengths: %v", ErrUpstream, err)
		}
	}

	suggestions := make([]Suggestion, 0, len(names))
	for i, name := range names {
		s := Suggestion{Name: name, Strengths: []string{}}
		if i < len(extra.StrengthsAndForms) && extra.StrengthsAndForms[i] != nil {
			s.Strengths = extra.StrengthsAndForms[i]
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}
