package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"cinespin/internal/config"
	"cinespin/internal/metrics"
	"cinespin/internal/services"
)

// Media types as reported by TMDB.
const (
	MediaMovie  = "movie"
	MediaTV     = "tv"
	MediaPerson = "person"
)

// Result represents a single TMDB search or trending entry.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	MediaType    string  `json:"media_type"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
}

// DisplayTitle returns the movie title or series name.
func (r Result) DisplayTitle() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return r.Name
}

// Released returns the release or first-air date.
func (r Result) Released() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

// HasArtwork reports whether the entry carries both poster and backdrop.
func (r Result) HasArtwork() bool {
	return r.PosterPath != "" && r.BackdropPath != ""
}

// Response models the TMDB paginated list response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Provider is a single watch provider offer.
type Provider struct {
	ID              int64  `json:"provider_id"`
	Name            string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

// ProviderSet lists the offers for one region.
type ProviderSet struct {
	Link     string     `json:"link"`
	Flatrate []Provider `json:"flatrate"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

// Empty reports whether no offer of any kind exists.
func (p ProviderSet) Empty() bool {
	return len(p.Flatrate) == 0 && len(p.Rent) == 0 && len(p.Buy) == 0
}

// WatchProviders models /{movie|tv}/{id}/watch/providers.
type WatchProviders struct {
	ID      int64                  `json:"id"`
	Results map[string]ProviderSet `json:"results"`
}

// Region returns the provider set for region and whether TMDB listed it.
func (w *WatchProviders) Region(region string) (ProviderSet, bool) {
	if w == nil || w.Results == nil {
		return ProviderSet{}, false
	}
	set, ok := w.Results[strings.ToUpper(strings.TrimSpace(region))]
	return set, ok
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	breaker    *Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBreaker routes every request through the supplied circuit breaker.
func WithBreaker(breaker *Breaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client with a circuit breaker from the [tmdb] section.
func NewFromConfig(cfg config.TMDB, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second}),
		WithBreaker(NewBreaker(BreakerSettings{
			Name:         "tmdb-api",
			MinRequests:  uint32(cfg.BreakerMinRequests),
			FailureRatio: cfg.BreakerFailureRatio,
			OpenTimeout:  time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		})),
	}
	return New(cfg.APIKey, cfg.BaseURL, cfg.Language, append(base, opts...)...)
}

// SearchMovie searches TMDB movies for the supplied title.
func (c *Client) SearchMovie(ctx context.Context, query string) (*Response, error) {
	resp, err := c.search(ctx, "/search/movie", "movie search", query)
	if err != nil {
		return nil, err
	}
	stampMediaType(resp, MediaMovie)
	return resp, nil
}

// SearchTV searches TMDB series for the supplied title.
func (c *Client) SearchTV(ctx context.Context, query string) (*Response, error) {
	resp, err := c.search(ctx, "/search/tv", "tv search", query)
	if err != nil {
		return nil, err
	}
	stampMediaType(resp, MediaTV)
	return resp, nil
}

// SearchMulti searches movies, series and people in one call.
func (c *Client) SearchMulti(ctx context.Context, query string) (*Response, error) {
	return c.search(ctx, "/search/multi", "multi search", query)
}

// Search dispatches to the endpoint named by mode ("multi", "movie" or "tv").
func (c *Client) Search(ctx context.Context, query, mode string) (*Response, error) {
	switch mode {
	case "movie":
		return c.SearchMovie(ctx, query)
	case "tv":
		return c.SearchTV(ctx, query)
	default:
		return c.SearchMulti(ctx, query)
	}
}

// WatchProviders fetches per-region streaming, rental and purchase offers.
func (c *Client) WatchProviders(ctx context.Context, mediaType string, id int64) (*WatchProviders, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	if mediaType != MediaMovie && mediaType != MediaTV {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
	var payload WatchProviders
	path := fmt.Sprintf("/%s/%d/watch/providers", mediaType, id)
	if err := c.getJSON(ctx, "watch providers", path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Trending fetches the trending list for media ("all", "movie", "tv") over
// window ("day", "week").
func (c *Client) Trending(ctx context.Context, media, window string) (*Response, error) {
	switch media {
	case "all", MediaMovie, MediaTV:
	default:
		return nil, fmt.Errorf("unsupported trending media %q", media)
	}
	switch window {
	case "day", "week":
	default:
		return nil, fmt.Errorf("unsupported trending window %q", window)
	}
	var payload Response
	if err := c.getJSON(ctx, "trending", fmt.Sprintf("/trending/%s/%s", media, window), nil, &payload); err != nil {
		return nil, err
	}
	if media != "all" {
		stampMediaType(&payload, media)
	}
	return &payload, nil
}

func (c *Client) search(ctx context.Context, path, op, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	var payload Response
	if err := c.getJSON(ctx, op, path, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, target any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	requestStart := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, op, endpoint.String())
	})
	metrics.RecordUpstream("tmdb", op, time.Since(requestStart), err)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return services.Wrap(services.ErrUpstream, "tmdb", op, "decode response", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrTransient
		if ctx.Err() != nil {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "tmdb", op, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		marker := services.ErrUpstream
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "tmdb", op, fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tmdb", op, "read body", err)
	}
	return body, nil
}

func stampMediaType(resp *Response, mediaType string) {
	if resp == nil {
		return
	}
	for i := range resp.Results {
		if resp.Results[i].MediaType == "" {
			resp.Results[i].MediaType = mediaType
		}
	}
}

// ImageURL joins an image base URL, a size such as "w500", and a TMDB path.
// It returns "" when path is empty.
func ImageURL(base, size, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + "/" + strings.Trim(size, "/") + path
}
