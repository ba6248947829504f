package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"cinespin/internal/config"
	"cinespin/internal/httpapi"
	"cinespin/internal/logging"
	"cinespin/internal/services"
	"cinespin/internal/testsupport"
	"cinespin/internal/vibe"
	"cinespin/internal/vibecache"
)

type resolverStub struct {
	result vibe.Result
	err    error
	got    []vibe.Request
}

func (r *resolverStub) Resolve(_ context.Context, req vibe.Request) (vibe.Result, error) {
	r.got = append(r.got, req)
	return r.result, r.err
}

func newServer(t *testing.T, deps httpapi.Deps, opts ...testsupport.ConfigOption) (*httpapi.Server, http.Handler) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	srv := httpapi.New(cfg, deps)
	t.Cleanup(srv.Close)
	return srv, srv.Handler()
}

func do(t *testing.T, handler http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeVibeReturnsMovieAndContext(t *testing.T) {
	stub := &resolverStub{result: vibe.Result{
		Item:              vibe.CatalogItem{ID: 745, Title: "The Sixth Sense", MediaKind: vibe.KindMovie, Available: true},
		Strategy:          vibe.StrategyProposerValidator,
		Reason:            "available",
		CandidatesChecked: 2,
		Source:            vibe.SourceLLM,
	}}
	_, handler := newServer(t, httpapi.Deps{Resolver: stub})

	rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"Scary 90s movie","region":"US"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Movie struct {
			Title string `json:"title"`
		} `json:"movie"`
		AIContext struct {
			Strategy          string `json:"strategy"`
			CandidatesChecked int    `json:"candidatesChecked"`
			Source            string `json:"source"`
		} `json:"aiContext"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Movie.Title != "The Sixth Sense" || resp.AIContext.Strategy != "proposer-validator" || resp.AIContext.CandidatesChecked != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(stub.got) != 1 || stub.got[0].Text != "Scary 90s movie" || stub.got[0].Region != "US" {
		t.Fatalf("unexpected resolver input %+v", stub.got)
	}
	if rec.Header().Get(httpapi.RequestIDHeader) == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestAnalyzeVibeErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		body     string
		err      error
		wantCode int
		wantBody string
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"bad json", http.MethodPost, "{", nil, http.StatusBadRequest, "invalid_request"},
		{"validation", http.MethodPost, `{"prompt":""}`, services.Wrap(services.ErrValidation, "vibe", "resolve", "prompt cannot be empty", nil), http.StatusBadRequest, "prompt cannot be empty"},
		{"fatal", http.MethodPost, `{"prompt":"x"}`, &vibe.FatalError{Code: vibe.CodeTrendingUnavailable, Err: errors.New("down")}, http.StatusInternalServerError, "trending_unavailable"},
		{"caller gone", http.MethodPost, `{"prompt":"x"}`, context.Canceled, services.StatusClientClosedRequest, "cancelled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, handler := newServer(t, httpapi.Deps{Resolver: &resolverStub{err: tc.err}})
			rec := do(t, handler, tc.method, "/api/analyze-vibe", tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("expected body to contain %q, got %s", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAnalyzeVibeEndToEnd(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddTitle("Heat", 949, "movie", "DE")
	catalog.SetTrending(testsupport.TrendingMovie(1, "Trending"))
	cfg := testsupport.NewConfig(t)
	resolver, err := vibe.New(cfg, vibe.Dependencies{
		Catalog:   catalog,
		Completer: testsupport.NewFakeCompleter(`["Heat"]`),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("vibe.New: %v", err)
	}
	srv := httpapi.New(cfg, httpapi.Deps{Resolver: resolver, Trending: catalog, Logger: logging.NewNop()})
	t.Cleanup(srv.Close)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/analyze-vibe", `{"prompt":"heist","region":"deu"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"title":"Heat"`) {
		t.Fatalf("expected Heat in response, got %s", rec.Body.String())
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	_, handler := newServer(t, httpapi.Deps{})
	rec := do(t, handler, http.MethodGet, "/healthz", "", httpapi.RequestIDHeader, "req-123")
	if got := rec.Header().Get(httpapi.RequestIDHeader); got != "req-123" {
		t.Fatalf("expected inbound request id echoed, got %q", got)
	}
}

func TestAnalyzeVibeRateLimited(t *testing.T) {
	stub := &resolverStub{result: vibe.Result{Item: vibe.CatalogItem{Title: "Heat"}}}
	_, handler := newServer(t, httpapi.Deps{Resolver: stub}, testsupport.WithRateLimit(0.001, 2))

	for i := range 2 {
		if rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	stub := &resolverStub{result: vibe.Result{Item: vibe.CatalogItem{Title: "Heat"}}}
	_, handler := newServer(t, httpapi.Deps{Resolver: stub}, testsupport.WithRateLimit(0.001, 1))

	if rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`, "X-Forwarded-For", "203.0.113.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`, "X-Forwarded-For", "203.0.113.2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For must not reset the limit, got %d", rec.Code)
	}
}

func TestRateLimitUsesForwardedForBehindTrustedProxy(t *testing.T) {
	stub := &resolverStub{result: vibe.Result{Item: vibe.CatalogItem{Title: "Heat"}}}
	_, handler := newServer(t, httpapi.Deps{Resolver: stub}, testsupport.WithRateLimit(0.001, 1), testsupport.WithTrustedProxy())

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		if rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`, "X-Forwarded-For", client); rec.Code != http.StatusOK {
			t.Fatalf("client %s: expected 200, got %d", client, rec.Code)
		}
	}
	rec := do(t, handler, http.MethodPost, "/api/analyze-vibe", `{"prompt":"x"}`, "X-Forwarded-For", "203.0.113.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeat client, got %d", rec.Code)
	}
}

func TestTrendingImageRedirects(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.SetTrending(testsupport.TrendingMovie(1, "Top"))
	_, handler := newServer(t, httpapi.Deps{Trending: catalog})

	rec := do(t, handler, http.MethodGet, "/api/trending-image", "")
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://image.tmdb.org/t/p/w1280/trending-backdrop.jpg" {
		t.Fatalf("unexpected location %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "s-maxage=3600, stale-while-revalidate" {
		t.Fatalf("unexpected cache-control %q", got)
	}
}

func TestTrendingImageFallsBackOnFailure(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.FailTrending(testsupport.ErrCatalogDown)
	_, handler := newServer(t, httpapi.Deps{Trending: catalog})

	rec := do(t, handler, http.MethodGet, "/api/trending-image", "")
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != config.Default().Server.FallbackImageURL {
		t.Fatalf("expected fallback image, got %q", got)
	}
}

func TestCacheRoutesRequireToken(t *testing.T) {
	cache := vibecache.NewMemory(vibecache.Options{})
	testsupport.SeedCache(t, cache, "US", "heist", "Heat", "Thief")
	testsupport.SeedCache(t, cache, "GB", "cosy", "Paddington")
	_, handler := newServer(t, httpapi.Deps{Cache: cache}, testsupport.WithAPIToken("secret"))

	if rec := do(t, handler, http.MethodGet, "/api/cache", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/api/cache", "", "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	rec := do(t, handler, http.MethodGet, "/api/cache", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Backend string `json:"backend"`
		Count   int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Backend != "memory" || list.Count != 2 {
		t.Fatalf("unexpected listing %+v", list)
	}

	rec = do(t, handler, http.MethodDelete, "/api/cache/us:heist", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on remove, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, handler, http.MethodDelete, "/api/cache/us:heist", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second remove, got %d", rec.Code)
	}

	rec = do(t, handler, http.MethodDelete, "/api/cache", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Fatalf("unexpected clear response %d %s", rec.Code, rec.Body.String())
	}
	if n, _ := cache.Len(context.Background()); n != 0 {
		t.Fatalf("expected empty cache, got %d", n)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, handler := newServer(t, httpapi.Deps{ProposerConfigured: true})

	rec := do(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"proposerConfigured":true`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "cinespin_api_requests_total") {
		t.Fatalf("expected prometheus exposition, got %d", rec.Code)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	_, handler := newServer(t, httpapi.Deps{})
	rec := do(t, handler, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("unexpected 404 response %d %s", rec.Code, rec.Body.String())
	}
}
