// Package httpapi serves the resolver over HTTP.
//
// Routes: POST /api/analyze-vibe resolves a vibe into {movie, aiContext};
// GET /api/trending-image redirects to artwork for the current top trending
// movie; /api/cache lists or clears cached proposals behind an optional
// bearer token; /healthz and /metrics serve probes and Prometheus metrics.
// Every request gets an X-Request-ID that flows into the logs.
package httpapi
