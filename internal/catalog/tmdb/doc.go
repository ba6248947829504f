// Package tmdb provides the TMDB API client used to resolve proposed titles
// and to source fallback picks.
//
// It exposes movie, TV and multi search, per-region watch providers, and the
// trending lists. Every call is routed through an optional gobreaker circuit
// breaker and recorded in the upstream latency histogram. Failures are tagged
// with the services error markers so callers can classify them (404 becomes
// ErrNotFound, other statuses ErrUpstream).
package tmdb
