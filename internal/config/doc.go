// Package config loads, normalizes, and validates cinespin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and OPENROUTER_API_KEY. The Config type centralizes every knob
// the resolver, cache, HTTP API and CLI need so credentials and budgets are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// canonical region codes, expanded cache paths, and clear validation errors.
package config
