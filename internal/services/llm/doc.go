// Package llm provides an OpenRouter chat client used to propose titles for a
// viewer's free-text request.
//
// # Entry Points
//
// NewClient: construct a client from Config (ConfigFrom maps the [llm] section).
// Client.Complete: free-form completion; the caller extracts structure itself.
// Client.CompleteJSON: completion constrained to a JSON object.
// Client.HealthCheck: verify API key and model availability.
// ExtractList: pull the first JSON array of strings out of model prose.
// DecodeLLMJSON: decode an object payload tolerating code fences and prose.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty content, and network
// timeouts with exponential backoff (base 1s, max 10s). Retry-After headers are
// honoured up to the max delay. Context cancellation aborts retries
// immediately, which is how callers enforce a wall-clock budget.
package llm
