// Package vibecache stores LLM proposals keyed by normalized (region, text)
// so repeated vibes skip the proposer.
//
// Three backends share one contract: Memory is an in-process LRU, File keeps
// a JSON document guarded by an advisory flock so the CLI and the daemon can
// share it, and SQLite persists entries with least-recently-used trimming.
// Only proposer output is cached; validated results and safety-list
// substitutions never are.
package vibecache
