// Package vibe resolves a free-text vibe into one watchable catalog item.
//
// A Resolver looks the normalized (region, text) key up in a proposal cache,
// asks the Proposer for candidate titles on a miss, shuffles them, and hands
// them to the Validator, which checks catalog presence and regional
// availability in small concurrent batches and stops at the first hit. When
// nothing validates, or the proposer misses its budget, the Fallback picks a
// random entry from the top of the trending list. Every run ends in exactly
// one Result or a *FatalError; the only fatal conditions are an unreachable
// trending source and missing configuration.
package vibe
