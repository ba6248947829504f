package vibe

import (
	"fmt"
	"strings"
)

// proposerSystemPrompt instructs the model to answer with a bare JSON array of
// titles. %d is the desired candidate count.
const proposerSystemPrompt = `You are a film and television expert helping someone pick what to watch.

Reply with ONLY a JSON array of exact titles, for example ["Title One", "Title Two"]. No commentary, no numbering, no markdown.

Rules:
- If the request describes a specific plot, scene, quote or actor performance, the FIRST title must be that exact work.
- If the request names a franchise, list every known entry of the franchise.
- If the request is a mood, genre or vibe rather than a specific work, return %d varied matches.
- Use the official release title, not a translation or a description.
- Return at most %d titles.`

func buildProposerPrompts(text string, count int) (string, string) {
	system := fmt.Sprintf(proposerSystemPrompt, count, count)
	user := "Request: " + strings.TrimSpace(text)
	return system, user
}
