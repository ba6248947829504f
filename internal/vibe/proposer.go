package vibe

import (
	"context"
	"log/slog"
	"strings"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/services/llm"
)

// Proposal is an ordered candidate list plus where it came from.
type Proposal struct {
	Candidates []string
	// Source is SourceLLM or SourceSafetyList.
	Source string
	// Cause explains a safety-list substitution.
	Cause error
}

// Proposer turns free text into candidate titles via a language model.
// Model errors and unusable output yield the safety list instead of an error.
type Proposer struct {
	completer Completer
	count     int
	safety    []string
	logger    *slog.Logger
}

// NewProposer returns a proposer asking for count titles. An empty safety
// list falls back to config.DefaultSafetyCandidates.
func NewProposer(completer Completer, count int, safety []string, logger *slog.Logger) *Proposer {
	if count <= 0 {
		count = 10
	}
	if len(safety) == 0 {
		safety = config.DefaultSafetyCandidates()
	}
	return &Proposer{
		completer: completer,
		count:     count,
		safety:    append([]string(nil), safety...),
		logger:    logging.NewComponentLogger(logger, "proposer"),
	}
}

// SafetyCandidates returns a copy of the safety list.
func (p *Proposer) SafetyCandidates() []string {
	return append([]string(nil), p.safety...)
}

// Propose asks the model for candidates. The only error returned is the
// context's own, so callers can tell an exhausted budget from a bad answer.
func (p *Proposer) Propose(ctx context.Context, text string) (Proposal, error) {
	system, user := buildProposerPrompts(text, p.count)
	content, err := p.completer.Complete(ctx, system, user)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Proposal{}, ctxErr
	}
	if err != nil {
		logging.WarnWithContext(p.logger, "language model call failed; using safety list", "proposer_call_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm.api_key, llm.model and OpenRouter status"),
			logging.String(logging.FieldImpact, "candidates come from the safety list"),
		)
		return p.safetyProposal(err), nil
	}

	titles, err := llm.ExtractList(content)
	if err != nil {
		logging.WarnWithContext(p.logger, "language model output had no title list; using safety list", "proposer_malformed_output",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "try a different llm.model if this repeats"),
			logging.String(logging.FieldImpact, "candidates come from the safety list"),
		)
		return p.safetyProposal(err), nil
	}
	titles = dedupeTitles(titles, p.count)
	p.logger.Debug("proposer returned candidates", logging.Int("count", len(titles)))
	return Proposal{Candidates: titles, Source: SourceLLM}, nil
}

func (p *Proposer) safetyProposal(cause error) Proposal {
	return Proposal{Candidates: p.SafetyCandidates(), Source: SourceSafetyList, Cause: cause}
}

// dedupeTitles drops case-insensitive repeats and caps the list at limit.
func dedupeTitles(titles []string, limit int) []string {
	out := make([]string, 0, len(titles))
	seen := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		key := strings.ToLower(strings.TrimSpace(title))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(title))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
