package vibe_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"cinespin/internal/logging"
	"cinespin/internal/testsupport"
	"cinespin/internal/vibe"
)

var safety = []string{"Inception", "The Dark Knight"}

func TestProposerParsesWrappedList(t *testing.T) {
	completer := testsupport.NewFakeCompleter("Here you go:\n```json\n[\"Alien\", \"Aliens\", \"alien\", \"  \", \"Alien 3\"]\n```")
	proposer := vibe.NewProposer(completer, 10, safety, logging.NewNop())

	proposal, err := proposer.Propose(context.Background(), "alien franchise")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if proposal.Source != vibe.SourceLLM {
		t.Fatalf("expected llm source, got %q", proposal.Source)
	}
	if !slices.Equal(proposal.Candidates, []string{"Alien", "Aliens", "Alien 3"}) {
		t.Fatalf("unexpected candidates %v", proposal.Candidates)
	}
}

func TestProposerCapsCandidateCount(t *testing.T) {
	completer := testsupport.NewFakeCompleter(`["a","b","c","d","e"]`)
	proposal, err := vibe.NewProposer(completer, 3, safety, logging.NewNop()).Propose(context.Background(), "x")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposal.Candidates) != 3 {
		t.Fatalf("expected three candidates, got %v", proposal.Candidates)
	}
}

func TestProposerSubstitutesSafetyList(t *testing.T) {
	cases := map[string]*testsupport.FakeCompleter{
		"call error":   testsupport.NewFailingCompleter(errors.New("boom")),
		"no list":      testsupport.NewFakeCompleter("I recommend Inception."),
		"empty list":   testsupport.NewFakeCompleter("[]"),
		"numbers only": testsupport.NewFakeCompleter("[1, 2, 3]"),
	}
	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			proposal, err := vibe.NewProposer(completer, 10, safety, logging.NewNop()).Propose(context.Background(), "x")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if proposal.Source != vibe.SourceSafetyList || proposal.Cause == nil {
				t.Fatalf("expected safety substitution, got %+v", proposal)
			}
			if !slices.Equal(proposal.Candidates, safety) {
				t.Fatalf("unexpected safety candidates %v", proposal.Candidates)
			}
		})
	}
}

func TestProposerReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	completer := testsupport.NewFailingCompleter(context.Canceled)

	_, err := vibe.NewProposer(completer, 10, safety, logging.NewNop()).Propose(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestProposerDefaultsSafetyList(t *testing.T) {
	proposer := vibe.NewProposer(testsupport.NewFakeCompleter(""), 10, nil, nil)
	if got := proposer.SafetyCandidates(); len(got) != 5 {
		t.Fatalf("expected default safety list, got %v", got)
	}
}
