package testsupport

import (
	"context"
	"sync"
)

// FakeCompleter is a scripted language model.
type FakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	block    chan struct{}
	calls    int
	prompts  []string
}

// NewFakeCompleter answers every call with response.
func NewFakeCompleter(response string) *FakeCompleter {
	return &FakeCompleter{response: response}
}

// NewFailingCompleter fails every call with err.
func NewFailingCompleter(err error) *FakeCompleter {
	return &FakeCompleter{err: err}
}

// NewHangingCompleter never answers and ignores cancellation until Release
// is called.
func NewHangingCompleter() *FakeCompleter {
	return &FakeCompleter{block: make(chan struct{})}
}

// Complete records the call and returns the scripted answer.
func (f *FakeCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.response, f.err
}

// Release unblocks a hanging completer.
func (f *FakeCompleter) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.block != nil {
		close(f.block)
		f.block = nil
	}
}

// Calls returns how many completions were requested.
func (f *FakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Prompts returns the user prompts received.
func (f *FakeCompleter) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
