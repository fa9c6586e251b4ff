package mock

import (
	"context"
	"fmt"
)

// MockSynthesizer is a test double for ai.Synthesizer.
// It allows custom behavior injection via function fields.
type MockSynthesizer struct {
	// SynthesizeFunc is called by Synthesize if set.
	// If nil, uses default canned-answer behavior.
	SynthesizeFunc func(ctx context.Context, question string, contextBlocks []string) (string, error)

	callCount int
}

// NewMockSynthesizer creates a mock synthesizer with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// Synthesize returns a canned answer referencing the context size.
// Tests asserting the no-grounding short circuit check that CallCount
// stays zero.
func (m *MockSynthesizer) Synthesize(ctx context.Context, question string, contextBlocks []string) (string, error) {
	m.callCount++

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, question, contextBlocks)
	}

	return fmt.Sprintf("answer to %q from %d context blocks", question, len(contextBlocks)), nil
}

// CallCount returns the number of times Synthesize was called.
func (m *MockSynthesizer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockSynthesizer) Reset() {
	m.callCount = 0
	m.SynthesizeFunc = nil
}
