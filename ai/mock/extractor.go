package mock

import (
	"context"
	"encoding/json"
)

// MockFieldExtractor is a test double for ai.FieldExtractor.
// It allows custom behavior injection via function fields.
type MockFieldExtractor struct {
	// ExtractFieldsFunc is called by ExtractFields if set.
	// If nil, uses default passthrough behavior.
	ExtractFieldsFunc func(ctx context.Context, genericJSON []byte, sourceID string) ([]byte, error)

	callCount int
}

// NewMockFieldExtractor creates a mock field extractor with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockFieldExtractor() *MockFieldExtractor {
	return &MockFieldExtractor{}
}

// ExtractFields returns a minimal candidate document.
// Default behavior: passes the generic JSON fields through when the input
// is already a JSON object, and stamps the documentId. This lets pipeline
// tests feed ready-made candidates without a custom function.
func (m *MockFieldExtractor) ExtractFields(ctx context.Context, genericJSON []byte, sourceID string) ([]byte, error) {
	m.callCount++

	if m.ExtractFieldsFunc != nil {
		return m.ExtractFieldsFunc(ctx, genericJSON, sourceID)
	}

	var candidate map[string]any
	if err := json.Unmarshal(genericJSON, &candidate); err != nil {
		candidate = map[string]any{}
	}
	candidate["documentId"] = sourceID
	return json.Marshal(candidate)
}

// CallCount returns the number of times ExtractFields was called.
func (m *MockFieldExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockFieldExtractor) Reset() {
	m.callCount = 0
	m.ExtractFieldsFunc = nil
}
