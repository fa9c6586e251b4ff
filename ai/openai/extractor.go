// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/utilidoc/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// FieldExtractor implements ai.FieldExtractor using OpenAI-compatible chat APIs.
type FieldExtractor struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// newFieldExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newFieldExtractor(config *ai.Config) (*FieldExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for extraction.
	// Token "none" works for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.ExtractionModel),
	)
	if err != nil {
		return nil, err
	}

	return &FieldExtractor{
		client:  client,
		timeout: config.RequestTimeout,
		logger:  slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewFieldExtractor creates a new field extractor using the provided configuration.
//
// Returns ai.FieldExtractor interface to enforce abstraction.
func NewFieldExtractor(config *ai.Config) (ai.FieldExtractor, error) {
	return newFieldExtractor(config)
}

// ExtractFields produces a structured candidate JSON document from the
// generic parsed content of one source document. The model output is
// validated only for well-formed JSON here; schema validation happens in
// the core package.
func (e *FieldExtractor) ExtractFields(ctx context.Context, genericJSON []byte, sourceID string) ([]byte, error) {
	systemPrompt := buildExtractionPrompt(sourceID)
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(string(genericJSON)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		// The timeout bounds each attempt separately.
		callCtx, cancel := boundedContext(ctx, e.timeout)
		response, err := e.client.GenerateContent(callCtx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		cancel()
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", ai.ErrExtraction, err)
		}

		if len(response.Choices) < 1 {
			e.logger.Warn("no choices returned from model", "sourceId", sourceID)
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}

		responseText := stripCodeFences(response.Choices[0].Content)

		if !json.Valid([]byte(responseText)) {
			lastErr = fmt.Errorf("model returned invalid JSON")
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"sourceId", sourceID)
			continue
		}

		e.logger.Debug("extracted fields", "sourceId", sourceID, "bytes", len(responseText))
		return []byte(responseText), nil
	}

	e.logger.Error("failed to extract fields after retries", "sourceId", sourceID, "err", lastErr)
	return nil, fmt.Errorf("%w: %w", ai.ErrExtraction, lastErr)
}

// buildExtractionPrompt creates the system prompt with the response schema
// and document identifier embedded.
func buildExtractionPrompt(sourceID string) string {
	return fmt.Sprintf(extractionPromptTemplate, extractionResponseSchema, sourceID)
}

// stripCodeFences removes markdown code fences some models wrap around
// JSON output despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
