// Package queryfilter parses natural language queries into structured
// dashboard filters.
package queryfilter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/prompt"
)

type chatClient interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)
}

// Filter is one structured filter condition.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Response carries the parsed filters together with a confidence score.
type Response struct {
	Filters    []Filter `json:"filters"`
	RawQuery   string   `json:"raw_query"`
	Confidence float64  `json:"confidence"`
}

// Service parses filter queries.
type Service struct {
	llm    chatClient
	logger *logging.Logger
}

func NewService(llmClient chatClient, logger *logging.Logger) *Service {
	return &Service{llm: llmClient, logger: logger}
}

// Parse asks the LLM to translate a query into filter conditions. When the
// model response cannot be parsed, or the model is unavailable, a keyword
// fallback with low confidence takes over.
func (s *Service) Parse(ctx context.Context, query string) *Response {
	s.logger.Info("Parsing filter query: %s", query)

	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt.FilterSystem()),
		llm.UserMessage(prompt.Filter(query)),
		llm.SystemMessage("Return only valid JSON array of filter objects. No additional text."),
	}
	resp, err := s.llm.Chat(ctx, messages)
	if err != nil {
		s.logger.Error("Query parsing failed: %v", err)
		return fallbackFilter(query)
	}

	filters, err := extractFilters(resp.Content)
	if err != nil {
		s.logger.Warning("Failed to parse JSON response: %v", err)
		return fallbackFilter(query)
	}

	confidence := 0.95
	if len(filters) == 0 {
		confidence = 0.5
	}
	s.logger.Info("Query parsed into %d filters", len(filters))
	return &Response{Filters: filters, RawQuery: query, Confidence: confidence}
}

// extractFilters pulls the first JSON array out of the model output, which
// may be wrapped in prose or a code fence.
func extractFilters(text string) ([]Filter, error) {
	candidate := text
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		candidate = text[start : end+1]
	}

	var filters []Filter
	if err := json.Unmarshal([]byte(candidate), &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// fallbackFilter matches a few well-known status keywords.
func fallbackFilter(query string) *Response {
	lower := strings.ToLower(query)
	var filters []Filter

	switch {
	case strings.Contains(lower, "running"):
		filters = append(filters, Filter{Field: "status", Operator: "equals", Value: "Running"})
	case strings.Contains(lower, "pending"):
		filters = append(filters, Filter{Field: "status", Operator: "equals", Value: "Pending"})
	case strings.Contains(lower, "failed"), strings.Contains(lower, "error"):
		filters = append(filters, Filter{Field: "status", Operator: "equals", Value: "Failed"})
	}

	return &Response{Filters: filters, RawQuery: query, Confidence: 0.3}
}
