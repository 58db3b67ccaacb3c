package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/prompt"
)

// ChatProvider is what the loop needs from the LLM layer. *llm.Manager
// satisfies it.
type ChatProvider interface {
	ChatWithTools(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition) (llm.Response, error)
}

// Request is one natural language question about the cluster.
type Request struct {
	Query     string `json:"query"`
	Namespace string `json:"namespace,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Analysis is metadata about how a query was answered.
type Analysis struct {
	Status    string `json:"status"`
	Namespace string `json:"namespace"`
	ToolsUsed int    `json:"tools_used"`
	Turns     int    `json:"turns"`
}

// Result is the agent's answer.
type Result struct {
	Response    string   `json:"response"`
	Analysis    Analysis `json:"analysis"`
	Suggestions []string `json:"suggestions"`
	Success     bool     `json:"success"`
	SessionID   string   `json:"session_id"`
}

// Agent drives the tool-calling loop: send the conversation with tool
// definitions, execute whatever the model requests, feed results back, and
// stop when a response carries no tool calls or the turn cap is reached.
type Agent struct {
	provider     ChatProvider
	registry     *Registry
	sessions     *SessionStore
	maxTurns     int
	logger       *logging.Logger
	systemPrompt func(namespace string) string
}

// New creates an agent over a provider and toolset.
func New(provider ChatProvider, registry *Registry, sessions *SessionStore, maxTurns int, logger *logging.Logger) *Agent {
	return &Agent{
		provider:     provider,
		registry:     registry,
		sessions:     sessions,
		maxTurns:     maxTurns,
		logger:       logger,
		systemPrompt: prompt.ExpertSystem,
	}
}

// WithSystemPrompt replaces the default expert system prompt, used by the
// interactive REPL.
func (a *Agent) WithSystemPrompt(fn func(namespace string) string) *Agent {
	a.systemPrompt = fn
	return a
}

// Query answers one question. LLM transport failures are returned as errors;
// tool execution failures are not, they flow back to the model as result
// text.
func (a *Agent) Query(ctx context.Context, req Request) (*Result, error) {
	namespace := req.Namespace
	if namespace == "" {
		namespace = "default"
	}
	sessionID := a.sessions.Resolve(req.SessionID)
	a.logger.Info("Processing query: namespace=%s session=%s", namespace, sessionID)

	messages := []llm.ChatMessage{llm.SystemMessage(a.systemPrompt(namespace))}
	messages = append(messages, a.sessions.History(sessionID)...)
	messages = append(messages, llm.UserMessage(req.Query))

	defs := a.registry.Definitions()
	toolsUsed := 0
	turns := 0
	final := ""
	truncated := true

	for turns < a.maxTurns {
		turns++

		resp, err := a.provider.ChatWithTools(ctx, messages, defs)
		if err != nil {
			return nil, fmt.Errorf("agent turn %d: %w", turns, err)
		}

		if len(resp.ToolCalls) == 0 {
			final = resp.Content
			truncated = false
			break
		}

		messages = append(messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		final = resp.Content

		for _, call := range resp.ToolCalls {
			a.logger.Debug("Executing tool %s", call.Name)
			result := a.registry.Execute(ctx, call)
			messages = append(messages, llm.ToolResultMessage(call.ID, result))
			toolsUsed++
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if truncated {
		a.logger.Warning("Query hit turn cap (%d turns), returning partial answer", a.maxTurns)
		if final == "" {
			final = "The investigation did not finish."
		}
		final += fmt.Sprintf("\n\n(Stopped after reaching the maximum of %d turns. Narrow the question to continue.)", a.maxTurns)
	}

	a.sessions.Append(sessionID, llm.UserMessage(req.Query), llm.AssistantMessage(final))

	return &Result{
		Response: final,
		Analysis: Analysis{
			Status:    "completed",
			Namespace: namespace,
			ToolsUsed: toolsUsed,
			Turns:     turns,
		},
		Suggestions: ExtractSuggestions(final),
		Success:     true,
		SessionID:   sessionID,
	}, nil
}

var suggestionKeywords = []string{"recommend", "should", "check", "try", "consider"}

// ExtractSuggestions pulls up to five actionable bullet lines out of an
// answer.
func ExtractSuggestions(text string) []string {
	var result []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range suggestionKeywords {
			if strings.Contains(lower, kw) {
				result = append(result, strings.TrimSpace(line[2:]))
				break
			}
		}
		if len(result) == 5 {
			break
		}
	}
	return result
}
