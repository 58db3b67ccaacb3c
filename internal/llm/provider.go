package llm

import "context"

// Provider is the vendor-neutral chat interface. Implementations own client
// setup, authentication, and format conversion for one API.
type Provider interface {
	// Name identifies the provider for logging and selection.
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Chat sends a plain completion request.
	Chat(ctx context.Context, messages []ChatMessage) (Response, error)

	// ChatWithTools sends a completion request with tool definitions. The
	// model may respond with tool calls in Response.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Response, error)

	// StreamChat streams completion text to chunks. Usage is reported when
	// the provider includes it in the final chunk.
	StreamChat(ctx context.Context, messages []ChatMessage, chunks chan<- string) (*TokenUsage, error)
}
