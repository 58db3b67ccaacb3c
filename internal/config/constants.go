package config

import "time"

// Application defaults
const (
	// DefaultAppName is the service name reported by the banner and health endpoints
	DefaultAppName = "kubewise"

	// Version is the service version reported by the CLI and API
	Version = "2.0.0"

	// DefaultListenAddr is the default HTTP listen address
	DefaultListenAddr = ":8000"

	// DefaultEnvironment is the default deployment environment
	DefaultEnvironment = "production"

	// DefaultLogLevel is the default logging level
	DefaultLogLevel = "info"
)

// Agent defaults
const (
	// DefaultMaxTurns bounds the tool-calling loop for a single query
	DefaultMaxTurns = 10

	// DefaultQueryTimeout is the overall timeout for a single agent query
	DefaultQueryTimeout = 5 * time.Minute

	// DefaultSessionHistoryLimit is the number of prior messages carried into
	// a follow-up query on the same session
	DefaultSessionHistoryLimit = 10
)

// LLM defaults
const (
	// DefaultGeminiModel is the default Gemini model
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultOpenAIModel is the default OpenAI model
	DefaultOpenAIModel = "gpt-4-turbo-preview"

	// DefaultAnthropicModel is the default Anthropic model
	DefaultAnthropicModel = "claude-3-sonnet-20240229"

	// DefaultTemperature keeps answers close to the gathered evidence
	DefaultTemperature = 0.1

	// DefaultMaxTokens is the default completion token budget
	DefaultMaxTokens = 8192
)

// Kubernetes defaults
const (
	// DefaultMaxLogLines caps pod log retrieval
	DefaultMaxLogLines = 500

	// DefaultLogTailLines is the tail size used when a tool call does not ask
	// for a specific amount
	DefaultLogTailLines = 100

	// DefaultEventLookback is how far back pod events are considered
	DefaultEventLookback = 24 * time.Hour
)

// Cost defaults
const (
	// DefaultCostWindow is the default OpenCost allocation window
	DefaultCostWindow = "7d"

	// DefaultCostTimeout bounds a single OpenCost API call
	DefaultCostTimeout = 30 * time.Second
)
