package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

// New builds a provider by name from its configuration. A gemini entry with
// an explicit endpoint is routed through the OpenAI-compatible client
// instead of the native SDK.
func New(name string, cfg config.ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: no API key configured", name)
	}
	switch name {
	case "gemini":
		if cfg.Endpoint != "" {
			return NewOpenAICompatProvider(name, cfg.APIKey, cfg.Model, cfg.Endpoint, cfg.MaxTokens, cfg.Temperature), nil
		}
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Endpoint, cfg.MaxTokens, cfg.Temperature), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// Manager holds the configured providers and the failover order. The primary
// provider answers unless it is unavailable or errors, in which case the
// fallback chain is walked in order.
type Manager struct {
	providers map[string]Provider
	order     []string
	current   string
	logger    *logging.Logger
	mu        sync.RWMutex
}

// NewManager builds all providers that have API keys and selects the first
// usable one following primary then fallback order. It errors only when no
// provider at all could be built.
func NewManager(cfg *config.Config, logger *logging.Logger) (*Manager, error) {
	m := &Manager{
		providers: make(map[string]Provider),
		order:     append([]string{cfg.LLM.PrimaryProvider}, cfg.LLM.FallbackProviders...),
		logger:    logger,
	}

	for _, name := range m.order {
		pc, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		provider, err := New(name, pc)
		if err != nil {
			logger.Debug("Skipping provider %s: %v", name, err)
			continue
		}
		m.providers[name] = provider
		if m.current == "" {
			m.current = name
		}
	}

	if m.current == "" {
		return nil, fmt.Errorf("no LLM provider available, set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	logger.Info("Using LLM provider %s (model %s)", m.current, m.providers[m.current].Model())
	return m, nil
}

// Reload rebuilds the providers from refreshed configuration so model and
// temperature changes take effect without a restart. The current selection is
// kept when that provider is still usable. A reload that would leave no
// provider at all is ignored.
func (m *Manager) Reload(cfg *config.Config) {
	rebuilt := make(map[string]Provider)
	for _, name := range m.order {
		pc, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		provider, err := New(name, pc)
		if err != nil {
			m.logger.Debug("Skipping provider %s: %v", name, err)
			continue
		}
		rebuilt[name] = provider
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(rebuilt) == 0 {
		m.logger.Warning("Config reload left no usable LLM provider, keeping previous set")
		return
	}
	m.providers = rebuilt
	if _, ok := rebuilt[m.current]; !ok {
		for _, name := range m.order {
			if _, ok := rebuilt[name]; ok {
				m.current = name
				break
			}
		}
	}
	m.logger.Info("LLM providers reloaded, current %s (model %s)", m.current, m.providers[m.current].Model())
}

// Current returns the active provider.
func (m *Manager) Current() (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	provider, ok := m.providers[m.current]
	if !ok {
		return nil, fmt.Errorf("no available LLM provider")
	}
	return provider, nil
}

// Get returns a provider by name.
func (m *Manager) Get(name string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	provider, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not available", name)
	}
	return provider, nil
}

// Switch makes a different provider current.
func (m *Manager) Switch(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not available", name)
	}
	m.current = name
	return nil
}

// Available lists the providers that were built, failover order first.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, name := range m.order {
		if _, ok := m.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// ChatWithTools runs a tool completion on the current provider, walking the
// fallback chain when it fails. A successful fallback becomes current.
func (m *Manager) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Response, error) {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	var lastErr error
	for _, name := range m.failoverOrder(current) {
		provider, err := m.Get(name)
		if err != nil {
			continue
		}
		resp, err := provider.ChatWithTools(ctx, messages, tools)
		if err == nil {
			if name != current {
				m.logger.Warning("Provider %s failed, switched to %s", current, name)
				_ = m.Switch(name)
			}
			return resp, nil
		}
		// Do not burn the chain on a cancelled request
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		m.logger.Warning("Provider %s error: %v", name, err)
		lastErr = err
	}
	return Response{}, fmt.Errorf("all providers failed: %w", lastErr)
}

// Chat runs a plain completion with the same failover behavior as
// ChatWithTools.
func (m *Manager) Chat(ctx context.Context, messages []ChatMessage) (Response, error) {
	return m.ChatWithTools(ctx, messages, nil)
}

func (m *Manager) failoverOrder(current string) []string {
	names := []string{current}
	for _, name := range m.order {
		if name != current {
			names = append(names, name)
		}
	}
	return names
}
