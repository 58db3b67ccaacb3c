// Package config loads service configuration from a YAML file, a .env file,
// and environment variable overrides, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kubewise/kubewise/internal/logging"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Environment string   `yaml:"environment"`
	LogLevel    string   `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	ListenAddr  string   `yaml:"listen_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ProviderConfig holds per-provider LLM settings.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LLMConfig holds the provider chain configuration.
type LLMConfig struct {
	PrimaryProvider   string                    `yaml:"primary_provider"`
	FallbackProviders []string                  `yaml:"fallback_providers"`
	Providers         map[string]ProviderConfig `yaml:"providers"`
}

// KubernetesConfig holds cluster access settings.
type KubernetesConfig struct {
	KubeconfigPath  string        `yaml:"kubeconfig_path"`
	S3Bucket        string        `yaml:"s3_bucket"`
	S3KubeconfigKey string        `yaml:"s3_kubeconfig_key"`
	S3Endpoint      string        `yaml:"s3_endpoint"`
	S3Region        string        `yaml:"s3_region"`
	S3AccessKeyID   string        `yaml:"s3_access_key_id"`
	S3SecretKey     string        `yaml:"s3_secret_key"`
	MaxLogLines     int           `yaml:"max_log_lines"`
	EventLookback   time.Duration `yaml:"event_lookback"`
}

// AgentConfig holds tool-calling loop settings.
type AgentConfig struct {
	MaxTurns       int           `yaml:"max_turns"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	SessionHistory int           `yaml:"session_history"`
}

// MCPConfig holds the optional stdio MCP tool source settings.
type MCPConfig struct {
	Enabled bool              `yaml:"enabled"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// CostConfig maps cluster names to OpenCost endpoints.
type CostConfig struct {
	OpenCostURLs map[string]string `yaml:"opencost_urls"`
	Window       string            `yaml:"window"`
}

// Config is the root configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	LLM        LLMConfig        `yaml:"llm"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Agent      AgentConfig      `yaml:"agent"`
	MCP        MCPConfig        `yaml:"mcp"`
	Cost       CostConfig       `yaml:"cost"`

	path string
	mu   sync.RWMutex
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and environment variables apply. A missing config file is not an error.
func Load(path string) (*Config, error) {
	// .env is best-effort, matching the original's explicit load at startup
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.path = path

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        DefaultAppName,
			Version:     Version,
			Environment: DefaultEnvironment,
			LogLevel:    DefaultLogLevel,
			ListenAddr:  DefaultListenAddr,
			CORSOrigins: []string{"*"},
		},
		LLM: LLMConfig{
			PrimaryProvider:   "gemini",
			FallbackProviders: []string{"openai", "anthropic"},
			Providers:         map[string]ProviderConfig{},
		},
		Kubernetes: KubernetesConfig{
			MaxLogLines:   DefaultMaxLogLines,
			EventLookback: DefaultEventLookback,
		},
		Agent: AgentConfig{
			MaxTurns:       DefaultMaxTurns,
			QueryTimeout:   DefaultQueryTimeout,
			SessionHistory: DefaultSessionHistoryLimit,
		},
		Cost: CostConfig{
			Window: DefaultCostWindow,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	setProviderKey := func(name, envVar string) {
		if v := os.Getenv(envVar); v != "" {
			p := c.LLM.Providers[name]
			p.APIKey = v
			c.LLM.Providers[name] = p
		}
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = map[string]ProviderConfig{}
	}
	setProviderKey("gemini", "GEMINI_API_KEY")
	setProviderKey("openai", "OPENAI_API_KEY")
	setProviderKey("anthropic", "ANTHROPIC_API_KEY")

	if v := os.Getenv("KUBECONFIG_PATH"); v != "" {
		c.Kubernetes.KubeconfigPath = v
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		c.Kubernetes.S3Bucket = v
	}
	if v := os.Getenv("S3_KUBECONFIG_KEY"); v != "" {
		c.Kubernetes.S3KubeconfigKey = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.Kubernetes.S3Endpoint = v
	}
	if v := os.Getenv("REGION"); v != "" {
		c.Kubernetes.S3Region = v
	}
	if v := os.Getenv("ACCESS_KEY_ID"); v != "" {
		c.Kubernetes.S3AccessKeyID = v
	}
	if v := os.Getenv("SECRET_ACCESS_KEY"); v != "" {
		c.Kubernetes.S3SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.App.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}
}

func (c *Config) applyDefaults() {
	fill := func(name, model string) {
		p := c.LLM.Providers[name]
		if p.Model == "" {
			p.Model = model
		}
		if p.Temperature == 0 {
			p.Temperature = DefaultTemperature
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = DefaultMaxTokens
		}
		c.LLM.Providers[name] = p
	}
	fill("gemini", DefaultGeminiModel)
	fill("openai", DefaultOpenAIModel)
	fill("anthropic", DefaultAnthropicModel)

	if c.Kubernetes.S3Region == "" {
		c.Kubernetes.S3Region = "us-west-2"
	}
	if c.Agent.MaxTurns <= 0 {
		c.Agent.MaxTurns = DefaultMaxTurns
	}
	if c.Agent.QueryTimeout <= 0 {
		c.Agent.QueryTimeout = DefaultQueryTimeout
	}
	if c.Agent.SessionHistory <= 0 {
		c.Agent.SessionHistory = DefaultSessionHistoryLimit
	}
	if c.Cost.Window == "" {
		c.Cost.Window = DefaultCostWindow
	}
}

// Provider returns the configuration for a named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.LLM.Providers[name]
	return p, ok
}

// CostSettings returns a snapshot of the cost configuration. Reload swaps the
// underlying map, so consumers read through here instead of holding a copy.
func (c *Config) CostSettings() CostConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Cost
}

// Reload re-reads the config file in place, refreshing the tunable LLM
// settings and the log level. Structural settings (listen address, provider
// chain) require a restart.
func (c *Config) Reload() error {
	if c.path == "" {
		return nil
	}
	fresh, err := Load(c.path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.App.LogLevel = fresh.App.LogLevel
	c.LLM.Providers = fresh.LLM.Providers
	c.Cost = fresh.Cost
	return nil
}

// Watch hot-reloads tunable settings when the config file changes. Each
// onReload hook runs after a successful reload so dependents can pick up the
// refreshed values. It returns a stop function; the watch goroutine exits
// when it is called.
func (c *Config) Watch(logger *logging.Logger, onReload ...func()) (func(), error) {
	if c.path == "" {
		return func() {}, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(c.path); err != nil {
		// Missing file is fine; nothing to watch until it appears
		if os.IsNotExist(err) {
			_ = watcher.Close()
			return func() {}, nil
		}
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.Reload(); err != nil {
					logger.Warning("Config reload failed: %v", err)
					continue
				}
				logger.SetLevel(c.App.LogLevel)
				for _, hook := range onReload {
					hook()
				}
				logger.Info("Config reloaded from %s", c.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warning("Config watcher error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
