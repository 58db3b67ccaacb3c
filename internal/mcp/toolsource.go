// Package mcp connects to Model Context Protocol servers over stdio and
// exposes their tools to the agent loop.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/kubewise/kubewise/internal/agent"
	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

const protocolVersion = "2024-11-05"

// rpcClient is the slice of the MCP client the tool source uses.
type rpcClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, req mcpproto.InitializeRequest) (*mcpproto.InitializeResult, error)
	ListTools(ctx context.Context, req mcpproto.ListToolsRequest) (*mcpproto.ListToolsResult, error)
	CallTool(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error)
	Close() error
}

// ToolSource manages a stdio MCP server subprocess. The connection is
// established lazily on the first Tools call.
type ToolSource struct {
	cfg    config.MCPConfig
	logger *logging.Logger

	mu        sync.Mutex
	client    rpcClient
	connected bool
}

func NewToolSource(cfg config.MCPConfig, logger *logging.Logger) *ToolSource {
	return &ToolSource{cfg: cfg, logger: logger}
}

// Tools connects to the server if needed and returns its tools adapted for
// the agent registry.
func (s *ToolSource) Tools(ctx context.Context) ([]agent.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := s.connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to MCP server: %w", err)
		}
	}

	resp, err := s.client.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list MCP tools: %w", err)
	}

	tools := make([]agent.Tool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		name := t.Name
		tools = append(tools, agent.Tool{
			Name:        name,
			Description: t.Description,
			Parameters:  schemaToMap(t.InputSchema),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				return s.call(ctx, name, args)
			},
		})
	}
	s.logger.Info("MCP server exposed %d tools", len(tools))
	return tools, nil
}

func (s *ToolSource) connect(ctx context.Context) error {
	if s.cfg.Command == "" {
		return fmt.Errorf("no MCP command configured")
	}

	if s.client == nil {
		c, err := client.NewStdioMCPClient(s.cfg.Command, envSlice(s.cfg.Env), s.cfg.Args...)
		if err != nil {
			return fmt.Errorf("create MCP client: %w", err)
		}
		s.client = c
	}

	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("start MCP client: %w", err)
	}

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ClientInfo = mcpproto.Implementation{
		Name:    "kubewise",
		Version: config.Version,
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := s.client.Initialize(ctx, initReq); err != nil {
		s.client.Close()
		s.client = nil
		return fmt.Errorf("initialize MCP session: %w", err)
	}

	s.connected = true
	s.logger.Info("Connected to MCP server via %s", s.cfg.Command)
	return nil
}

// call invokes a tool on the server and flattens its text content.
func (s *ToolSource) call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	s.mu.Lock()
	c := s.client
	connected := s.connected
	s.mu.Unlock()

	if !connected || c == nil {
		return "", fmt.Errorf("MCP server not connected")
	}

	var arguments map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("invalid tool arguments: %w", err)
		}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := contentText(resp.Content)
	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

// Close shuts down the server subprocess.
func (s *ToolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.connected = false
	return err
}

func contentText(content []mcpproto.Content) string {
	var texts []string
	for _, c := range content {
		if tc, ok := c.(mcpproto.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func schemaToMap(schema mcpproto.ToolInputSchema) map[string]interface{} {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
