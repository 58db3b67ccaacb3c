package kube

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kubewise/kubewise/internal/agent"
)

type namespaceArgs struct {
	Namespace string `json:"namespace"`
}

type podArgs struct {
	PodName   string `json:"pod_name"`
	Namespace string `json:"namespace"`
}

type logArgs struct {
	PodName   string `json:"pod_name"`
	Namespace string `json:"namespace"`
	TailLines int    `json:"tail_lines"`
}

func namespaceSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"namespace": map[string]interface{}{
				"type":        "string",
				"description": "The Kubernetes namespace. Defaults to 'default'.",
			},
		},
	}
}

func podSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pod_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the pod.",
			},
			"namespace": map[string]interface{}{
				"type":        "string",
				"description": "The Kubernetes namespace. Defaults to 'default'.",
			},
		},
		"required": []string{"pod_name"},
	}
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Tools exposes the cluster operations as agent tools.
func (c *Client) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Name:        "list_pods",
			Description: "List all pods in a namespace with their status, readiness and restart counts.",
			Parameters:  namespaceSchema(),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var a namespaceArgs
				if err := json.Unmarshal(args, &a); err != nil && len(args) > 0 {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				return c.ListPods(ctx, a.Namespace), nil
			},
		},
		{
			Name:        "get_pod_logs",
			Description: "Get recent logs from a specific pod.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pod_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the pod to get logs from.",
					},
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "The Kubernetes namespace. Defaults to 'default'.",
					},
					"tail_lines": map[string]interface{}{
						"type":        "integer",
						"description": "Number of log lines to retrieve. Defaults to 100.",
					},
				},
				"required": []string{"pod_name"},
			},
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var a logArgs
				if err := json.Unmarshal(args, &a); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				return c.GetPodLogs(ctx, a.PodName, a.Namespace, a.TailLines), nil
			},
		},
		{
			Name:        "get_pod_events",
			Description: "Get cluster events related to a specific pod, newest first.",
			Parameters:  podSchema(),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var a podArgs
				if err := json.Unmarshal(args, &a); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				return c.GetPodEvents(ctx, a.PodName, a.Namespace), nil
			},
		},
		{
			Name:        "describe_pod",
			Description: "Get a detailed description of a pod including containers, resources and conditions.",
			Parameters:  podSchema(),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var a podArgs
				if err := json.Unmarshal(args, &a); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				return c.DescribePod(ctx, a.PodName, a.Namespace), nil
			},
		},
		{
			Name:        "list_deployments",
			Description: "List all deployments in a namespace with replica counts and condition warnings.",
			Parameters:  namespaceSchema(),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var a namespaceArgs
				if err := json.Unmarshal(args, &a); err != nil && len(args) > 0 {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				return c.ListDeployments(ctx, a.Namespace), nil
			},
		},
		{
			Name:        "get_nodes",
			Description: "Get status, capacity and pressure warnings for all cluster nodes.",
			Parameters:  emptySchema(),
			Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return c.GetNodes(ctx), nil
			},
		},
		{
			Name:        "list_namespaces",
			Description: "List all namespaces in the cluster with their phase.",
			Parameters:  emptySchema(),
			Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return c.ListNamespaces(ctx), nil
			},
		},
	}
}

// RegisterTools adds every cluster tool to a registry.
func (c *Client) RegisterTools(registry *agent.Registry) error {
	for _, tool := range c.Tools() {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
