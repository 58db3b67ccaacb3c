// Package kube wraps read-only cluster access behind formatted tool
// operations and structured accessors.
package kube

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

// Client provides read-only cluster operations.
type Client struct {
	clientset     kubernetes.Interface
	logger        *logging.Logger
	maxLogLines   int
	eventLookback time.Duration
}

// NewClient builds a client from an explicit kubeconfig path, falling back
// to in-cluster config and then the default kubeconfig. Log retrieval and
// event lookback limits come from the kubernetes configuration section.
func NewClient(kubeconfigPath string, cfg config.KubernetesConfig, logger *logging.Logger) (*Client, error) {
	restCfg, err := buildRESTConfig(kubeconfigPath, logger)
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	c := NewWithClientset(clientset, logger)
	if cfg.MaxLogLines > 0 {
		c.maxLogLines = cfg.MaxLogLines
	}
	if cfg.EventLookback > 0 {
		c.eventLookback = cfg.EventLookback
	}
	return c, nil
}

// NewWithClientset wraps an existing clientset with default limits. Tests use
// this with the fake clientset.
func NewWithClientset(clientset kubernetes.Interface, logger *logging.Logger) *Client {
	return &Client{
		clientset:     clientset,
		logger:        logger,
		maxLogLines:   config.DefaultMaxLogLines,
		eventLookback: config.DefaultEventLookback,
	}
}

// Ping checks API server connectivity with a cheap namespace list.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("kubernetes api unreachable: %w", err)
	}
	return nil
}

func buildRESTConfig(kubeconfigPath string, logger *logging.Logger) (*rest.Config, error) {
	if kubeconfigPath != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfigPath, err)
		}
		logger.Info("Loaded kubeconfig from %s", kubeconfigPath)
		return cfg, nil
	}

	if cfg, err := rest.InClusterConfig(); err == nil {
		logger.Info("Loaded in-cluster config")
		return cfg, nil
	}

	cfg, err := clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}
	logger.Info("Loaded default kubeconfig")
	return cfg, nil
}
