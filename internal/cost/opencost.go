// Package cost queries OpenCost for allocation data and produces LLM-backed
// spend reports.
package cost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

// ErrUnknownCluster marks a cluster with no configured OpenCost endpoint.
var ErrUnknownCluster = errors.New("no OpenCost URL configured")

// Allocation is one aggregated OpenCost allocation entry.
type Allocation struct {
	Name                  string  `json:"name"`
	Node                  string  `json:"node"`
	Namespace             string  `json:"namespace"`
	Pod                   string  `json:"pod"`
	Container             string  `json:"container"`
	InstanceType          string  `json:"instanceType"`
	CPUCores              float64 `json:"cpuCores"`
	CPUCoreUsageAverage   float64 `json:"cpuCoreUsageAverage"`
	RAMBytes              float64 `json:"ramBytes"`
	NetworkReceiveBytes   float64 `json:"networkReceiveBytes"`
	NetworkTransferBytes  float64 `json:"networkTransferBytes"`
	CPUCost               float64 `json:"cpuCost"`
	PVCost                float64 `json:"pvCost"`
	RAMCost               float64 `json:"ramCost"`
	TotalCost             float64 `json:"totalCost"`
	Window                string  `json:"window"`
}

// allocationEntry mirrors the OpenCost response shape.
type allocationEntry struct {
	Name       string `json:"name"`
	Properties struct {
		Node      string            `json:"node"`
		Namespace string            `json:"namespace"`
		Pod       string            `json:"pod"`
		Container string            `json:"container"`
		Labels    map[string]string `json:"labels"`
	} `json:"properties"`
	CPUCores             float64 `json:"cpuCores"`
	CPUCoreUsageAverage  float64 `json:"cpuCoreUsageAverage"`
	RAMBytes             float64 `json:"ramBytes"`
	NetworkReceiveBytes  float64 `json:"networkReceiveBytes"`
	NetworkTransferBytes float64 `json:"networkTransferBytes"`
	CPUCost              float64 `json:"cpuCost"`
	PVCost               float64 `json:"pvCost"`
	RAMCost              float64 `json:"ramCost"`
	TotalCost            float64 `json:"totalCost"`
}

// Client queries OpenCost endpoints. Each cluster maps to its own base URL.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger

	mu  sync.RWMutex
	cfg config.CostConfig
}

func NewClient(cfg config.CostConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: config.DefaultCostTimeout},
		logger:     logger,
	}
}

// Reload swaps in refreshed cost configuration, picking up cluster URL map
// and window changes from a config reload.
func (c *Client) Reload(cfg config.CostConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Allocations fetches namespace-aggregated allocations for a cluster over a
// window, optionally filtered to one node.
func (c *Client) Allocations(ctx context.Context, cluster, window, node string) ([]Allocation, error) {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	base, ok := cfg.OpenCostURLs[cluster]
	if !ok {
		return nil, fmt.Errorf("%w for cluster '%s'", ErrUnknownCluster, cluster)
	}
	if window == "" {
		window = cfg.Window
	}

	endpoint := strings.TrimRight(base, "/") + "/model/allocation/compute"
	params := url.Values{}
	params.Set("window", window)
	params.Set("aggregate", "namespace")
	params.Set("includeIdle", "true")
	params.Set("accumulate", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build OpenCost request: %w", err)
	}

	c.logger.Debug("Querying OpenCost at %s window %s", endpoint, window)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query OpenCost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenCost returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []map[string]allocationEntry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode OpenCost response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("OpenCost response contained no allocation data")
	}

	var results []Allocation
	for _, entry := range payload.Data[0] {
		if node != "" && entry.Properties.Node != node {
			continue
		}
		instanceType := entry.Properties.Labels["beta_kubernetes_io_instance_type"]
		if instanceType == "" {
			instanceType = "unknown"
		}
		results = append(results, Allocation{
			Name:                 entry.Name,
			Node:                 entry.Properties.Node,
			Namespace:            entry.Properties.Namespace,
			Pod:                  entry.Properties.Pod,
			Container:            entry.Properties.Container,
			InstanceType:         instanceType,
			CPUCores:             entry.CPUCores,
			CPUCoreUsageAverage:  entry.CPUCoreUsageAverage,
			RAMBytes:             entry.RAMBytes,
			NetworkReceiveBytes:  entry.NetworkReceiveBytes,
			NetworkTransferBytes: entry.NetworkTransferBytes,
			CPUCost:              entry.CPUCost,
			PVCost:               entry.PVCost,
			RAMCost:              entry.RAMCost,
			TotalCost:            entry.TotalCost,
			Window:               window,
		})
	}
	return results, nil
}
