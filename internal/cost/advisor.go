package cost

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/prompt"
)

type chatClient interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)
}

type allocationSource interface {
	Allocations(ctx context.Context, cluster, window, node string) ([]Allocation, error)
}

// Report is an LLM-generated spend analysis for a cluster.
type Report struct {
	Cluster     string  `json:"cluster"`
	Window      string  `json:"window"`
	TotalCost   float64 `json:"total_cost"`
	Allocations int     `json:"allocations"`
	Analysis    string  `json:"analysis"`
}

// Advisor turns allocation data into spend reports.
type Advisor struct {
	source allocationSource
	llm    chatClient
	logger *logging.Logger
}

func NewAdvisor(source allocationSource, llmClient chatClient, logger *logging.Logger) *Advisor {
	return &Advisor{source: source, llm: llmClient, logger: logger}
}

// GenerateReport fetches allocations for a cluster and asks the LLM for a
// cost optimization analysis.
func (a *Advisor) GenerateReport(ctx context.Context, cluster, window string) (*Report, error) {
	allocations, err := a.source.Allocations(ctx, cluster, window, "")
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("no allocation data for cluster '%s'", cluster)
	}
	if window == "" {
		window = allocations[0].Window
	}

	messages := []llm.ChatMessage{
		llm.UserMessage(prompt.CostAnalysis(formatUsage(allocations), formatPricing(allocations))),
	}
	resp, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate cost report: %w", err)
	}

	total := 0.0
	for _, alloc := range allocations {
		total += alloc.TotalCost
	}
	a.logger.Info("Generated cost report for cluster %s over %s", cluster, window)
	return &Report{
		Cluster:     cluster,
		Window:      window,
		TotalCost:   total,
		Allocations: len(allocations),
		Analysis:    resp.Content,
	}, nil
}

func formatUsage(allocations []Allocation) string {
	var b strings.Builder
	for _, alloc := range allocations {
		fmt.Fprintf(&b, "- %s: cpu %.2f cores (avg usage %.2f), ram %.0f MiB, network rx/tx %.0f/%.0f bytes\n",
			alloc.Name, alloc.CPUCores, alloc.CPUCoreUsageAverage,
			alloc.RAMBytes/(1024*1024), alloc.NetworkReceiveBytes, alloc.NetworkTransferBytes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPricing(allocations []Allocation) string {
	var b strings.Builder
	for _, alloc := range allocations {
		fmt.Fprintf(&b, "- %s (%s): cpu $%.2f, ram $%.2f, pv $%.2f, total $%.2f over %s\n",
			alloc.Name, alloc.InstanceType, alloc.CPUCost, alloc.RAMCost, alloc.PVCost,
			alloc.TotalCost, alloc.Window)
	}
	return strings.TrimRight(b.String(), "\n")
}
