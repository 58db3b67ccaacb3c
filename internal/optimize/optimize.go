// Package optimize produces resource tuning recommendations for a namespace
// from aggregated requests, limits and pod state.
package optimize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kubewise/kubewise/internal/kube"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/prompt"
)

const (
	maxRecommendations = 5
	maxPodsInPrompt    = 10
	maxReasoningLen    = 200
)

type clusterClient interface {
	GetNamespaceResources(ctx context.Context, namespace string) (*kube.NamespaceResources, error)
	PodSummaries(ctx context.Context, namespace string) ([]kube.PodSummary, error)
}

type chatClient interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)
}

// Recommendation is a single resource tuning suggestion.
type Recommendation struct {
	ResourceType      string            `json:"resource_type"`
	ResourceName      string            `json:"resource_name"`
	Namespace         string            `json:"namespace"`
	CurrentUsage      map[string]string `json:"current_usage"`
	RecommendedLimits map[string]string `json:"recommended_limits"`
	PotentialSavings  string            `json:"potential_savings"`
	Priority          string            `json:"priority"`
	Reasoning         string            `json:"reasoning"`
}

// Response bundles recommendations with a summary.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
	TotalSavings    string           `json:"total_potential_savings,omitempty"`
}

// Service generates optimization recommendations.
type Service struct {
	cluster clusterClient
	llm     chatClient
	logger  *logging.Logger
}

func NewService(cluster clusterClient, llmClient chatClient, logger *logging.Logger) *Service {
	return &Service{cluster: cluster, llm: llmClient, logger: logger}
}

// Recommendations analyzes a namespace and returns tuning suggestions.
// Failures degrade into an empty response carrying the error in the summary.
func (s *Service) Recommendations(ctx context.Context, namespace string) *Response {
	if namespace == "" {
		namespace = "default"
	}
	s.logger.Info("Generating recommendations for namespace %s", namespace)

	resources, err := s.cluster.GetNamespaceResources(ctx, namespace)
	if err != nil {
		return s.errorResponse(err)
	}
	pods, err := s.cluster.PodSummaries(ctx, namespace)
	if err != nil {
		return s.errorResponse(err)
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt.OptimizationSystem()),
		llm.UserMessage(prompt.Optimization(namespace, formatResourceData(namespace, resources, pods))),
	}
	resp, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return s.errorResponse(err)
	}

	recommendations := parseRecommendations(resp.Content, namespace)
	s.logger.Info("Generated %d recommendations for namespace %s", len(recommendations), namespace)
	return &Response{
		Recommendations: recommendations,
		Summary:         summarize(recommendations),
		TotalSavings:    "$50-200/month (estimated)",
	}
}

func (s *Service) errorResponse(err error) *Response {
	s.logger.Error("Recommendation generation failed: %v", err)
	return &Response{
		Recommendations: []Recommendation{},
		Summary:         fmt.Sprintf("Failed to generate recommendations: %v", err),
	}
}

func formatResourceData(namespace string, resources *kube.NamespaceResources, pods []kube.PodSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nNamespace: %s\n", namespace)
	fmt.Fprintf(&b, "Total Pods: %d\n\n", resources.PodCount)
	fmt.Fprintf(&b, "Resource Requests:\n- CPU: %s\n- Memory: %s\n\n", resources.CPURequests(), resources.MemoryRequests())
	fmt.Fprintf(&b, "Resource Limits:\n- CPU: %s\n- Memory: %s\n\n", resources.CPULimits(), resources.MemoryLimits())
	b.WriteString("Pod Details:\n")

	if len(pods) > maxPodsInPrompt {
		pods = pods[:maxPodsInPrompt]
	}
	for _, pod := range pods {
		fmt.Fprintf(&b, "\n- %s: %s (restarts: %d)", pod.Name, pod.Status, pod.Restarts)
	}
	return b.String()
}

// parseRecommendations picks out paragraphs that read like recommendations.
func parseRecommendations(text, namespace string) []Recommendation {
	var recommendations []Recommendation
	keywords := []string{"recommend", "reduce", "increase", "optimize"}

	for _, section := range strings.Split(text, "\n\n") {
		lower := strings.ToLower(section)
		matched := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		resourceName := "unknown"
		for _, line := range strings.Split(section, "\n") {
			if idx := strings.Index(line, ":"); idx > 0 {
				resourceName = strings.TrimSpace(line[:idx])
				break
			}
		}

		reasoning := section
		if len(reasoning) > maxReasoningLen {
			cut := maxReasoningLen
			for cut > 0 && !utf8.RuneStart(reasoning[cut]) {
				cut--
			}
			reasoning = reasoning[:cut]
		}
		recommendations = append(recommendations, Recommendation{
			ResourceType:      "pod",
			ResourceName:      resourceName,
			Namespace:         namespace,
			CurrentUsage:      map[string]string{"cpu": "unknown", "memory": "unknown"},
			RecommendedLimits: map[string]string{"cpu": "TBD", "memory": "TBD"},
			PotentialSavings:  "$10-50/month",
			Priority:          "medium",
			Reasoning:         reasoning,
		})
		if len(recommendations) == maxRecommendations {
			break
		}
	}
	return recommendations
}

func summarize(recommendations []Recommendation) string {
	if len(recommendations) == 0 {
		return "No optimization opportunities found. Resources are well-configured."
	}

	high, medium := 0, 0
	for _, r := range recommendations {
		switch r.Priority {
		case "high":
			high++
		case "medium":
			medium++
		}
	}
	return fmt.Sprintf(`Found %d optimization opportunities:
- %d high priority
- %d medium priority

Key actions: Review resource limits and requests for over-provisioned pods.`, len(recommendations), high, medium)
}
