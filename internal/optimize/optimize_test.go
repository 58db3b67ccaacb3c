package optimize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/kubewise/internal/kube"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
)

type fakeCluster struct {
	resources    *kube.NamespaceResources
	pods         []kube.PodSummary
	resourcesErr error
}

func (f *fakeCluster) GetNamespaceResources(_ context.Context, _ string) (*kube.NamespaceResources, error) {
	return f.resources, f.resourcesErr
}

func (f *fakeCluster) PodSummaries(_ context.Context, _ string) ([]kube.PodSummary, error) {
	return f.pods, nil
}

type fakeChat struct {
	content  string
	err      error
	lastMsgs []llm.ChatMessage
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	f.lastMsgs = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.content}, nil
}

const optimizationText = `api-7d9f: over-provisioned. Recommend reducing the CPU request from 1000m to 250m based on observed usage.

worker-2c1a: memory limits look tight. Increase the memory limit to 512Mi to avoid OOM kills.

The remaining pods look well-configured.`

func healthyCluster() *fakeCluster {
	return &fakeCluster{
		resources: &kube.NamespaceResources{
			PodCount:         3,
			CPURequestsMilli: 1100,
			MemoryRequestsMi: 1152,
			CPULimitsMilli:   2200,
			MemoryLimitsMi:   2304,
		},
		pods: []kube.PodSummary{
			{Name: "api-7d9f", Status: "Running", Restarts: 4},
			{Name: "worker-2c1a", Status: "Running", Restarts: 0},
		},
	}
}

func newService(cluster clusterClient, chat chatClient) *Service {
	return NewService(cluster, chat, logging.NewLogger("error"))
}

func TestRecommendations(t *testing.T) {
	chat := &fakeChat{content: optimizationText}
	resp := newService(healthyCluster(), chat).Recommendations(context.Background(), "prod")

	require.Len(t, resp.Recommendations, 2)
	first := resp.Recommendations[0]
	assert.Equal(t, "pod", first.ResourceType)
	assert.Equal(t, "api-7d9f", first.ResourceName)
	assert.Equal(t, "prod", first.Namespace)
	assert.Equal(t, "$10-50/month", first.PotentialSavings)
	assert.Equal(t, "medium", first.Priority)
	assert.Contains(t, first.Reasoning, "over-provisioned")

	assert.Equal(t, "worker-2c1a", resp.Recommendations[1].ResourceName)
	assert.Contains(t, resp.Summary, "Found 2 optimization opportunities")
	assert.Contains(t, resp.Summary, "2 medium priority")
	assert.Equal(t, "$50-200/month (estimated)", resp.TotalSavings)
}

func TestRecommendationsPromptIncludesResources(t *testing.T) {
	chat := &fakeChat{content: optimizationText}
	newService(healthyCluster(), chat).Recommendations(context.Background(), "prod")

	require.Len(t, chat.lastMsgs, 2)
	user := chat.lastMsgs[1].Content
	assert.Contains(t, user, "Total Pods: 3")
	assert.Contains(t, user, "CPU: 1100m")
	assert.Contains(t, user, "Memory: 1152Mi")
	assert.Contains(t, user, "- api-7d9f: Running (restarts: 4)")
}

func TestRecommendationsCapsPodsInPrompt(t *testing.T) {
	cluster := healthyCluster()
	cluster.pods = nil
	for i := 0; i < 15; i++ {
		cluster.pods = append(cluster.pods, kube.PodSummary{Name: fmt.Sprintf("pod-%d", i), Status: "Running"})
	}
	chat := &fakeChat{content: optimizationText}
	newService(cluster, chat).Recommendations(context.Background(), "prod")

	user := chat.lastMsgs[1].Content
	assert.Contains(t, user, "pod-9")
	assert.NotContains(t, user, "pod-10")
}

func TestRecommendationsNoneFound(t *testing.T) {
	chat := &fakeChat{content: "Everything looks fine.\n\nNo changes needed."}
	resp := newService(healthyCluster(), chat).Recommendations(context.Background(), "prod")

	assert.Empty(t, resp.Recommendations)
	assert.Equal(t, "No optimization opportunities found. Resources are well-configured.", resp.Summary)
}

func TestRecommendationsClusterErrorDegrades(t *testing.T) {
	cluster := &fakeCluster{resourcesErr: fmt.Errorf("namespaces \"prod\" not found")}
	resp := newService(cluster, &fakeChat{}).Recommendations(context.Background(), "prod")

	assert.Empty(t, resp.Recommendations)
	assert.Contains(t, resp.Summary, "Failed to generate recommendations:")
	assert.Empty(t, resp.TotalSavings)
}

func TestRecommendationsLLMErrorDegrades(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("all providers failed")}
	resp := newService(healthyCluster(), chat).Recommendations(context.Background(), "prod")

	assert.Contains(t, resp.Summary, "all providers failed")
}

func TestParseRecommendationsCap(t *testing.T) {
	text := ""
	for i := 0; i < 8; i++ {
		text += fmt.Sprintf("pod-%d: recommend reducing CPU.\n\n", i)
	}
	recs := parseRecommendations(text, "default")
	assert.Len(t, recs, 5)
}

func TestParseRecommendationsReasoningRuneBoundary(t *testing.T) {
	section := "api: recommend reducing memory. " + strings.Repeat("メ", 100)
	recs := parseRecommendations(section, "default")
	require.Len(t, recs, 1)
	assert.True(t, utf8.ValidString(recs[0].Reasoning))
	assert.LessOrEqual(t, len(recs[0].Reasoning), 200)
}
