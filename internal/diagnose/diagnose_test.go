package diagnose

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/kubewise/internal/kube"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
)

type fakeCluster struct {
	detail    *kube.PodDetail
	logs      string
	events    []kube.PodEvent
	detailErr error
	logsErr   error
}

func (f *fakeCluster) GetPodDetail(_ context.Context, _, _ string) (*kube.PodDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeCluster) RawPodLogs(_ context.Context, _, _ string, _ int) (string, error) {
	return f.logs, f.logsErr
}

func (f *fakeCluster) PodEventList(_ context.Context, _, _ string) ([]kube.PodEvent, error) {
	return f.events, nil
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

func crashingDetail() *kube.PodDetail {
	return &kube.PodDetail{
		Name:      "api-7d9f",
		Namespace: "prod",
		Status:    "Running",
		Node:      "node-1",
		Conditions: []kube.PodCondition{
			{Type: "Ready", Status: "False", Reason: "ContainersNotReady"},
		},
		Containers: []kube.ContainerInfo{{Name: "api", Image: "api:1.2"}},
	}
}

const diagnosisText = `The pod is crash looping because its database connection fails on startup.

Identified Issues:
- Database connection refused on startup, the DB service is unreachable
- Liveness probe kills the container before retries complete

Root Cause: the DATABASE_URL secret points at a service that no longer exists.

Remediation Steps:
1. Update the DATABASE_URL secret to the current database service name
2. Increase the liveness probe initial delay to cover connection retries
`

func newService(cluster clusterClient, chat chatClient) *Service {
	return NewService(cluster, chat, logging.NewLogger("error"))
}

func TestDiagnosePod(t *testing.T) {
	cluster := &fakeCluster{
		detail: crashingDetail(),
		logs:   "dial tcp: connection refused",
		events: []kube.PodEvent{
			{Type: "Warning", Reason: "BackOff", Message: "restarting failed container", Timestamp: time.Now()},
		},
	}
	chat := &fakeChat{content: diagnosisText}

	result := newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "prod")

	assert.Equal(t, "api-7d9f", result.PodName)
	assert.Equal(t, "prod", result.Namespace)
	assert.Equal(t, "Running", result.Status)
	require.Len(t, result.Issues, 4)
	assert.Contains(t, result.Issues[0], "Database connection refused")
	assert.Contains(t, result.RootCause, "Root Cause:")
	assert.Contains(t, result.RootCause, "DATABASE_URL")
	require.Len(t, result.RemediationSteps, 2)
	assert.Contains(t, result.RemediationSteps[0], "Update the DATABASE_URL secret")
	assert.Equal(t, "dial tcp: connection refused", result.LogsSummary)
	assert.Contains(t, result.EventsSummary, "[Warning] BackOff")
}

func TestDiagnosePromptContents(t *testing.T) {
	cluster := &fakeCluster{detail: crashingDetail(), logs: "boom"}
	chat := &fakeChat{content: diagnosisText}

	newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "prod")

	require.Len(t, chat.lastMsgs, 2)
	user := chat.lastMsgs[1].Content
	assert.Contains(t, user, "api-7d9f")
	assert.Contains(t, user, "Ready=False (ContainersNotReady)")
	assert.Contains(t, user, "api (api:1.2)")
	assert.Contains(t, user, "No events found")
}

func TestDiagnoseTruncatesLogs(t *testing.T) {
	longLogs := strings.Repeat("x", 3000)
	cluster := &fakeCluster{detail: crashingDetail(), logs: longLogs}
	chat := &fakeChat{content: diagnosisText}

	result := newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "prod")

	assert.Len(t, result.LogsSummary, 500)
	assert.NotContains(t, chat.lastMsgs[1].Content, longLogs)
}

func TestTruncateRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 500))
	assert.Equal(t, "abcde", truncate("abcdef", 5))

	// a multibyte rune straddling the cut is dropped, not split
	s := strings.Repeat("x", 499) + "é"
	cut := truncate(s, 500)
	assert.True(t, utf8.ValidString(cut))
	assert.Len(t, cut, 499)
}

func TestDiagnoseTruncatesMultibyteLogs(t *testing.T) {
	longLogs := strings.Repeat("日", 400)
	cluster := &fakeCluster{detail: crashingDetail(), logs: longLogs}
	chat := &fakeChat{content: diagnosisText}

	result := newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "prod")

	assert.True(t, utf8.ValidString(result.LogsSummary))
	assert.LessOrEqual(t, len(result.LogsSummary), 500)
}

func TestDiagnoseClusterErrorDegrades(t *testing.T) {
	cluster := &fakeCluster{detailErr: fmt.Errorf("pods \"api-7d9f\" not found")}

	result := newService(cluster, &fakeChat{}).DiagnosePod(context.Background(), "api-7d9f", "prod")

	assert.Equal(t, "error", result.Status)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "Diagnosis failed:")
	assert.Equal(t, []string{"Check cluster connectivity and permissions"}, result.RemediationSteps)
}

func TestDiagnoseLLMErrorDegrades(t *testing.T) {
	cluster := &fakeCluster{detail: crashingDetail()}
	chat := &fakeChat{err: fmt.Errorf("all providers failed")}

	result := newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "prod")

	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Issues[0], "all providers failed")
}

func TestDiagnoseDefaultNamespace(t *testing.T) {
	cluster := &fakeCluster{detail: crashingDetail()}
	chat := &fakeChat{content: diagnosisText}

	result := newService(cluster, chat).DiagnosePod(context.Background(), "api-7d9f", "")
	assert.Equal(t, "default", result.Namespace)
}

func TestExtractIssuesFallback(t *testing.T) {
	assert.Equal(t, []string{"No specific issues identified"}, extractIssues("All healthy."))
}

func TestExtractIssuesSkipsShortItems(t *testing.T) {
	issues := extractIssues("- short\n- this item is long enough to count as an issue")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "long enough")
}

func TestExtractRootCauseFirstParagraph(t *testing.T) {
	got := extractRootCause("The image tag does not exist.\n\nMore detail here.")
	assert.Equal(t, "The image tag does not exist.", got)
}

func TestExtractRemediationFallback(t *testing.T) {
	got := extractRemediation("Nothing actionable.")
	assert.Equal(t, []string{"Review pod logs and events for more details"}, got)
}

func TestBulletItemNumbered(t *testing.T) {
	item, ok := bulletItem("2. Restart the deployment after fixing config")
	assert.True(t, ok)
	assert.Equal(t, "Restart the deployment after fixing config", item)

	_, ok = bulletItem("Plain sentence without a marker")
	assert.False(t, ok)
}
