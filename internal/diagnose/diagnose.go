// Package diagnose turns pod state, logs and events into a structured
// failure diagnosis using the LLM.
package diagnose

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
	logTailLines   = 50
	maxPromptLogs  = 2000
	maxSummaryLen  = 500
	maxEvents      = 10
	maxListEntries = 5
)

// clusterClient is the slice of the Kubernetes client the service reads from.
type clusterClient interface {
	GetPodDetail(ctx context.Context, podName, namespace string) (*kube.PodDetail, error)
	RawPodLogs(ctx context.Context, podName, namespace string, tailLines int) (string, error)
	PodEventList(ctx context.Context, podName, namespace string) ([]kube.PodEvent, error)
}

type chatClient interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)
}

// Result is a structured pod diagnosis.
type Result struct {
	PodName          string   `json:"pod_name"`
	Namespace        string   `json:"namespace"`
	Status           string   `json:"status"`
	Issues           []string `json:"issues"`
	RootCause        string   `json:"root_cause,omitempty"`
	RemediationSteps []string `json:"remediation_steps"`
	LogsSummary      string   `json:"logs_summary,omitempty"`
	EventsSummary    string   `json:"events_summary,omitempty"`
}

// Service diagnoses pod failures.
type Service struct {
	cluster clusterClient
	llm     chatClient
	logger  *logging.Logger
}

func NewService(cluster clusterClient, llmClient chatClient, logger *logging.Logger) *Service {
	return &Service{cluster: cluster, llm: llmClient, logger: logger}
}

// DiagnosePod gathers pod status, recent logs and events, asks the LLM for a
// diagnosis and parses it into issues, a root cause and remediation steps.
// Failures degrade into an error-status result instead of an error return so
// callers always get something to show.
func (s *Service) DiagnosePod(ctx context.Context, podName, namespace string) *Result {
	if namespace == "" {
		namespace = "default"
	}
	s.logger.Info("Diagnosing pod %s in namespace %s", podName, namespace)

	detail, err := s.cluster.GetPodDetail(ctx, podName, namespace)
	if err != nil {
		return s.errorResult(podName, namespace, err)
	}
	logs, err := s.cluster.RawPodLogs(ctx, podName, namespace, logTailLines)
	if err != nil {
		return s.errorResult(podName, namespace, err)
	}
	events, err := s.cluster.PodEventList(ctx, podName, namespace)
	if err != nil {
		return s.errorResult(podName, namespace, err)
	}

	eventsText := formatEvents(events)
	promptLogs := truncate(logs, maxPromptLogs)
	if promptLogs == "" {
		promptLogs = "No logs available"
	}
	promptEvents := eventsText
	if promptEvents == "" {
		promptEvents = "No events found"
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt.DiagnosisSystem()),
		llm.UserMessage(prompt.Diagnosis(podName, namespace, formatPodStatus(detail), promptLogs, promptEvents)),
	}
	resp, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return s.errorResult(podName, namespace, err)
	}

	result := &Result{
		PodName:          podName,
		Namespace:        namespace,
		Status:           detail.Status,
		Issues:           extractIssues(resp.Content),
		RootCause:        extractRootCause(resp.Content),
		RemediationSteps: extractRemediation(resp.Content),
		LogsSummary:      truncate(logs, maxSummaryLen),
		EventsSummary:    truncate(eventsText, maxSummaryLen),
	}
	s.logger.Info("Pod diagnosis completed for %s", podName)
	return result
}

func (s *Service) errorResult(podName, namespace string, err error) *Result {
	s.logger.Error("Pod diagnosis failed for %s: %v", podName, err)
	return &Result{
		PodName:          podName,
		Namespace:        namespace,
		Status:           "error",
		Issues:           []string{fmt.Sprintf("Diagnosis failed: %v", err)},
		RemediationSteps: []string{"Check cluster connectivity and permissions"},
	}
}

func formatPodStatus(detail *kube.PodDetail) string {
	conditions := make([]string, 0, len(detail.Conditions))
	for _, c := range detail.Conditions {
		if c.Reason != "" {
			conditions = append(conditions, fmt.Sprintf("%s=%s (%s)", c.Type, c.Status, c.Reason))
		} else {
			conditions = append(conditions, fmt.Sprintf("%s=%s", c.Type, c.Status))
		}
	}
	containers := make([]string, 0, len(detail.Containers))
	for _, c := range detail.Containers {
		containers = append(containers, fmt.Sprintf("%s (%s)", c.Name, c.Image))
	}
	return fmt.Sprintf("Status: %s\nConditions: %s\nContainers: %s",
		detail.Status, strings.Join(conditions, ", "), strings.Join(containers, ", "))
}

func formatEvents(events []kube.PodEvent) string {
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.Type, e.Reason, e.Message))
	}
	return strings.Join(lines, "\n")
}

// truncate caps s at max bytes, backing up to a rune boundary so multibyte
// characters are never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// bulletItem strips list markers from a line, reporting whether the line was
// a bullet or numbered entry.
func bulletItem(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	bullet := strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")
	if !bullet {
		head := line
		if len(head) > 2 {
			head = head[:2]
		}
		digits := strings.ReplaceAll(head, ".", "")
		if digits == "" {
			return "", false
		}
		for _, r := range digits {
			if r < '0' || r > '9' {
				return "", false
			}
		}
	}
	return strings.TrimSpace(strings.TrimLeft(line, "-•0123456789. ")), true
}

func extractIssues(text string) []string {
	var issues []string
	for _, line := range strings.Split(text, "\n") {
		if item, ok := bulletItem(line); ok && len(item) > 10 {
			issues = append(issues, item)
			if len(issues) == maxListEntries {
				break
			}
		}
	}
	if len(issues) == 0 {
		return []string{"No specific issues identified"}
	}
	return issues
}

func extractRootCause(text string) string {
	lower := strings.ToLower(text)
	if start := strings.Index(lower, "root cause"); start >= 0 {
		section := text[start:]
		if end := strings.Index(section, "\n\n"); end >= 0 {
			section = section[:end]
		}
		return strings.TrimSpace(section)
	}
	paragraphs := strings.SplitN(text, "\n\n", 2)
	return strings.TrimSpace(paragraphs[0])
}

func extractRemediation(text string) []string {
	lower := strings.ToLower(text)
	markers := []string{"remediation", "steps to fix", "solution", "fix"}

	var steps []string
	for _, marker := range markers {
		start := strings.Index(lower, marker)
		if start < 0 {
			continue
		}
		section := text[start:]
		if end := strings.Index(section, "\n\n"); end >= 0 {
			section = section[:end]
		}
		for _, line := range strings.Split(section, "\n") {
			if item, ok := bulletItem(line); ok && len(item) > 10 {
				steps = append(steps, item)
				if len(steps) == maxListEntries {
					break
				}
			}
		}
		if len(steps) > 0 {
			break
		}
	}
	if len(steps) == 0 {
		return []string{"Review pod logs and events for more details"}
	}
	return steps
}
