package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubewise/kubewise/internal/config"
)

// Structured accessors for the diagnostics and optimizer services. Unlike
// the tool operations these return errors, callers decide how to degrade.

// PodSummary is a compact view of a pod.
type PodSummary struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Restarts  int    `json:"restarts"`
}

// ContainerInfo identifies a container and its image.
type ContainerInfo struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// PodCondition mirrors a pod status condition.
type PodCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// PodDetail is a structured pod description.
type PodDetail struct {
	Name       string          `json:"name"`
	Namespace  string          `json:"namespace"`
	Status     string          `json:"status"`
	Node       string          `json:"node"`
	IP         string          `json:"ip"`
	Containers []ContainerInfo `json:"containers"`
	Conditions []PodCondition  `json:"conditions"`
}

// PodEvent is a structured cluster event.
type PodEvent struct {
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NamespaceResources aggregates requests and limits across a namespace.
type NamespaceResources struct {
	PodCount         int `json:"pod_count"`
	CPURequestsMilli int `json:"cpu_requests_milli"`
	MemoryRequestsMi int `json:"memory_requests_mi"`
	CPULimitsMilli   int `json:"cpu_limits_milli"`
	MemoryLimitsMi   int `json:"memory_limits_mi"`
}

// CPURequests renders the aggregate CPU requests in millicores.
func (r NamespaceResources) CPURequests() string { return fmt.Sprintf("%dm", r.CPURequestsMilli) }

// MemoryRequests renders the aggregate memory requests in Mi.
func (r NamespaceResources) MemoryRequests() string { return fmt.Sprintf("%dMi", r.MemoryRequestsMi) }

// CPULimits renders the aggregate CPU limits in millicores.
func (r NamespaceResources) CPULimits() string { return fmt.Sprintf("%dm", r.CPULimitsMilli) }

// MemoryLimits renders the aggregate memory limits in Mi.
func (r NamespaceResources) MemoryLimits() string { return fmt.Sprintf("%dMi", r.MemoryLimitsMi) }

// PodSummaries lists pods in a namespace as structured data.
func (c *Client) PodSummaries(ctx context.Context, namespace string) ([]PodSummary, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", namespace, err)
	}

	summaries := make([]PodSummary, 0, len(pods.Items))
	for _, pod := range pods.Items {
		restarts := 0
		for _, cs := range pod.Status.ContainerStatuses {
			restarts += int(cs.RestartCount)
		}
		summaries = append(summaries, PodSummary{
			Name:      pod.Name,
			Namespace: namespace,
			Status:    string(pod.Status.Phase),
			Restarts:  restarts,
		})
	}
	return summaries, nil
}

// GetPodDetail fetches a structured description of one pod.
func (c *Client) GetPodDetail(ctx context.Context, podName, namespace string) (*PodDetail, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get pod %s/%s: %w", namespace, podName, err)
	}

	detail := &PodDetail{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Status:    string(pod.Status.Phase),
		Node:      pod.Spec.NodeName,
		IP:        pod.Status.PodIP,
	}
	for _, container := range pod.Spec.Containers {
		detail.Containers = append(detail.Containers, ContainerInfo{
			Name:  container.Name,
			Image: container.Image,
		})
	}
	for _, cond := range pod.Status.Conditions {
		detail.Conditions = append(detail.Conditions, PodCondition{
			Type:   string(cond.Type),
			Status: string(cond.Status),
			Reason: cond.Reason,
		})
	}
	return detail, nil
}

// PodEventList fetches events for a pod as structured data.
func (c *Client) PodEventList(ctx context.Context, podName, namespace string) ([]PodEvent, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	events, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: "involvedObject.name=" + podName,
	})
	if err != nil {
		return nil, fmt.Errorf("list events for %s/%s: %w", namespace, podName, err)
	}

	recent := c.recentEvents(events.Items)
	result := make([]PodEvent, 0, len(recent))
	for _, ev := range recent {
		result = append(result, PodEvent{
			Type:      ev.Type,
			Reason:    ev.Reason,
			Message:   ev.Message,
			Timestamp: eventTime(ev),
		})
	}
	return result, nil
}

// RawPodLogs fetches up to tailLines log lines without decoration.
func (c *Client) RawPodLogs(ctx context.Context, podName, namespace string, tailLines int) (string, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if tailLines <= 0 {
		tailLines = config.DefaultLogTailLines
	}
	tail := int64(tailLines)
	raw, err := c.clientset.CoreV1().Pods(namespace).
		GetLogs(podName, &corev1.PodLogOptions{TailLines: &tail}).
		Do(ctx).Raw()
	if err != nil {
		return "", fmt.Errorf("get logs for %s/%s: %w", namespace, podName, err)
	}
	return string(raw), nil
}

// GetNamespaceResources aggregates container requests and limits across all
// pods of a namespace. Quantities parse through apimachinery, so "2", "500m"
// or "1Gi" all count correctly.
func (c *Client) GetNamespaceResources(ctx context.Context, namespace string) (*NamespaceResources, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", namespace, err)
	}

	res := &NamespaceResources{PodCount: len(pods.Items)}
	for _, pod := range pods.Items {
		for _, container := range pod.Spec.Containers {
			if cpu, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
				res.CPURequestsMilli += int(cpu.MilliValue())
			}
			if mem, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
				res.MemoryRequestsMi += int(mem.Value() / (1024 * 1024))
			}
			if cpu, ok := container.Resources.Limits[corev1.ResourceCPU]; ok {
				res.CPULimitsMilli += int(cpu.MilliValue())
			}
			if mem, ok := container.Resources.Limits[corev1.ResourceMemory]; ok {
				res.MemoryLimitsMi += int(mem.Value() / (1024 * 1024))
			}
		}
	}
	return res, nil
}
