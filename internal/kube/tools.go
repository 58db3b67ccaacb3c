package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubewise/kubewise/internal/config"
)

// The operations in this file return formatted text for the agent. Cluster
// API errors come back as readable text instead of Go errors so the model
// can report them and move on.

// ListPods lists pods in a namespace with status, readiness and restarts.
func (c *Client) ListPods(ctx context.Context, namespace string) string {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Sprintf("Error listing pods: %v", err)
	}
	if len(pods.Items) == 0 {
		return fmt.Sprintf("No pods found in namespace '%s'", namespace)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pods in namespace '%s':\n\n", namespace)
	for _, pod := range pods.Items {
		restarts := 0
		readyCount := 0
		for _, cs := range pod.Status.ContainerStatuses {
			restarts += int(cs.RestartCount)
			if cs.Ready {
				readyCount++
			}
		}
		ready := fmt.Sprintf("%d/%d", readyCount, len(pod.Status.ContainerStatuses))

		fmt.Fprintf(&b, "- %s\n", pod.Name)
		fmt.Fprintf(&b, "  Status: %s | Ready: %s | Restarts: %d\n", pod.Status.Phase, ready, restarts)
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Waiting != nil {
				fmt.Fprintf(&b, "  Container '%s' waiting: %s\n", cs.Name, cs.State.Waiting.Reason)
			} else if cs.State.Terminated != nil {
				fmt.Fprintf(&b, "  Container '%s' terminated: %s\n", cs.Name, cs.State.Terminated.Reason)
			}
		}
	}
	return b.String()
}

// GetPodLogs fetches the last tailLines lines of a pod's logs. tailLines
// values outside (0, maxLogLines] are clamped.
func (c *Client) GetPodLogs(ctx context.Context, podName, namespace string, tailLines int) string {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if tailLines <= 0 {
		tailLines = config.DefaultLogTailLines
	}
	if tailLines > c.maxLogLines {
		tailLines = c.maxLogLines
	}

	tail := int64(tailLines)
	raw, err := c.clientset.CoreV1().Pods(namespace).
		GetLogs(podName, &corev1.PodLogOptions{TailLines: &tail}).
		Do(ctx).Raw()
	if err != nil {
		return fmt.Sprintf("Error getting logs: %v", err)
	}
	if len(raw) == 0 {
		return fmt.Sprintf("No logs available for pod '%s'", podName)
	}
	return fmt.Sprintf("Logs for pod '%s' (last %d lines):\n\n%s", podName, tailLines, raw)
}

// GetPodEvents lists events for a pod, newest first.
func (c *Client) GetPodEvents(ctx context.Context, podName, namespace string) string {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	events, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: "involvedObject.name=" + podName,
	})
	if err != nil {
		return fmt.Sprintf("Error getting events: %v", err)
	}
	recent := c.recentEvents(events.Items)
	if len(recent) == 0 {
		return fmt.Sprintf("No events found for pod '%s'", podName)
	}

	sorted := make([]corev1.Event, len(recent))
	copy(sorted, recent)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventTime(sorted[i]).After(eventTime(sorted[j]))
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Events for pod '%s':\n\n", podName)
	for _, ev := range sorted {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.Type, ev.Reason, ev.Message)
		fmt.Fprintf(&b, "  Time: %s\n\n", eventTime(ev).Format(time.RFC3339))
	}
	return b.String()
}

func eventTime(ev corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	return ev.EventTime.Time
}

// recentEvents drops events older than the configured lookback window.
// Events without a timestamp are kept.
func (c *Client) recentEvents(events []corev1.Event) []corev1.Event {
	if c.eventLookback <= 0 {
		return events
	}
	cutoff := time.Now().Add(-c.eventLookback)
	recent := make([]corev1.Event, 0, len(events))
	for _, ev := range events {
		if t := eventTime(ev); !t.IsZero() && t.Before(cutoff) {
			continue
		}
		recent = append(recent, ev)
	}
	return recent
}

// DescribePod returns a detailed view of a pod with conditions, containers
// and container statuses.
func (c *Client) DescribePod(ctx context.Context, podName, namespace string) string {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		return fmt.Sprintf("Error describing pod: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pod: %s\n", pod.Name)
	fmt.Fprintf(&b, "Namespace: %s\n", pod.Namespace)
	fmt.Fprintf(&b, "Node: %s\n", pod.Spec.NodeName)
	fmt.Fprintf(&b, "Status: %s\n", pod.Status.Phase)
	fmt.Fprintf(&b, "IP: %s\n\n", pod.Status.PodIP)

	b.WriteString("Conditions:\n")
	for _, cond := range pod.Status.Conditions {
		fmt.Fprintf(&b, "  - %s: %s", cond.Type, cond.Status)
		if cond.Reason != "" {
			fmt.Fprintf(&b, " (%s)", cond.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nContainers:\n")
	for _, container := range pod.Spec.Containers {
		fmt.Fprintf(&b, "  - %s\n", container.Name)
		fmt.Fprintf(&b, "    Image: %s\n", container.Image)
		if len(container.Resources.Requests) > 0 {
			fmt.Fprintf(&b, "    Requests: %s\n", formatResourceList(container.Resources.Requests))
		}
		if len(container.Resources.Limits) > 0 {
			fmt.Fprintf(&b, "    Limits: %s\n", formatResourceList(container.Resources.Limits))
		}
	}

	if len(pod.Status.ContainerStatuses) > 0 {
		b.WriteString("\nContainer Statuses:\n")
		for _, cs := range pod.Status.ContainerStatuses {
			fmt.Fprintf(&b, "  - %s: Ready=%t, Restarts=%d\n", cs.Name, cs.Ready, cs.RestartCount)
			switch {
			case cs.State.Waiting != nil:
				fmt.Fprintf(&b, "    State: Waiting - %s\n", cs.State.Waiting.Reason)
			case cs.State.Running != nil:
				fmt.Fprintf(&b, "    State: Running since %s\n", cs.State.Running.StartedAt.Format(time.RFC3339))
			case cs.State.Terminated != nil:
				fmt.Fprintf(&b, "    State: Terminated - %s\n", cs.State.Terminated.Reason)
			}
		}
	}
	return b.String()
}

func formatResourceList(list corev1.ResourceList) string {
	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, string(name))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		qty := list[corev1.ResourceName(name)]
		parts = append(parts, fmt.Sprintf("%s=%s", name, qty.String()))
	}
	return strings.Join(parts, ", ")
}

// ListDeployments lists deployments with replica counts and condition
// warnings.
func (c *Client) ListDeployments(ctx context.Context, namespace string) string {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	deployments, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Sprintf("Error listing deployments: %v", err)
	}
	if len(deployments.Items) == 0 {
		return fmt.Sprintf("No deployments found in namespace '%s'", namespace)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deployments in namespace '%s':\n\n", namespace)
	for _, dep := range deployments.Items {
		desired := int32(0)
		if dep.Spec.Replicas != nil {
			desired = *dep.Spec.Replicas
		}
		fmt.Fprintf(&b, "- %s\n", dep.Name)
		fmt.Fprintf(&b, "  Ready: %d/%d | Available: %d\n", dep.Status.ReadyReplicas, desired, dep.Status.AvailableReplicas)
		for _, cond := range dep.Status.Conditions {
			if cond.Type == "Available" && cond.Status != corev1.ConditionTrue {
				fmt.Fprintf(&b, "  Warning: Not Available - %s\n", cond.Message)
			} else if cond.Type == "Progressing" && cond.Status != corev1.ConditionTrue {
				fmt.Fprintf(&b, "  Warning: Not Progressing - %s\n", cond.Message)
			}
		}
	}
	return b.String()
}

// GetNodes reports node OS, kubelet version, readiness, pressure warnings
// and capacity.
func (c *Client) GetNodes(ctx context.Context) string {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Sprintf("Error getting nodes: %v", err)
	}
	if len(nodes.Items) == 0 {
		return "No nodes found in cluster"
	}

	var b strings.Builder
	b.WriteString("Cluster Nodes:\n\n")
	for _, node := range nodes.Items {
		fmt.Fprintf(&b, "- %s\n", node.Name)
		fmt.Fprintf(&b, "  OS: %s\n", node.Status.NodeInfo.OSImage)
		fmt.Fprintf(&b, "  Kubelet: %s\n", node.Status.NodeInfo.KubeletVersion)

		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady {
				status := "Ready"
				if cond.Status != corev1.ConditionTrue {
					status = "Not Ready"
				}
				fmt.Fprintf(&b, "  Status: %s\n", status)
			} else if cond.Status == corev1.ConditionTrue {
				fmt.Fprintf(&b, "  Warning %s: %s\n", cond.Type, cond.Message)
			}
		}

		if cpu, ok := node.Status.Capacity[corev1.ResourceCPU]; ok {
			fmt.Fprintf(&b, "  CPU: %s\n", cpu.String())
		}
		if mem, ok := node.Status.Capacity[corev1.ResourceMemory]; ok {
			fmt.Fprintf(&b, "  Memory: %s\n", mem.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ListNamespaces lists namespaces with their phase.
func (c *Client) ListNamespaces(ctx context.Context) string {
	namespaces, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Sprintf("Error listing namespaces: %v", err)
	}
	if len(namespaces.Items) == 0 {
		return "No namespaces found"
	}

	var b strings.Builder
	b.WriteString("Namespaces:\n\n")
	for _, ns := range namespaces.Items {
		fmt.Fprintf(&b, "- %s (%s)\n", ns.Name, ns.Status.Phase)
	}
	return b.String()
}
