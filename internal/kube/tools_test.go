package kube

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/kubewise/kubewise/internal/logging"
)

func crashingPod(name, namespace string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PodSpec{
			NodeName: "node-1",
			Containers: []corev1.Container{{
				Name:  "app",
				Image: "registry.example.com/app:1.4",
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceCPU:    resource.MustParse("100m"),
						corev1.ResourceMemory: resource.MustParse("128Mi"),
					},
					Limits: corev1.ResourceList{
						corev1.ResourceCPU:    resource.MustParse("500m"),
						corev1.ResourceMemory: resource.MustParse("256Mi"),
					},
				},
			}},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			PodIP: "10.0.0.7",
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionFalse, Reason: "ContainersNotReady"},
			},
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:         "app",
				Ready:        false,
				RestartCount: 4,
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
				},
			}},
		},
	}
}

func TestListPods(t *testing.T) {
	clientset := fake.NewSimpleClientset(crashingPod("api-7d9f", "prod"))
	c := NewWithClientset(clientset, logging.NewLogger("error"))

	out := c.ListPods(context.Background(), "prod")
	assert.Contains(t, out, "Pods in namespace 'prod':")
	assert.Contains(t, out, "- api-7d9f")
	assert.Contains(t, out, "Status: Running | Ready: 0/1 | Restarts: 4")
	assert.Contains(t, out, "Container 'app' waiting: CrashLoopBackOff")
}

func TestListPodsEmpty(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(), logging.NewLogger("error"))

	out := c.ListPods(context.Background(), "empty")
	assert.Equal(t, "No pods found in namespace 'empty'", out)
}

func TestListPodsDefaultNamespace(t *testing.T) {
	pod := crashingPod("web", "default")
	c := NewWithClientset(fake.NewSimpleClientset(pod), logging.NewLogger("error"))

	out := c.ListPods(context.Background(), "")
	assert.Contains(t, out, "Pods in namespace 'default':")
	assert.Contains(t, out, "- web")
}

func TestGetPodEvents(t *testing.T) {
	older := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-1", Namespace: "prod"},
		InvolvedObject: corev1.ObjectReference{Name: "api-7d9f", Namespace: "prod"},
		Type:           "Normal",
		Reason:         "Scheduled",
		Message:        "Successfully assigned prod/api-7d9f to node-1",
		LastTimestamp:  metav1.NewTime(time.Now().Add(-2 * time.Hour)),
	}
	newer := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-2", Namespace: "prod"},
		InvolvedObject: corev1.ObjectReference{Name: "api-7d9f", Namespace: "prod"},
		Type:           "Warning",
		Reason:         "BackOff",
		Message:        "Back-off restarting failed container",
		LastTimestamp:  metav1.NewTime(time.Now().Add(-time.Hour)),
	}
	c := NewWithClientset(fake.NewSimpleClientset(older, newer), logging.NewLogger("error"))

	out := c.GetPodEvents(context.Background(), "api-7d9f", "prod")
	assert.Contains(t, out, "Events for pod 'api-7d9f':")
	assert.Contains(t, out, "[Warning] BackOff: Back-off restarting failed container")
	// newest first
	assert.Less(t, strings.Index(out, "BackOff"), strings.Index(out, "Scheduled"))
}

func TestGetPodEventsLookback(t *testing.T) {
	stale := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-1", Namespace: "prod"},
		InvolvedObject: corev1.ObjectReference{Name: "api-7d9f", Namespace: "prod"},
		Type:           "Normal",
		Reason:         "Scheduled",
		Message:        "Successfully assigned prod/api-7d9f to node-1",
		LastTimestamp:  metav1.NewTime(time.Now().Add(-48 * time.Hour)),
	}
	fresh := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-2", Namespace: "prod"},
		InvolvedObject: corev1.ObjectReference{Name: "api-7d9f", Namespace: "prod"},
		Type:           "Warning",
		Reason:         "BackOff",
		Message:        "Back-off restarting failed container",
		LastTimestamp:  metav1.NewTime(time.Now().Add(-time.Hour)),
	}
	c := NewWithClientset(fake.NewSimpleClientset(stale, fresh), logging.NewLogger("error"))
	c.eventLookback = 24 * time.Hour

	out := c.GetPodEvents(context.Background(), "api-7d9f", "prod")
	assert.Contains(t, out, "BackOff")
	assert.NotContains(t, out, "Scheduled")
}

func TestGetPodEventsAllStale(t *testing.T) {
	stale := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-1", Namespace: "prod"},
		InvolvedObject: corev1.ObjectReference{Name: "api-7d9f", Namespace: "prod"},
		Type:           "Normal",
		Reason:         "Scheduled",
		Message:        "Successfully assigned prod/api-7d9f to node-1",
		LastTimestamp:  metav1.NewTime(time.Now().Add(-48 * time.Hour)),
	}
	c := NewWithClientset(fake.NewSimpleClientset(stale), logging.NewLogger("error"))
	c.eventLookback = 24 * time.Hour

	out := c.GetPodEvents(context.Background(), "api-7d9f", "prod")
	assert.Equal(t, "No events found for pod 'api-7d9f'", out)
}

func TestGetPodEventsNone(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(), logging.NewLogger("error"))

	out := c.GetPodEvents(context.Background(), "ghost", "prod")
	assert.Equal(t, "No events found for pod 'ghost'", out)
}

func TestDescribePod(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(crashingPod("api-7d9f", "prod")), logging.NewLogger("error"))

	out := c.DescribePod(context.Background(), "api-7d9f", "prod")
	assert.Contains(t, out, "Pod: api-7d9f")
	assert.Contains(t, out, "Namespace: prod")
	assert.Contains(t, out, "Node: node-1")
	assert.Contains(t, out, "IP: 10.0.0.7")
	assert.Contains(t, out, "- Ready: False (ContainersNotReady)")
	assert.Contains(t, out, "Image: registry.example.com/app:1.4")
	assert.Contains(t, out, "Requests: cpu=100m, memory=128Mi")
	assert.Contains(t, out, "Limits: cpu=500m, memory=256Mi")
	assert.Contains(t, out, "- app: Ready=false, Restarts=4")
	assert.Contains(t, out, "State: Waiting - CrashLoopBackOff")
}

func TestDescribePodMissing(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(), logging.NewLogger("error"))

	out := c.DescribePod(context.Background(), "ghost", "prod")
	assert.Contains(t, out, "Error describing pod:")
}

func TestListDeployments(t *testing.T) {
	replicas := int32(3)
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "prod"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas:     1,
			AvailableReplicas: 1,
			Conditions: []appsv1.DeploymentCondition{{
				Type:    appsv1.DeploymentAvailable,
				Status:  corev1.ConditionFalse,
				Message: "Deployment does not have minimum availability.",
			}},
		},
	}
	c := NewWithClientset(fake.NewSimpleClientset(dep), logging.NewLogger("error"))

	out := c.ListDeployments(context.Background(), "prod")
	assert.Contains(t, out, "Deployments in namespace 'prod':")
	assert.Contains(t, out, "- api")
	assert.Contains(t, out, "Ready: 1/3 | Available: 1")
	assert.Contains(t, out, "Warning: Not Available - Deployment does not have minimum availability.")
}

func TestGetNodes(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Status: corev1.NodeStatus{
			NodeInfo: corev1.NodeSystemInfo{
				OSImage:        "Ubuntu 24.04 LTS",
				KubeletVersion: "v1.33.2",
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionTrue, Message: "kubelet has insufficient memory available"},
			},
			Capacity: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("8"),
				corev1.ResourceMemory: resource.MustParse("32Gi"),
			},
		},
	}
	c := NewWithClientset(fake.NewSimpleClientset(node), logging.NewLogger("error"))

	out := c.GetNodes(context.Background())
	assert.Contains(t, out, "Cluster Nodes:")
	assert.Contains(t, out, "- node-1")
	assert.Contains(t, out, "OS: Ubuntu 24.04 LTS")
	assert.Contains(t, out, "Kubelet: v1.33.2")
	assert.Contains(t, out, "Status: Ready")
	assert.Contains(t, out, "Warning MemoryPressure: kubelet has insufficient memory available")
	assert.Contains(t, out, "CPU: 8")
	assert.Contains(t, out, "Memory: 32Gi")
}

func TestListNamespaces(t *testing.T) {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "prod"},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceActive},
	}
	c := NewWithClientset(fake.NewSimpleClientset(ns), logging.NewLogger("error"))

	out := c.ListNamespaces(context.Background())
	assert.Contains(t, out, "Namespaces:")
	assert.Contains(t, out, "- prod (Active)")
}

func TestGetPodLogs(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(crashingPod("api-7d9f", "prod")), logging.NewLogger("error"))

	out := c.GetPodLogs(context.Background(), "api-7d9f", "prod", 50)
	// The fake clientset serves a fixed log body
	assert.Contains(t, out, "Logs for pod 'api-7d9f' (last 50 lines):")
	assert.Contains(t, out, "fake logs")
}

func TestGetPodLogsClampsTail(t *testing.T) {
	c := NewWithClientset(fake.NewSimpleClientset(crashingPod("api-7d9f", "prod")), logging.NewLogger("error"))

	out := c.GetPodLogs(context.Background(), "api-7d9f", "prod", 100000)
	assert.Contains(t, out, "(last 500 lines)")

	out = c.GetPodLogs(context.Background(), "api-7d9f", "prod", 0)
	assert.Contains(t, out, "(last 100 lines)")
}
