package cost

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
)

const allocationPayload = `{
  "data": [
    {
      "prod": {
        "name": "prod",
        "properties": {
          "node": "node-1",
          "namespace": "prod",
          "labels": {"beta_kubernetes_io_instance_type": "m5.large"}
        },
        "cpuCores": 2.0,
        "cpuCoreUsageAverage": 0.4,
        "ramBytes": 4294967296,
        "cpuCost": 12.5,
        "ramCost": 6.25,
        "pvCost": 1.0,
        "totalCost": 19.75
      },
      "staging": {
        "name": "staging",
        "properties": {
          "node": "node-2",
          "namespace": "staging"
        },
        "cpuCores": 1.0,
        "cpuCoreUsageAverage": 0.1,
        "ramBytes": 1073741824,
        "cpuCost": 6.0,
        "ramCost": 1.5,
        "totalCost": 7.5
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.CostConfig{
		OpenCostURLs: map[string]string{"main": srv.URL},
		Window:       "7d",
	}
	return NewClient(cfg, logging.NewLogger("error"))
}

func TestAllocations(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/model/allocation/compute", r.URL.Path)
		fmt.Fprint(w, allocationPayload)
	})

	allocations, err := c.Allocations(context.Background(), "main", "", "")
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	assert.Contains(t, gotQuery, "window=7d")
	assert.Contains(t, gotQuery, "aggregate=namespace")
	assert.Contains(t, gotQuery, "includeIdle=true")
	assert.Contains(t, gotQuery, "accumulate=true")

	byName := map[string]Allocation{}
	for _, a := range allocations {
		byName[a.Name] = a
	}
	prod := byName["prod"]
	assert.Equal(t, "node-1", prod.Node)
	assert.Equal(t, "m5.large", prod.InstanceType)
	assert.Equal(t, 19.75, prod.TotalCost)
	assert.Equal(t, "7d", prod.Window)
	assert.Equal(t, "unknown", byName["staging"].InstanceType)
}

func TestAllocationsNodeFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, allocationPayload)
	})

	allocations, err := c.Allocations(context.Background(), "main", "30d", "node-2")
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, "staging", allocations[0].Name)
	assert.Equal(t, "30d", allocations[0].Window)
}

func TestReloadPicksUpNewClusters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, allocationPayload)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.CostConfig{OpenCostURLs: map[string]string{}, Window: "7d"}, logging.NewLogger("error"))
	_, err := c.Allocations(context.Background(), "edge", "", "")
	require.ErrorIs(t, err, ErrUnknownCluster)

	c.Reload(config.CostConfig{
		OpenCostURLs: map[string]string{"edge": srv.URL},
		Window:       "1d",
	})

	allocations, err := c.Allocations(context.Background(), "edge", "", "")
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, "1d", allocations[0].Window)
}

func TestAllocationsUnknownCluster(t *testing.T) {
	c := NewClient(config.CostConfig{OpenCostURLs: map[string]string{}}, logging.NewLogger("error"))
	_, err := c.Allocations(context.Background(), "missing", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OpenCost URL configured for cluster 'missing'")
}

func TestAllocationsBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Allocations(context.Background(), "main", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAllocationsEmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	})
	_, err := c.Allocations(context.Background(), "main", "", "")
	require.Error(t, err)
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

type fakeSource struct {
	allocations []Allocation
	err         error
}

func (f *fakeSource) Allocations(_ context.Context, _, _, _ string) ([]Allocation, error) {
	return f.allocations, f.err
}

func sampleAllocations() []Allocation {
	return []Allocation{
		{Name: "prod", InstanceType: "m5.large", CPUCores: 2, CPUCoreUsageAverage: 0.4,
			RAMBytes: 4294967296, CPUCost: 12.5, RAMCost: 6.25, PVCost: 1, TotalCost: 19.75, Window: "7d"},
		{Name: "staging", InstanceType: "unknown", CPUCores: 1, TotalCost: 7.5, Window: "7d"},
	}
}

func TestGenerateReport(t *testing.T) {
	chat := &fakeChat{content: "Reduce prod CPU requests to save roughly $8/month."}
	advisor := NewAdvisor(&fakeSource{allocations: sampleAllocations()}, chat, logging.NewLogger("error"))

	report, err := advisor.GenerateReport(context.Background(), "main", "7d")
	require.NoError(t, err)

	assert.Equal(t, "main", report.Cluster)
	assert.Equal(t, "7d", report.Window)
	assert.Equal(t, 27.25, report.TotalCost)
	assert.Equal(t, 2, report.Allocations)
	assert.Contains(t, report.Analysis, "Reduce prod CPU")

	require.Len(t, chat.lastMsgs, 1)
	content := chat.lastMsgs[0].Content
	assert.Contains(t, content, "cpu 2.00 cores (avg usage 0.40)")
	assert.Contains(t, content, "ram 4096 MiB")
	assert.Contains(t, content, "(m5.large): cpu $12.50, ram $6.25, pv $1.00, total $19.75 over 7d")
}

func TestGenerateReportNoData(t *testing.T) {
	advisor := NewAdvisor(&fakeSource{}, &fakeChat{}, logging.NewLogger("error"))
	_, err := advisor.GenerateReport(context.Background(), "main", "7d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no allocation data")
}

func TestGenerateReportSourceError(t *testing.T) {
	advisor := NewAdvisor(&fakeSource{err: fmt.Errorf("502")}, &fakeChat{}, logging.NewLogger("error"))
	_, err := advisor.GenerateReport(context.Background(), "main", "")
	require.Error(t, err)
}

func TestGenerateReportLLMError(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("all providers failed")}
	advisor := NewAdvisor(&fakeSource{allocations: sampleAllocations()}, chat, logging.NewLogger("error"))
	_, err := advisor.GenerateReport(context.Background(), "main", "7d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate cost report")
}
