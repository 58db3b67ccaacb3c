package queryfilter

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
)

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

func newService(chat chatClient) *Service {
	return NewService(chat, logging.NewLogger("error"))
}

func TestParse(t *testing.T) {
	chat := &fakeChat{content: `[{"field":"status","operator":"equals","value":"Running"},{"field":"restarts","operator":"greater_than","value":3}]`}
	resp := newService(chat).Parse(context.Background(), "running pods with many restarts")

	require.Len(t, resp.Filters, 2)
	assert.Equal(t, "status", resp.Filters[0].Field)
	assert.Equal(t, "equals", resp.Filters[0].Operator)
	assert.Equal(t, "Running", resp.Filters[0].Value)
	assert.Equal(t, "greater_than", resp.Filters[1].Operator)
	assert.Equal(t, float64(3), resp.Filters[1].Value)
	assert.Equal(t, "running pods with many restarts", resp.RawQuery)
	assert.Equal(t, 0.95, resp.Confidence)
}

func TestParseStripsSurroundingProse(t *testing.T) {
	chat := &fakeChat{content: "Here are the filters:\n```json\n[{\"field\":\"namespace\",\"operator\":\"equals\",\"value\":\"prod\"}]\n```"}
	resp := newService(chat).Parse(context.Background(), "pods inprod")

	require.Len(t, resp.Filters, 1)
	assert.Equal(t, "namespace", resp.Filters[0].Field)
	assert.Equal(t, 0.95, resp.Confidence)
}

func TestParseEmptyArrayLowersConfidence(t *testing.T) {
	chat := &fakeChat{content: "[]"}
	resp := newService(chat).Parse(context.Background(), "show me everything")

	assert.Empty(t, resp.Filters)
	assert.Equal(t, 0.5, resp.Confidence)
}

func TestParseInvalidJSONFallsBack(t *testing.T) {
	chat := &fakeChat{content: "I cannot produce filters for that."}
	resp := newService(chat).Parse(context.Background(), "show failed pods")

	require.Len(t, resp.Filters, 1)
	assert.Equal(t, Filter{Field: "status", Operator: "equals", Value: "Failed"}, resp.Filters[0])
	assert.Equal(t, 0.3, resp.Confidence)
}

func TestParseProviderErrorFallsBack(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("all providers failed")}
	resp := newService(chat).Parse(context.Background(), "pending pods")

	require.Len(t, resp.Filters, 1)
	assert.Equal(t, "Pending", resp.Filters[0].Value)
	assert.Equal(t, 0.3, resp.Confidence)
}

func TestFallbackNoKeywordMatch(t *testing.T) {
	resp := fallbackFilter("something unrelated")
	assert.Empty(t, resp.Filters)
	assert.Equal(t, 0.3, resp.Confidence)
}

func TestParseAppendsJSONInstruction(t *testing.T) {
	chat := &fakeChat{content: "[]"}
	newService(chat).Parse(context.Background(), "anything")

	require.Len(t, chat.lastMsgs, 3)
	assert.Equal(t, llm.RoleSystem, chat.lastMsgs[2].Role)
	assert.Contains(t, chat.lastMsgs[2].Content, "Return only valid JSON array")
}
