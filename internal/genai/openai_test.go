package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schoolTool = Tool{
	Name:        "get_school_info",
	Description: "학교 정보를 조회합니다.",
	Params: []Param{
		{Name: "kind", Type: "string", Enum: []string{"meal", "timetable"}, Required: true},
		{Name: "date", Type: "array", Items: "string"},
		{Name: "grade", Type: "integer"},
	},
}

func fakeOpenAI(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(raw, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAICompleter_ToolCall(t *testing.T) {
	t.Parallel()

	body := `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": null,
			"tool_calls": [{"id": "call_1", "type": "function",
				"function": {"name": "get_school_info", "arguments": "{\"kind\":\"meal\",\"date\":[\"20251223\"]}"}}]
		}}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 18, "total_tokens": 138}
	}`
	var captured map[string]any
	srv := fakeOpenAI(t, http.StatusOK, body, &captured)

	c, err := newOpenAICompleter("sk-test", "gpt-test", srv.URL+"/")
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleUser, Content: "2025년 12월 23일 급식"},
		},
		Tools:       []Tool{schoolTool},
		MaxTokens:   150,
		Temperature: Float(0.7),
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, resp.Provider)
	assert.Equal(t, "gpt-test", resp.Model)
	assert.Empty(t, resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_school_info", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"kind":"meal","date":["20251223"]}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, int64(120), resp.InputTokens)
	assert.Equal(t, int64(18), resp.OutputTokens)

	assert.Equal(t, "gpt-test", captured["model"])
	assert.Equal(t, "auto", captured["tool_choice"])
	assert.EqualValues(t, 150, captured["max_tokens"])
	assert.InDelta(t, 0.7, captured["temperature"], 1e-9)

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "get_school_info", fn["name"])
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, []any{"kind"}, params["required"])
	date := params["properties"].(map[string]any)["date"].(map[string]any)
	assert.Equal(t, "array", date["type"])

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAICompleter_ToolResultTranscript(t *testing.T) {
	t.Parallel()

	body := `{"id":"c2","object":"chat.completion","created":1,"model":"gpt-test",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  화요일 급식은 짜장면입니다.  "}}]}`
	var captured map[string]any
	srv := fakeOpenAI(t, http.StatusOK, body, &captured)

	c, err := newOpenAICompleter("sk-test", "gpt-test", srv.URL+"/")
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleUser, Content: "내일 급식"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "get_school_info", Arguments: `{"kind":"meal"}`}}},
		{Role: RoleTool, ToolCallID: "call_1", ToolName: "get_school_info", Content: `{"result":["20251223 : 급식 짜장면"]}`},
	}})
	require.NoError(t, err)
	assert.Equal(t, "화요일 급식은 짜장면입니다.", resp.Text)
	assert.Empty(t, resp.ToolCalls)

	_, hasTools := captured["tools"]
	assert.False(t, hasTools, "no tools must be sent when none are requested")

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	assert.Equal(t, "call_1", calls[0].(map[string]any)["id"])
	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
}

func TestOpenAICompleter_Temperature(t *testing.T) {
	t.Parallel()

	body := `{"id":"c3","object":"chat.completion","created":1,"model":"gpt-test",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ADDRESS"}}]}`

	tests := []struct {
		name        string
		temperature *float64
		want        any
		sent        bool
	}{
		{"zero is sent", Float(0), float64(0), true},
		{"unset is omitted", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured map[string]any
			srv := fakeOpenAI(t, http.StatusOK, body, &captured)

			c, err := newOpenAICompleter("sk-test", "gpt-test", srv.URL+"/")
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), Request{
				Messages:    []Message{{Role: RoleUser, Content: "주소"}},
				MaxTokens:   20,
				Temperature: tt.temperature,
			})
			require.NoError(t, err)

			got, ok := captured["temperature"]
			assert.Equal(t, tt.sent, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAICompleter_HTTPError(t *testing.T) {
	t.Parallel()

	srv := fakeOpenAI(t, http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, nil)

	c, err := newOpenAICompleter("sk-test", "gpt-test", srv.URL+"/")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusTooManyRequests, llmErr.StatusCode)
	assert.Equal(t, ActionRetry, ClassifyError(err))
}

func TestNewOpenAICompleter_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := newOpenAICompleter("", "gpt-test", "")
	assert.Error(t, err)

	c, err := newOpenAICompleter("sk", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModels[0], c.model)
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

func TestJSONSchema(t *testing.T) {
	t.Parallel()

	schema := jsonSchema(schoolTool.Params)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"kind"}, schema["required"])

	props := schema["properties"].(map[string]any)
	kind := props["kind"].(map[string]any)
	assert.Equal(t, []string{"meal", "timetable"}, kind["enum"])
	date := props["date"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, date["items"])
}
