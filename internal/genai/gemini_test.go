package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildGeminiContents(t *testing.T) {
	t.Parallel()

	system, contents, err := buildGeminiContents([]Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "내일 급식"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID: "call-1", Name: "get_school_info", Arguments: `{"kind":"meal"}`, Signature: []byte("sig"),
		}}},
		{Role: RoleTool, ToolCallID: "call-1", ToolName: "get_school_info", Content: `{"result":["a"]}`},
		{Role: RoleSystem, Content: "answer from the result"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rules\n\nanswer from the result", system)
	require.Len(t, contents, 3)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, "내일 급식", contents[0].Parts[0].Text)

	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	fc := contents[1].Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "get_school_info", fc.Name)
	assert.Equal(t, "call-1", fc.ID)
	assert.Equal(t, map[string]any{"kind": "meal"}, fc.Args)
	assert.Equal(t, []byte("sig"), contents[1].Parts[0].ThoughtSignature)

	fr := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "get_school_info", fr.Name)
	assert.Equal(t, "call-1", fr.ID)
	assert.Equal(t, []any{"a"}, fr.Response["result"])
}

func TestBuildGeminiContents_NonJSONToolResult(t *testing.T) {
	t.Parallel()

	_, contents, err := buildGeminiContents([]Message{
		{Role: RoleTool, ToolName: "get_school_info", Content: "plain text"},
	})
	require.NoError(t, err)
	assert.Equal(t, "plain text", contents[0].Parts[0].FunctionResponse.Response["output"])
}

func TestBuildGeminiContents_BadArguments(t *testing.T) {
	t.Parallel()

	_, _, err := buildGeminiContents([]Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "get_school_info", Arguments: "{not json"}}},
	})
	assert.Error(t, err)
}

func TestBuildGeminiTools(t *testing.T) {
	t.Parallel()

	tools := buildGeminiTools([]Tool{schoolTool})
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)

	decl := tools[0].FunctionDeclarations[0]
	assert.Equal(t, "get_school_info", decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"kind"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeArray, decl.Parameters.Properties["date"].Type)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["date"].Items.Type)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["grade"].Type)
	assert.Equal(t, []string{"meal", "timetable"}, decl.Parameters.Properties["kind"].Enum)
}

func TestParseGeminiResponse(t *testing.T) {
	t.Parallel()

	t.Run("function call", func(t *testing.T) {
		t.Parallel()
		resp, err := parseGeminiResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{FunctionCall: &genai.FunctionCall{Name: "get_school_info", Args: map[string]any{"kind": "calendar"}}},
			}}}},
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 7},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Text)
		require.Len(t, resp.ToolCalls, 1)
		assert.Equal(t, "get_school_info-1", resp.ToolCalls[0].ID)
		assert.JSONEq(t, `{"kind":"calendar"}`, resp.ToolCalls[0].Arguments)
		assert.Equal(t, int64(40), resp.InputTokens)
		assert.Equal(t, int64(7), resp.OutputTokens)
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		resp, err := parseGeminiResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "안녕하세요 "}, {Text: "ChatSHHS입니다."},
			}}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "안녕하세요 ChatSHHS입니다.", resp.Text)
		assert.Equal(t, ProviderGemini, resp.Provider)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := parseGeminiResponse(&genai.GenerateContentResponse{})
		assert.Error(t, err)
		_, err = parseGeminiResponse(nil)
		assert.Error(t, err)
	})
}

func TestBuildGeminiConfig(t *testing.T) {
	t.Parallel()

	cfg := buildGeminiConfig(Request{MaxTokens: 20, Temperature: Float(0)}, "system")
	require.NotNil(t, cfg.Temperature)
	assert.Zero(t, *cfg.Temperature)
	assert.Equal(t, int32(20), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Nil(t, cfg.ToolConfig)

	cfg = buildGeminiConfig(Request{Tools: []Tool{schoolTool}}, "")
	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.SystemInstruction)
	require.NotNil(t, cfg.ToolConfig)
	assert.Len(t, cfg.Tools, 1)
}
