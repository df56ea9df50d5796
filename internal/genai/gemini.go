package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiCompleter implements Completer on Gemini function calling.
type geminiCompleter struct {
	client *genai.Client
	model  string
}

// newGeminiCompleter creates a completer for one model.
func newGeminiCompleter(ctx context.Context, apiKey, model, baseURL string) (*geminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModels[0]
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiCompleter{client: client, model: model}, nil
}

// Complete sends one generate-content request.
func (c *geminiCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	system, contents, err := buildGeminiContents(req.Messages)
	if err != nil {
		return nil, WrapError(err, ProviderGemini, c.model, 0)
	}

	config := buildGeminiConfig(req, system)

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "generate content failed",
			"provider", ProviderGemini,
			"model", c.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, c.model, geminiStatusCode(err))
	}

	out, err := parseGeminiResponse(result)
	if err != nil {
		return nil, WrapError(err, ProviderGemini, c.model, 0)
	}
	out.Model = c.model

	slog.DebugContext(ctx, "generate content completed",
		"provider", ProviderGemini,
		"model", c.model,
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"tool_calls", len(out.ToolCalls),
		"duration_ms", duration.Milliseconds())

	return out, nil
}

func buildGeminiConfig(req Request, system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = buildGeminiTools(req.Tools)
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	return config
}

// Provider returns ProviderGemini.
func (c *geminiCompleter) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; the SDK client holds no open resources.
func (c *geminiCompleter) Close() error {
	return nil
}

func geminiStatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}

// buildGeminiContents splits system messages into one instruction and
// converts the rest to contents. Tool results become function responses.
func buildGeminiContents(msgs []Message) (string, []*genai.Content, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			parts := make([]*genai.Part, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if strings.TrimSpace(tc.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
						return "", nil, fmt.Errorf("tool call %s arguments: %w", tc.Name, err)
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				part.ThoughtSignature = tc.Signature
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"output": m.Content}
			}
			content := genai.NewContentFromFunctionResponse(m.ToolName, response, genai.RoleUser)
			content.Parts[0].FunctionResponse.ID = m.ToolCallID
			contents = append(contents, content)
		}
	}

	return strings.Join(system, "\n\n"), contents, nil
}

// buildGeminiTools converts tool definitions to function declarations.
func buildGeminiTools(tools []Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Params)),
		}
		for _, p := range t.Params {
			prop := &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Type == "array" {
				items := p.Items
				if items == "" {
					items = "string"
				}
				prop.Items = &genai.Schema{Type: geminiType(items)}
			}
			schema.Properties[p.Name] = prop
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// parseGeminiResponse collects text and function calls from the first candidate.
func parseGeminiResponse(result *genai.GenerateContentResponse) (*Response, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return nil, errors.New("no content in response")
	}

	out := &Response{Provider: ProviderGemini}
	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("encode function call args: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("%s-%d", part.FunctionCall.Name, i)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
				Signature: part.ThoughtSignature,
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	out.Text = strings.TrimSpace(text.String())

	if u := result.UsageMetadata; u != nil {
		out.InputTokens = int64(u.PromptTokenCount)
		out.OutputTokens = int64(u.CandidatesTokenCount)
	}
	return out, nil
}
