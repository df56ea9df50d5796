package chat

import (
	"context"
	"strings"

	"github.com/garyellow/chatshhs-go/internal/genai"
	"github.com/garyellow/chatshhs-go/internal/neis"
)

// FieldTranslator maps free-form school info requests onto column codes
// with one constrained model call. It never touches session history.
type FieldTranslator struct {
	completer genai.Completer
}

// NewFieldTranslator creates a translator backed by completer.
func NewFieldTranslator(completer genai.Completer) *FieldTranslator {
	return &FieldTranslator{completer: completer}
}

// Resolve returns the field for request. Table lookups are tried first;
// the model is only asked when they fail. Unknown requests return false.
func (t *FieldTranslator) Resolve(ctx context.Context, request string) (neis.Field, bool) {
	if f, ok := neis.LookupField(request); ok {
		return f, true
	}
	if t == nil || t.completer == nil || strings.TrimSpace(request) == "" {
		return neis.Field{}, false
	}

	resp, err := t.completer.Complete(ctx, genai.Request{
		Messages: []genai.Message{
			{Role: genai.RoleSystem, Content: fieldPrompt()},
			{Role: genai.RoleUser, Content: request},
		},
		MaxTokens:   20,
		Temperature: genai.Float(0),
	})
	if err != nil || resp == nil {
		return neis.Field{}, false
	}

	code := strings.ToUpper(strings.Trim(strings.TrimSpace(resp.Text), "`'\"."))
	if code == "" || code == "NONE" {
		return neis.Field{}, false
	}
	for _, f := range neis.SchoolFields() {
		if f.Code == code {
			return f, true
		}
	}
	return neis.Field{}, false
}
