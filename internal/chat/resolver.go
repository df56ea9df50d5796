// Package chat resolves one user utterance into an answer using a
// tool-calling model and the NEIS adapter.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/genai"
	"github.com/garyellow/chatshhs-go/internal/logger"
	"github.com/garyellow/chatshhs-go/internal/neis"
	"github.com/garyellow/chatshhs-go/internal/schooldate"
)

const (
	defaultMaxTokens   = 150
	defaultTemperature = 0.7

	// EmptyAnswer is returned when the model produced no text.
	EmptyAnswer = "죄송해요, 답변을 만들지 못했어요. 다시 질문해 주세요."
)

// Querier runs validated NEIS requests. *neis.Client implements it.
type Querier interface {
	Query(ctx context.Context, req neis.QueryRequest) ([]string, error)
}

// Recorder receives resolver metrics. *metrics.Metrics implements it.
type Recorder interface {
	RecordChatTurn(outcome string, duration time.Duration)
	RecordToolCall(kind, status string)
}

// Resolver answers utterances within a session history.
type Resolver struct {
	completer   genai.Completer
	querier     Querier
	fields      *FieldTranslator
	recorder    Recorder
	log         *logger.Logger
	now         func() time.Time
	maxTokens   int
	temperature float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for date anchoring.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithSampling overrides the completion token limit and temperature.
func WithSampling(maxTokens int, temperature float64) Option {
	return func(r *Resolver) {
		r.maxTokens = maxTokens
		r.temperature = temperature
	}
}

// NewResolver creates a resolver. The completer also backs field
// translation for school info requests.
func NewResolver(completer genai.Completer, querier Querier, opts ...Option) *Resolver {
	r := &Resolver{
		completer:   completer,
		querier:     querier,
		fields:      NewFieldTranslator(completer),
		log:         logger.NewWithWriter("error", io.Discard),
		now:         time.Now,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond answers utterance and records the completed exchange in history.
//
// Relative date words are rewritten before the model sees them. When the
// model requests a tool call, only the first call is executed; its result
// is fed back for a second completion without tools. A failed turn leaves
// history unchanged.
func (r *Resolver) Respond(ctx context.Context, history *History, utterance string) (string, error) {
	start := time.Now()
	answer, exchange, err := r.respond(ctx, history, utterance)
	if r.recorder != nil {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "error"
		case len(exchange) > 2:
			outcome = "tool"
		}
		r.recorder.RecordChatTurn(outcome, time.Since(start))
	}
	if err != nil {
		return "", err
	}
	history.Append(exchange...)
	return answer, nil
}

func (r *Resolver) respond(ctx context.Context, history *History, utterance string) (string, []genai.Message, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", nil, domerrors.NewValidationError("message", "must not be empty")
	}
	if r.completer == nil {
		return "", nil, errors.New("completer not configured")
	}

	anchor := schooldate.Today(r.now())
	user := genai.Message{Role: genai.RoleUser, Content: schooldate.RewriteRelative(utterance, anchor)}

	msgs := []genai.Message{{Role: genai.RoleSystem, Content: systemPrompt(anchor)}}
	msgs = append(msgs, history.Messages()...)
	msgs = append(msgs, user)

	first, err := r.completer.Complete(ctx, genai.Request{
		Messages:    msgs,
		Tools:       []genai.Tool{SchoolInfoTool()},
		MaxTokens:   r.maxTokens,
		Temperature: genai.Float(r.temperature),
	})
	if err != nil {
		return "", nil, err
	}

	if len(first.ToolCalls) == 0 {
		answer := firstParagraph(first.Text)
		return answer, []genai.Message{user, {Role: genai.RoleAssistant, Content: answer}}, nil
	}

	exchange := []genai.Message{user, {Role: genai.RoleAssistant, Content: first.Text, ToolCalls: first.ToolCalls}}
	for i, tc := range first.ToolCalls {
		payload := toolPayload{Error: "한 번에 하나의 조회만 처리합니다."}
		if i == 0 {
			payload = r.dispatch(ctx, tc, anchor)
		}
		exchange = append(exchange, genai.Message{
			Role:       genai.RoleTool,
			Content:    payload.encode(),
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
		})
	}

	msgs = append(msgs, exchange[1:]...)
	msgs = append(msgs, genai.Message{Role: genai.RoleSystem, Content: answerInstruction})

	second, err := r.completer.Complete(ctx, genai.Request{
		Messages:    msgs,
		MaxTokens:   r.maxTokens,
		Temperature: genai.Float(r.temperature),
	})
	if err != nil {
		return "", nil, err
	}

	answer := firstParagraph(second.Text)
	exchange = append(exchange, genai.Message{Role: genai.RoleAssistant, Content: answer})
	return answer, exchange, nil
}

// dispatch executes one tool call and never fails: problems are reported
// to the model inside the payload.
func (r *Resolver) dispatch(ctx context.Context, tc genai.ToolCall, anchor time.Time) toolPayload {
	log := r.log.WithField("tool", tc.Name)

	if tc.Name != ToolName {
		r.recordTool("unknown", "invalid")
		return toolPayload{Error: "알 수 없는 도구입니다: " + tc.Name}
	}

	args, err := ParseToolArgs(tc.Arguments)
	if err != nil {
		r.recordTool("unknown", "invalid")
		return toolPayload{Error: describeError(err)}
	}
	req, err := PrepareQuery(args, anchor)
	if err != nil {
		log.WithError(err).WithField("arguments", tc.Arguments).Debug("Rejected tool arguments")
		r.recordTool(args.Kind, "invalid")
		return toolPayload{Error: describeError(err)}
	}

	if req.Kind == neis.KindSchoolInfo && req.Field != "" {
		if f, ok := r.fields.Resolve(ctx, req.Field); ok {
			req.Field = f.Code
		}
	}

	lines, err := r.querier.Query(ctx, req)
	switch {
	case err == nil:
		r.recordTool(req.Kind.String(), "success")
		return toolPayload{Result: lines}
	case len(lines) > 0:
		log.WithError(err).Warn("Partial NEIS result")
		r.recordTool(req.Kind.String(), "partial")
		return toolPayload{Result: lines, Error: describeError(err)}
	default:
		log.WithError(err).Warn("NEIS query failed")
		r.recordTool(req.Kind.String(), "error")
		return toolPayload{Error: describeError(err)}
	}
}

func (r *Resolver) recordTool(kind, status string) {
	if r.recorder != nil {
		r.recorder.RecordToolCall(kind, status)
	}
}

type toolPayload struct {
	Result []string `json:"result,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func (p toolPayload) encode() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return `{"error":"결과를 만들지 못했습니다."}`
	}
	return strings.TrimSpace(buf.String())
}

// describeError maps failures to model-facing text without upstream detail.
func describeError(err error) string {
	var ve *domerrors.ValidationError
	switch {
	case errors.Is(err, domerrors.ErrInvalidDate) && errors.As(err, &ve):
		return "잘못된 날짜 형식입니다: " + ve.Message
	case errors.Is(err, domerrors.ErrUnsupportedKind):
		return "지원하지 않는 조회 종류입니다."
	case errors.As(err, &ve):
		return "잘못된 요청입니다: " + ve.Field + " " + ve.Message
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "NEIS 응답 시간이 초과되었습니다."
	default:
		return "NEIS에서 정보를 가져오지 못했습니다."
	}
}

// firstParagraph keeps the text before the first blank line.
func firstParagraph(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return EmptyAnswer
	}
	return text
}
