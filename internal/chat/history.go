package chat

import (
	"sync"

	"github.com/garyellow/chatshhs-go/internal/genai"
)

// DefaultMaxExchanges bounds how many completed exchanges a history keeps.
const DefaultMaxExchanges = 20

// Exchange is one completed user turn: the rewritten utterance, any tool
// round trip, and the final answer.
type Exchange struct {
	Messages []genai.Message
}

// Utterance returns the user text that opened the exchange.
func (e Exchange) Utterance() string {
	for _, m := range e.Messages {
		if m.Role == genai.RoleUser {
			return m.Content
		}
	}
	return ""
}

// Answer returns the final assistant text of the exchange.
func (e Exchange) Answer() string {
	for i := len(e.Messages) - 1; i >= 0; i-- {
		m := e.Messages[i]
		if m.Role == genai.RoleAssistant && len(m.ToolCalls) == 0 {
			return m.Content
		}
	}
	return ""
}

// History is the conversation state of one session. It is append-only at
// exchange granularity: a failed turn leaves it untouched.
type History struct {
	mu           sync.RWMutex
	exchanges    []Exchange
	maxExchanges int
}

// NewHistory creates an empty history. limit <= 0 uses DefaultMaxExchanges.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultMaxExchanges
	}
	return &History{maxExchanges: limit}
}

// Append records a completed exchange, dropping the oldest ones beyond the
// limit. Trimming never splits an exchange, so tool calls stay paired with
// their results.
func (h *History) Append(msgs ...genai.Message) {
	if len(msgs) == 0 {
		return
	}
	ex := Exchange{Messages: append([]genai.Message(nil), msgs...)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = append(h.exchanges, ex)
	if over := len(h.exchanges) - h.maxExchanges; over > 0 {
		h.exchanges = append([]Exchange(nil), h.exchanges[over:]...)
	}
}

// Messages returns the flattened history in order.
func (h *History) Messages() []genai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []genai.Message
	for _, ex := range h.exchanges {
		out = append(out, ex.Messages...)
	}
	return out
}

// Exchanges returns a copy of the completed exchanges.
func (h *History) Exchanges() []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Exchange(nil), h.exchanges...)
}

// Len returns the number of completed exchanges.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.exchanges)
}
