package memory

import "sync"

// History is an ordered, append-only conversation log. It is safe for
// concurrent use; messages are copied on the way in and on the way out.
type History struct {
	mu   sync.RWMutex
	msgs []Message
}

// NewHistory returns a history seeded with initial, e.g. a loaded transcript.
func NewHistory(initial ...Message) *History {
	h := &History{}
	h.Append(initial...)
	return h
}

// Append adds msgs to the end of the log in order.
func (h *History) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		h.msgs = append(h.msgs, m.Clone())
	}
}

// Messages returns a snapshot of the full log.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.msgs))
	for i, m := range h.msgs {
		out[i] = m.Clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.msgs)
}

// Last returns the newest message, if any.
func (h *History) Last() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.msgs) == 0 {
		return Message{}, false
	}
	return h.msgs[len(h.msgs)-1].Clone(), true
}
