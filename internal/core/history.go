package core

import "github.com/dkeye/babel/internal/domain"

const (
	DefaultHistoryLimit = 100
	DefaultRecentLimit  = 50
)

// History is a fixed-capacity FIFO ring of messages.
// Not safe for concurrent use; the owning room serializes access.
type History struct {
	buf  []domain.Message
	head int // index of the oldest entry
	size int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &History{buf: make([]domain.Message, capacity)}
}

// Append stores m, evicting the oldest entry when full.
func (h *History) Append(m domain.Message) (evicted bool) {
	c := len(h.buf)
	if h.size < c {
		h.buf[(h.head+h.size)%c] = m
		h.size++
		return false
	}
	h.buf[h.head] = m
	h.head = (h.head + 1) % c
	return true
}

// Recent returns up to limit newest messages, oldest first.
// limit <= 0 means everything.
func (h *History) Recent(limit int) []domain.Message {
	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Message, n)
	start := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head+start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Len() int { return h.size }
func (h *History) Cap() int { return len(h.buf) }
