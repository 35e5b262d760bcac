package eventbus

import "sync"

// History keeps the last capacity values added to it, evicting the oldest.
type History[T any] struct {
	values   []T
	start    int
	capacity int
	mu       sync.Mutex
}

func NewHistory[T any](capacity int) *History[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &History[T]{
		values:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

func (h *History[T]) Add(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.values) < h.capacity {
		h.values = append(h.values, value)
		return
	}
	h.values[h.start] = value
	h.start = (h.start + 1) % h.capacity
}

func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// Values returns the kept values, oldest first.
func (h *History[T]) Values() []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]T, 0, len(h.values))
	out = append(out, h.values[h.start:]...)
	return append(out, h.values[:h.start]...)
}
