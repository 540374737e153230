package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 15 * time.Second

// ToastState keeps the currently visible toasts. Each toast removes itself
// after its duration.
type ToastState struct {
	duration time.Duration

	mu     sync.Mutex
	toasts []Notification
	timers map[string]*time.Timer
	closed bool
	now    func() time.Time
}

// NewToastState creates an empty toast list. A non-positive duration uses
// DefaultToastDuration.
func NewToastState(duration time.Duration) *ToastState {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &ToastState{
		duration: duration,
		timers:   make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// Add shows a toast for the default duration.
func (s *ToastState) Add(title, message string, level Level) {
	s.AddWithDuration(title, message, level, s.duration)
}

// AddWithDuration shows a toast and returns its ID. After Destroy it is a
// no-op returning an empty ID.
func (s *ToastState) AddWithDuration(title, message string, level Level, d time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}

	id := uuid.New().String()
	s.toasts = append(s.toasts, Notification{
		ID:        id,
		Title:     title,
		Message:   message,
		Level:     level,
		CreatedAt: s.now(),
		Duration:  d,
	})
	s.timers[id] = time.AfterFunc(d, func() { s.Remove(id) })
	return id
}

// Remove dismisses a toast. Unknown IDs are ignored.
func (s *ToastState) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, toast := range s.toasts {
		if toast.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return
		}
	}
}

// Toasts returns the visible toasts, oldest first.
func (s *ToastState) Toasts() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification{}, s.toasts...)
}

// Destroy stops every pending timer and clears the list.
func (s *ToastState) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.closed = true
}
