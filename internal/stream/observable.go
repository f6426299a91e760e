// Package stream distributes frames from the video reader to its consumers.
package stream

import (
	"sync"
	"time"

	"fvgvision-worker-go/internal/models"
)

// Observer receives stream parameters once per (re)open and every frame.
// OnFrame runs on the reader goroutine and must not block.
type Observer interface {
	OnParameters(width, height int, frameInterval time.Duration)
	OnFrame(index int64, frame *models.Frame, elapsed time.Duration)
}

// Observable fans notifications out to registered observers, in
// registration order.
type Observable struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewObservable returns an observable with no observers.
func NewObservable() *Observable {
	return &Observable{}
}

// Add registers o. Adding the same observer twice has no effect.
func (s *Observable) Add(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)
}

// Remove unregisters o. Removing an unknown observer is a no-op.
func (s *Observable) Remove(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.observers {
		if existing == o {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (s *Observable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

func (s *Observable) snapshot() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Observer, len(s.observers))
	copy(out, s.observers)
	return out
}

// NotifyParameters announces the stream geometry and declared frame interval.
func (s *Observable) NotifyParameters(width, height int, frameInterval time.Duration) {
	for _, o := range s.snapshot() {
		o.OnParameters(width, height, frameInterval)
	}
}

// NotifyFrame delivers a frame to every observer.
func (s *Observable) NotifyFrame(index int64, frame *models.Frame, elapsed time.Duration) {
	for _, o := range s.snapshot() {
		o.OnFrame(index, frame, elapsed)
	}
}
