package services

import (
	"sync"
)

// Lazy resolves a registered service on first successful use. Middleware
// is built before modules register their services, so it holds a Lazy
// instead of the service itself.
type Lazy[T any] struct {
	name    string
	mu      sync.RWMutex
	service T
	loaded  bool
}

// NewLazy creates a lazy handle for the named service
func NewLazy[T any](name string) *Lazy[T] {
	return &Lazy[T]{name: name}
}

// Get returns the service, looking it up in the registry until it is found
func (l *Lazy[T]) Get() (T, error) {
	l.mu.RLock()
	if l.loaded {
		service := l.service
		l.mu.RUnlock()
		return service, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.service, nil
	}

	service, err := GetService[T](l.name)
	if err != nil {
		var zero T
		return zero, err
	}
	l.service = service
	l.loaded = true
	return service, nil
}

// Reset forgets the cached service
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	l.service = zero
	l.loaded = false
}
