package k8s

import "sync"

// lazyValue provides thread-safe lazy initialization for the clients derived
// from a rest.Config. It uses double-check locking so the common path after
// initialization only takes a read lock.
type lazyValue[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

// Get returns the cached value if set, otherwise calls initFn to create it.
//
// If initFn returns an error, the value is not cached and subsequent calls
// will retry initialization.
func (l *lazyValue[T]) Get(initFn func() (T, error)) (T, error) {
	l.mu.RLock()
	if l.set {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.set {
		return l.value, nil
	}

	v, err := initFn()
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = v
	l.set = true
	return v, nil
}

// Set stores v unconditionally. It is used when a client is supplied
// from outside instead of being built from a rest.Config.
func (l *lazyValue[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.set = true
}
