package workspace

import (
	"context"
	"sync"
)

// Sync signals when a single discovered configuration has finished its
// setup attempt, successful or not. It resolves exactly once.
type Sync struct {
	done chan struct{}
	once sync.Once
}

func newSync() *Sync {
	return &Sync{done: make(chan struct{})}
}

// resolve marks the setup attempt as finished.
func (s *Sync) resolve() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel closed once the setup attempt finished.
func (s *Sync) Done() <-chan struct{} {
	return s.done
}

// Ready reports whether the setup attempt has finished.
func (s *Sync) Ready() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the setup attempt finished or ctx is cancelled.
func (s *Sync) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
