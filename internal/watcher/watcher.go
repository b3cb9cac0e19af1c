// Package watcher provides debounced file watching for configuration
// files. It exists for clients that cannot register watched-file
// capabilities dynamically; when the editor relays file events itself
// this package stays idle.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Op describes the kind of change observed on a file.
type Op uint8

// Supported operations. Ops combine when rapid changes coalesce.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
)

// Has reports whether op includes the given operation.
func (o Op) Has(op Op) bool { return o&op != 0 }

// Event is a debounced change notification for a watched file.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Watcher watches individual files through fsnotify, coalescing rapid
// changes to the same path into one event. Directories are watched
// rather than the files themselves so editors that replace files on
// save are still observed.
type Watcher struct {
	fs       *fsnotify.Watcher
	delay    time.Duration
	onChange func(Event)
	accept   func(string) bool
	log      zerolog.Logger

	mu      sync.Mutex
	watched map[string]bool
	dirs    map[string]int
	pending map[string]*pendingEvent
	closed  bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// pendingEvent tracks a debounced event awaiting its timer.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// WithAccept admits events for paths that are not explicitly watched
// but satisfy the filter, such as files appearing in a directory that
// already holds a watched file.
func WithAccept(fn func(path string) bool) Option {
	return func(w *Watcher) {
		w.accept = fn
	}
}

// New creates a watcher delivering debounced events to onChange.
// The callback runs on the watcher goroutine; it must not block.
func New(onChange func(Event), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fsw,
		delay:    100 * time.Millisecond,
		onChange: onChange,
		log:      zerolog.Nop(),
		watched:  make(map[string]bool),
		dirs:     make(map[string]int),
		pending:  make(map[string]*pendingEvent),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts watching the given file path.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.watched[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.watched[abs] = true
	return nil
}

// Unwatch stops watching the given file path.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watched[abs] {
		return nil
	}
	delete(w.watched, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
	return nil
}

// IsWatching reports whether the path is currently watched.
func (w *Watcher) IsWatching(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[abs]
}

// Close stops the watcher and cancels pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// loop consumes raw fsnotify events until close.
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			op := translateOp(event.Op)
			if op == 0 {
				continue
			}
			w.handleEvent(Event{
				Path:      filepath.Clean(event.Name),
				Op:        op,
				Timestamp: time.Now(),
			})

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// handleEvent debounces an event for a watched path.
func (w *Watcher) handleEvent(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if !w.watched[event.Path] && (w.accept == nil || !w.accept(event.Path)) {
		return
	}

	if p, exists := w.pending[event.Path]; exists {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(w.delay)
		return
	}

	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(w.delay, func() {
		w.fire(event.Path)
	})
	w.pending[event.Path] = p
}

// fire delivers a pending event to the callback.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	p, exists := w.pending[path]
	if !exists {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	event := p.event
	closed := w.closed
	w.mu.Unlock()

	if !closed && w.onChange != nil {
		w.onChange(event)
	}
}

// translateOp maps fsnotify operations onto watcher ops.
func translateOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		out |= OpRemove
	}
	return out
}
