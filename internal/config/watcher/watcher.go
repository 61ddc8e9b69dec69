// Package watcher reports external edits to configuration files. It
// watches the parent directory of each registered file rather than the
// file itself, so editors that save by writing a temp file and renaming
// it over the original do not silently drop the watch. Rapid event
// bursts for one file are coalesced within a debounce window.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("file is already being watched")
)

// Op represents the kind of change observed on a file.
type Op uint32

const (
	// OpCreate indicates the file appeared.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file content changed.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch {
	case op.Has(OpWrite):
		return "WRITE"
	case op.Has(OpCreate):
		return "CREATE"
	case op.Has(OpRemove):
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event describes one coalesced change to a watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the union of the operations seen in the debounce window.
	Op Op

	// Time is when the last underlying event arrived.
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the window within which events for one file are
// coalesced.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher monitors a fixed set of files for external changes.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	debounce time.Duration

	// files maps absolute file path to a pending coalesced event, nil
	// when nothing is pending. dirs counts watched files per directory.
	files map[string]*pending
	dirs  map[string]int

	events  chan Event
	errs    chan error
	flushed chan Event

	closed  bool
	closeCh chan struct{}
	doneWg  sync.WaitGroup
}

type pending struct {
	op    Op
	at    time.Time
	timer *time.Timer
}

// New creates a watcher. The caller owns it and must Close it.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: 100 * time.Millisecond,
		files:    make(map[string]*pending),
		dirs:     make(map[string]int),
		events:   make(chan Event, 16),
		errs:     make(chan error, 16),
		flushed:  make(chan Event, 16),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.doneWg.Add(1)
	go w.loop()

	return w, nil
}

// Add registers a file for watching. The file does not need to exist
// yet; its directory does.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[abs]; ok {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = nil
	return nil
}

// Remove stops watching a file. Removing an unwatched file is a no-op.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.files[abs]
	if !ok {
		return nil
	}
	if p != nil && p.timer != nil {
		p.timer.Stop()
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.fsw.Remove(dir)
	}
	return nil
}

// Events returns the channel of coalesced file changes. It is closed
// when the watcher closes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors. It is closed when the
// watcher closes.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher and closes both channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, p := range w.files {
		if p != nil && p.timer != nil {
			p.timer.Stop()
		}
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.doneWg.Wait()

	close(w.events)
	close(w.errs)
	return err
}

func (w *Watcher) loop() {
	defer w.doneWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev := <-w.flushed:
			select {
			case w.events <- ev:
			case <-w.closeCh:
				return
			}

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// handle folds one raw directory event into the per-file pending state
// and arms the debounce timer.
func (w *Watcher) handle(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	abs, err := filepath.Abs(fsEvent.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.files[abs]; !ok {
		return
	}

	p := w.files[abs]
	if p == nil {
		p = &pending{}
		w.files[abs] = p
		p.timer = time.AfterFunc(w.debounce, func() {
			w.flush(abs)
		})
	}
	p.op |= op
	p.at = time.Now()
}

// flush hands the coalesced event for one file to the loop goroutine
// when its debounce window ends. Only the loop sends on the public
// channel, so Close can safely close it after the loop exits.
func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p := w.files[path]
	if w.closed || p == nil {
		w.mu.Unlock()
		return
	}
	w.files[path] = nil
	event := Event{Path: path, Op: p.op, Time: p.at}
	w.mu.Unlock()

	select {
	case w.flushed <- event:
	case <-w.closeCh:
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	// A rename moves the watched file away, which reads as removal.
	if fsOp.Has(fsnotify.Remove) || fsOp.Has(fsnotify.Rename) {
		op |= OpRemove
	}
	return op
}
