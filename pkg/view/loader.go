package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/labgraph/pkg/observability"
)

// ErrStale is returned by [Loader.Resolve] when a newer fetch was begun
// after the one being resolved. The response is discarded.
var ErrStale = errors.New("stale response discarded")

// State describes a loader's progress.
type State struct {
	Seq       uint64    `json:"seq"`        // Latest issued sequence number
	Applied   uint64    `json:"applied"`    // Sequence number of the current value, 0 if none
	Loading   bool      `json:"loading"`    // The latest fetch has not resolved yet
	Err       error     `json:"-"`          // Failure of the latest fetch, if any
	UpdatedAt time.Time `json:"updated_at"` // When the current value was applied
}

// Loader holds the last good result of a repeatable fetch.
//
// Each fetch takes a sequence number from Begin and hands its outcome to
// Resolve. Only the most recently issued fetch may change the loader: older
// responses are dropped, so a slow early request can never overwrite a newer
// one. A failed fetch records its error and keeps the previous value.
//
// Loader is safe for concurrent use.
type Loader[T any] struct {
	name   string
	count  func(T) int
	logger *log.Logger

	mu      sync.Mutex
	issued  uint64
	settled uint64
	applied uint64
	value   T
	err     error
	updated time.Time
	settle  chan struct{} // closed when the latest fetch settles
}

// NewLoader returns an empty loader. name labels log records and hooks;
// count, if non-nil, reports the size of a fetched value to hooks.
func NewLoader[T any](name string, count func(T) int, logger *log.Logger) *Loader[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader[T]{name: name, count: count, logger: logger}
}

// Begin issues the sequence number for a new fetch. Any fetch begun earlier
// becomes stale.
func (l *Loader[T]) Begin(ctx context.Context) uint64 {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.mu.Unlock()

	observability.View().OnFetchStart(ctx, l.name, seq)
	return seq
}

// Resolve applies the outcome of fetch seq. It returns ErrStale if seq is
// not the latest issued, fetchErr if the fetch failed, and nil otherwise.
func (l *Loader[T]) Resolve(ctx context.Context, seq uint64, v T, fetchErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.issued {
		observability.View().OnStaleDiscarded(ctx, l.name, seq, l.issued)
		l.logger.Debug("discarding stale response", "view", l.name, "seq", seq, "latest", l.issued)
		return ErrStale
	}
	l.settled = seq
	if l.settle != nil {
		close(l.settle)
		l.settle = nil
	}
	if fetchErr != nil {
		l.err = fetchErr
		return fetchErr
	}
	l.value = v
	l.applied = seq
	l.err = nil
	l.updated = time.Now()
	return nil
}

// Load runs fetch as a new sequenced request and resolves it.
func (l *Loader[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) error {
	seq := l.Begin(ctx)
	reqID := uuid.NewString()
	l.logger.Debug("refresh", "view", l.name, "seq", seq, "request", reqID)

	start := time.Now()
	v, err := fetch(ctx)
	n := 0
	if err == nil && l.count != nil {
		n = l.count(v)
	}
	observability.View().OnFetchComplete(ctx, l.name, seq, n, time.Since(start), err)

	err = l.Resolve(ctx, seq, v, err)
	if err != nil && !errors.Is(err, ErrStale) {
		l.logger.Warn("refresh failed, keeping last good value", "view", l.name, "request", reqID, "err", err)
	}
	return err
}

// Wait blocks until the latest issued fetch has settled and returns its
// error, nil if it applied a value. A fetch begun while waiting is waited
// for as well.
func (l *Loader[T]) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.settled == l.issued {
			err := l.err
			l.mu.Unlock()
			return err
		}
		if l.settle == nil {
			l.settle = make(chan struct{})
		}
		ch := l.settle
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Snapshot returns the last good value together with the sequence number
// that applied it, 0 if none.
func (l *Loader[T]) Snapshot() (T, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.applied
}

// Value returns the last good value and whether one was ever applied.
func (l *Loader[T]) Value() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.applied > 0
}

// State returns a snapshot of the loader's progress.
func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Seq:       l.issued,
		Applied:   l.applied,
		Loading:   l.settled != l.issued,
		Err:       l.err,
		UpdatedAt: l.updated,
	}
}
