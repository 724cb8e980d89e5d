package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scoreboard-live/internal/board"
)

// Source is the narrow read contract against the persistence layer: a
// fetch-by-id returning a raw untyped record, and a change-notification stream
// delivering raw updated-row payloads for one board id.
type Source interface {
	Fetch(ctx context.Context, boardID string) (map[string]any, error)
	Subscribe(ctx context.Context, boardID string, deliver func(map[string]any)) (Subscription, error)
}

// Subscription is a handle on an open change stream. Close is idempotent.
type Subscription interface {
	Close() error
}

// Store creates watchers bound to a shared source.
type Store struct {
	source Source
	logger *slog.Logger
}

// New creates a new store.
func New(source Source, logger *slog.Logger) *Store {
	return &Store{source: source, logger: logger}
}

// Watch opens a change subscription for one board and starts the watcher's
// run loop. The caller drives the initial Load and must Close the watcher when
// its interest in the board ends.
func (s *Store) Watch(ctx context.Context, boardID string) (*Watcher, error) {
	w := &Watcher{
		boardID:  boardID,
		source:   s.source,
		logger:   s.logger,
		loads:    make(chan map[string]any),
		payloads: make(chan map[string]any, 64),
		updates:  make(chan board.Scoreboard, 16),
		done:     make(chan struct{}),
	}

	sub, err := s.source.Subscribe(ctx, boardID, w.enqueue)
	if err != nil {
		return nil, fmt.Errorf("subscribing to board %s: %w", boardID, err)
	}
	w.sub = sub

	go w.run()
	return w, nil
}

// Watcher owns the in-memory canonical record for one board id. All state
// transitions happen on its run loop, driven by Load results and subscription
// payloads in arrival order.
type Watcher struct {
	boardID string
	source  Source
	logger  *slog.Logger
	sub     Subscription

	mu      sync.RWMutex
	current *board.Scoreboard

	loads    chan map[string]any
	payloads chan map[string]any
	updates  chan board.Scoreboard
	done     chan struct{}
	closed   sync.Once
}

// BoardID returns the board id this watcher is bound to.
func (w *Watcher) BoardID() string {
	return w.boardID
}

// Current returns the latest canonical record, or false while unloaded. The
// returned value is a snapshot; readers never see partial mutations.
func (w *Watcher) Current() (board.Scoreboard, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.current == nil {
		return board.Scoreboard{}, false
	}
	return *w.current, true
}

// Updates delivers each accepted state transition. Slow consumers may miss
// intermediate snapshots but always receive the newest one eventually.
func (w *Watcher) Updates() <-chan board.Scoreboard {
	return w.updates
}

// Load performs a single fetch and commits the normalized row as current
// state. A failed fetch leaves the watcher unloaded and is retryable by
// calling Load again. A result arriving after Close is discarded so a late
// fetch for an abandoned board cannot clobber anything.
func (w *Watcher) Load(ctx context.Context) error {
	raw, err := w.source.Fetch(ctx, w.boardID)
	if err != nil {
		w.logger.Error("board fetch failed", "board_id", w.boardID, "error", err)
		return fmt.Errorf("fetching board %s: %w", w.boardID, err)
	}
	select {
	case w.loads <- raw:
	case <-w.done:
		w.logger.Debug("discarding stale fetch result", "board_id", w.boardID)
	}
	return nil
}

// Close releases the subscription and stops the run loop. Safe to call more
// than once.
func (w *Watcher) Close() {
	w.closed.Do(func() {
		close(w.done)
		if err := w.sub.Close(); err != nil {
			w.logger.Warn("closing subscription", "board_id", w.boardID, "error", err)
		}
	})
}

// enqueue hands a subscription payload to the run loop, preserving the
// delivery order of the stream.
func (w *Watcher) enqueue(payload map[string]any) {
	select {
	case w.payloads <- payload:
	case <-w.done:
	}
}

func (w *Watcher) run() {
	// The run loop is the sole writer of updates, so closing it here is safe.
	defer close(w.updates)
	for {
		select {
		case <-w.done:
			return

		case raw := <-w.loads:
			w.commit(board.ParseRow(raw))

		case payload := <-w.payloads:
			prev, loaded := w.Current()
			if !loaded {
				w.commit(board.ParseRow(payload))
				continue
			}
			w.commit(board.MergeRow(prev, payload))
		}
	}
}

func (w *Watcher) commit(sb board.Scoreboard) {
	w.mu.Lock()
	w.current = &sb
	w.mu.Unlock()

	for {
		select {
		case w.updates <- sb:
			return
		default:
			// Consumer lagged; evict the oldest snapshot to make room.
			select {
			case <-w.updates:
			default:
			}
		}
	}
}
