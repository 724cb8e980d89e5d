package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scoreboard-live/internal/store"
)

// Listener turns the scoreboards update trigger into a per-board change feed.
// It holds one dedicated connection in LISTEN mode and, for each notification,
// refetches the row and delivers it raw to every subscriber of that board id.
// Implements store.Source.
type Listener struct {
	repo   *Repository
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a listener over the repository's pool.
func NewListener(repo *Repository, logger *slog.Logger) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		repo:   repo,
		logger: logger,
		subs:   make(map[string]map[*subscription]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins listening for update notifications.
func (l *Listener) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			if err := l.listen(l.ctx); err != nil {
				if l.ctx.Err() != nil {
					return
				}
				l.logger.Error("notification listener failed, reconnecting", "error", err)
			}
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
}

// Stop tears down the listening connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.cancel()
	l.wg.Wait()
}

// Fetch retrieves the raw row for a board id.
func (l *Listener) Fetch(ctx context.Context, boardID string) (map[string]any, error) {
	return l.repo.FetchRow(ctx, boardID)
}

// Subscribe registers a delivery function for one board's update events. The
// returned handle must be closed exactly once per caller; closing an already
// closed handle is a no-op.
func (l *Listener) Subscribe(ctx context.Context, boardID string, deliver func(map[string]any)) (store.Subscription, error) {
	if boardID == "" {
		return nil, fmt.Errorf("subscribing: empty board id")
	}

	sub := &subscription{listener: l, boardID: boardID, deliver: deliver}
	l.mu.Lock()
	if l.subs[boardID] == nil {
		l.subs[boardID] = make(map[*subscription]struct{})
	}
	l.subs[boardID][sub] = struct{}{}
	l.mu.Unlock()

	l.logger.Debug("board subscription opened", "board_id", boardID)
	return sub, nil
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.repo.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("issuing LISTEN: %w", err)
	}
	l.logger.Info("listening for board updates", "channel", notifyChannel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}
		l.dispatch(ctx, notification.Payload)
	}
}

// dispatch refetches the updated row and hands it to that board's subscribers
// in notification order.
func (l *Listener) dispatch(ctx context.Context, boardID string) {
	l.mu.Lock()
	targets := make([]*subscription, 0, len(l.subs[boardID]))
	for sub := range l.subs[boardID] {
		targets = append(targets, sub)
	}
	l.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	row, err := l.repo.FetchRow(ctx, boardID)
	if err != nil {
		// Row may have been deleted between notify and fetch.
		l.logger.Warn("refetching updated board failed", "board_id", boardID, "error", err)
		return
	}

	for _, sub := range targets {
		sub.deliver(row)
	}
}

func (l *Listener) unsubscribe(sub *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if set, ok := l.subs[sub.boardID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(l.subs, sub.boardID)
		}
	}
}

type subscription struct {
	listener *Listener
	boardID  string
	deliver  func(map[string]any)
	closed   sync.Once
}

// Close releases the subscription. Idempotent.
func (s *subscription) Close() error {
	s.closed.Do(func() {
		s.listener.unsubscribe(s)
		s.listener.logger.Debug("board subscription closed", "board_id", s.boardID)
	})
	return nil
}
