// Package broadcast ties viewer demand to board watchers: a board is watched
// while at least one websocket viewer is subscribed to it, and every accepted
// state transition is pushed to those viewers.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scoreboard-live/internal/store"
	"github.com/scoreboard-live/internal/websocket"
)

// Broadcaster starts a store watcher per viewed board and republishes its
// updates through the hub.
type Broadcaster struct {
	store  *store.Store
	hub    *websocket.Hub
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[string]*store.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a broadcaster and hooks it into the hub's viewer lifecycle.
func New(st *store.Store, hub *websocket.Hub, logger *slog.Logger) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{
		store:    st,
		hub:      hub,
		logger:   logger,
		watchers: make(map[string]*store.Watcher),
		ctx:      ctx,
		cancel:   cancel,
	}
	hub.OnFirstViewer = b.startWatching
	hub.OnLastViewer = b.stopWatching
	return b
}

// Stop closes every active watcher and waits for the pumps to drain.
func (b *Broadcaster) Stop() {
	b.cancel()

	b.mu.Lock()
	for boardID, w := range b.watchers {
		w.Close()
		delete(b.watchers, boardID)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Broadcaster) startWatching(boardID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[boardID]; ok {
		return
	}

	w, err := b.store.Watch(b.ctx, boardID)
	if err != nil {
		b.logger.Error("starting board watcher", "board_id", boardID, "error", err)
		return
	}
	b.watchers[boardID] = w

	b.wg.Add(1)
	go b.pump(w)

	b.logger.Info("watching board", "board_id", boardID)
}

func (b *Broadcaster) stopWatching(boardID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.watchers[boardID]; ok {
		w.Close()
		delete(b.watchers, boardID)
		b.logger.Info("stopped watching board", "board_id", boardID)
	}
}

// pump loads the board once and forwards each accepted transition to the
// hub. A failed load is logged and left for the subscription echo to repair;
// the watcher simply stays unloaded until then.
func (b *Broadcaster) pump(w *store.Watcher) {
	defer b.wg.Done()

	if err := w.Load(b.ctx); err != nil {
		b.logger.Warn("initial board load failed", "board_id", w.BoardID(), "error", err)
	}

	for {
		select {
		case <-b.ctx.Done():
			return
		case sb, ok := <-w.Updates():
			if !ok {
				return
			}
			b.hub.BroadcastBoardUpdate(websocket.Snapshot(sb))
		}
	}
}
