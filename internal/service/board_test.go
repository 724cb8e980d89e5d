package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreboard-live/internal/board"
	"github.com/scoreboard-live/internal/config"
	"github.com/scoreboard-live/internal/session"
)

// fakeRepo keeps boards in memory and serves rows the way the database does:
// through a JSON round trip, so fetched rows come back untyped.
type fakeRepo struct {
	mu     sync.Mutex
	boards map[string]board.Scoreboard
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{boards: make(map[string]board.Scoreboard)}
}

func (r *fakeRepo) FetchRow(_ context.Context, boardID string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sb, ok := r.boards[boardID]
	if !ok {
		return nil, board.ErrBoardNotFound
	}
	raw, err := json.Marshal(sb)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *fakeRepo) InsertBoard(_ context.Context, sb board.Scoreboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards[sb.ID] = sb
	return nil
}

func (r *fakeRepo) UpdateData(_ context.Context, boardID string, data board.ScoreboardData) error {
	return r.update(boardID, func(sb *board.Scoreboard) { sb.Data = data })
}

func (r *fakeRepo) UpdateTitle(_ context.Context, boardID, title string) error {
	return r.update(boardID, func(sb *board.Scoreboard) { sb.Title = title })
}

func (r *fakeRepo) UpdatePin(_ context.Context, boardID, pin string) error {
	return r.update(boardID, func(sb *board.Scoreboard) { sb.Pin = pin })
}

func (r *fakeRepo) UpdateBackgroundColor(_ context.Context, boardID, color string) error {
	return r.update(boardID, func(sb *board.Scoreboard) { sb.BackgroundColor = color })
}

func (r *fakeRepo) DeleteBoard(_ context.Context, boardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.boards[boardID]; !ok {
		return board.ErrBoardNotFound
	}
	delete(r.boards, boardID)
	return nil
}

func (r *fakeRepo) ListBoards(_ context.Context) ([]board.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]board.Summary, 0, len(r.boards))
	for _, sb := range r.boards {
		out = append(out, board.Summary{ID: sb.ID, Title: sb.Title})
	}
	return out, nil
}

func (r *fakeRepo) update(boardID string, fn func(*board.Scoreboard)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sb, ok := r.boards[boardID]
	if !ok {
		return board.ErrBoardNotFound
	}
	fn(&sb)
	r.boards[boardID] = sb
	return nil
}

func newTestService() (*BoardService, *fakeRepo) {
	repo := newFakeRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.BoardConfig{DefaultTitle: "Board (no title)"}
	svc := NewBoardService(repo, session.NewMemoryCache(time.Hour), cfg, logger)
	return svc, repo
}

func TestCreateBoardSeeds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sb.ID)
	assert.Equal(t, "Board (no title)", sb.Title)
	require.Len(t, sb.Data.Participants, 2)
	require.Len(t, sb.Data.Activities, 1)

	// Fetched back, the row normalizes to the same document.
	got, err := svc.GetBoard(ctx, sb.ID)
	require.NoError(t, err)
	assert.Equal(t, sb.Data.Participants, got.Data.Participants)
	assert.Equal(t, sb.Data.Activities[0].ID, got.Data.Activities[0].ID)
}

func TestGetBoardNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, board.ErrBoardNotFound)
}

func TestUpdateTitleValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateTitle(ctx, sb.ID, ""), board.ErrInvalidRequest)
	require.NoError(t, svc.UpdateTitle(ctx, sb.ID, "Quiz Night"))

	got, err := svc.GetBoard(ctx, sb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiz Night", got.Title)
}

func TestVerifyPin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	// No PIN set: everyone passes.
	ok, err := svc.VerifyPin(ctx, sb.ID, "s1", "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.UpdatePin(ctx, sb.ID, "", "1234"))

	ok, err = svc.VerifyPin(ctx, sb.ID, "s1", "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyPin(ctx, sb.ID, "s1", "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	// A correct verify caches access for the session.
	ok, err = svc.CheckAccess(ctx, sb.ID, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAccess(ctx, sb.ID, "s2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdatePinRevokesOtherSessions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePin(ctx, sb.ID, "", "1111"))
	ok, err := svc.VerifyPin(ctx, sb.ID, "other", "1111")
	require.NoError(t, err)
	require.True(t, ok)

	// Changing the PIN drops "other" but keeps the changer authorized.
	require.NoError(t, svc.UpdatePin(ctx, sb.ID, "changer", "2222"))

	ok, err = svc.CheckAccess(ctx, sb.ID, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckAccess(ctx, sb.ID, "changer")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAccessUnrestrictedBoard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	ok, err := svc.CheckAccess(ctx, sb.ID, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplyWritesWholeDocument(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	actID := sb.Data.Activities[0].ID
	pID := sb.Data.Participants[0].ID

	next, err := svc.Apply(ctx, sb.ID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AdjustDirectScore(actID, pID, 5)
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, next.Activities[0].DirectScores[pID])

	repo.mu.Lock()
	stored := repo.boards[sb.ID]
	repo.mu.Unlock()
	assert.Equal(t, 5.0, stored.Data.Activities[0].DirectScores[pID])
}

func TestApplyTransformErrorsSkipWrite(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, sb.ID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AdjustDirectScore("missing", "p", 1)
	})
	assert.ErrorIs(t, err, board.ErrActivityNotFound)
}

func TestApplyScoreAdjustment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	actID := sb.Data.Activities[0].ID
	pID := sb.Data.Participants[0].ID

	// Missing fields rejected.
	err = svc.ApplyScoreAdjustment(ctx, ScoreAdjustment{BoardID: sb.ID})
	assert.ErrorIs(t, err, board.ErrInvalidRequest)

	// Delta path.
	require.NoError(t, svc.ApplyScoreAdjustment(ctx, ScoreAdjustment{
		BoardID: sb.ID, ActivityID: actID, ParticipantID: pID, Delta: 7,
	}))

	// Set path overrides.
	val := 3.0
	require.NoError(t, svc.ApplyScoreAdjustment(ctx, ScoreAdjustment{
		BoardID: sb.ID, ActivityID: actID, ParticipantID: pID, Set: &val,
	}))

	// Negative delta clamps at zero.
	require.NoError(t, svc.ApplyScoreAdjustment(ctx, ScoreAdjustment{
		BoardID: sb.ID, ActivityID: actID, ParticipantID: pID, Delta: -100,
	}))

	got, err := svc.GetBoard(ctx, sb.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Data.Activities[0].DirectScores[pID])
}

func TestApplyScoreAdjustmentSubGame(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	actID := sb.Data.Activities[0].ID
	pID := sb.Data.Participants[0].ID

	next, err := svc.Apply(ctx, sb.ID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AddSubGame(actID)
	})
	require.NoError(t, err)
	sgID := next.Activities[0].SubGames[0].ID

	require.NoError(t, svc.ApplyScoreAdjustment(ctx, ScoreAdjustment{
		BoardID: sb.ID, ActivityID: actID, SubGameID: sgID, ParticipantID: pID, Delta: 4,
	}))

	got, err := svc.GetBoard(ctx, sb.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Data.ActivityTotal(actID, pID))
}

func TestDeleteBoard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sb, err := svc.CreateBoard(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBoard(ctx, sb.ID))
	_, err = svc.GetBoard(ctx, sb.ID)
	assert.ErrorIs(t, err, board.ErrBoardNotFound)

	assert.ErrorIs(t, svc.DeleteBoard(ctx, sb.ID), board.ErrBoardNotFound)
}
