package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scoreboard-live/internal/board"
	"github.com/scoreboard-live/internal/config"
	"github.com/scoreboard-live/internal/session"
)

// Repository is the persistence contract the service writes through. Writes
// are whole-field replacements; the update trigger echoes every write back to
// subscribers through the change feed.
type Repository interface {
	FetchRow(ctx context.Context, boardID string) (map[string]any, error)
	InsertBoard(ctx context.Context, sb board.Scoreboard) error
	UpdateData(ctx context.Context, boardID string, data board.ScoreboardData) error
	UpdateTitle(ctx context.Context, boardID, title string) error
	UpdatePin(ctx context.Context, boardID, pin string) error
	UpdateBackgroundColor(ctx context.Context, boardID, color string) error
	DeleteBoard(ctx context.Context, boardID string) error
	ListBoards(ctx context.Context) ([]board.Summary, error)
}

// BoardService provides business logic for scoreboard operations.
type BoardService struct {
	repo     Repository
	sessions session.Cache
	config   *config.BoardConfig
	logger   *slog.Logger
}

// NewBoardService creates a new board service
func NewBoardService(repo Repository, sessions session.Cache, cfg *config.BoardConfig, logger *slog.Logger) *BoardService {
	return &BoardService{
		repo:     repo,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
}

// CreateBoard inserts a new board seeded with two participants and one
// direct-scored activity.
func (s *BoardService) CreateBoard(ctx context.Context) (board.Scoreboard, error) {
	sb := board.Scoreboard{
		ID:    board.NewID(),
		Title: s.config.DefaultTitle,
		Data:  board.SeedData(),
	}
	if err := s.repo.InsertBoard(ctx, sb); err != nil {
		return board.Scoreboard{}, fmt.Errorf("creating board: %w", err)
	}
	return sb, nil
}

// GetBoard fetches and normalizes one board.
func (s *BoardService) GetBoard(ctx context.Context, boardID string) (board.Scoreboard, error) {
	raw, err := s.repo.FetchRow(ctx, boardID)
	if err != nil {
		return board.Scoreboard{}, err
	}
	return board.ParseRow(raw), nil
}

// ListBoards returns summaries of all boards.
func (s *BoardService) ListBoards(ctx context.Context) ([]board.Summary, error) {
	return s.repo.ListBoards(ctx)
}

// UpdateTitle replaces a board's title.
func (s *BoardService) UpdateTitle(ctx context.Context, boardID, title string) error {
	if title == "" {
		return board.ErrInvalidRequest
	}
	return s.repo.UpdateTitle(ctx, boardID, title)
}

// UpdatePin replaces a board's pin. An empty pin removes the restriction.
// Cached authorizations are dropped so other sessions must re-enter the new
// PIN; the caller's own session is re-authorized immediately.
func (s *BoardService) UpdatePin(ctx context.Context, boardID, sessionID, pin string) error {
	if err := s.repo.UpdatePin(ctx, boardID, pin); err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, boardID); err != nil {
		s.logger.Warn("revoking cached authorizations", "board_id", boardID, "error", err)
	}
	if pin != "" && sessionID != "" {
		if err := s.sessions.Authorize(ctx, sessionID, boardID); err != nil {
			s.logger.Warn("caching authorization", "board_id", boardID, "error", err)
		}
	}
	return nil
}

// UpdateBackgroundColor replaces a board's background color.
func (s *BoardService) UpdateBackgroundColor(ctx context.Context, boardID, color string) error {
	return s.repo.UpdateBackgroundColor(ctx, boardID, color)
}

// ReplaceData writes a whole document, replacing whatever is stored.
func (s *BoardService) ReplaceData(ctx context.Context, boardID string, data board.ScoreboardData) error {
	return s.repo.UpdateData(ctx, boardID, data)
}

// DeleteBoard removes a board and its cached authorizations.
func (s *BoardService) DeleteBoard(ctx context.Context, boardID string) error {
	if err := s.repo.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, boardID); err != nil {
		s.logger.Warn("revoking cached authorizations", "board_id", boardID, "error", err)
	}
	return nil
}

// VerifyPin checks a submitted PIN against the board's. An absent or empty
// stored PIN means unrestricted access. Accepted PINs are cached per session.
// There is no lockout or rate limiting; a wrong guess is just rejected.
func (s *BoardService) VerifyPin(ctx context.Context, boardID, sessionID, pin string) (bool, error) {
	sb, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return false, err
	}
	if sb.Pin == "" {
		return true, nil
	}
	if pin != sb.Pin {
		return false, nil
	}
	if sessionID != "" {
		if err := s.sessions.Authorize(ctx, sessionID, boardID); err != nil {
			s.logger.Warn("caching authorization", "board_id", boardID, "error", err)
		}
	}
	return true, nil
}

// CheckAccess reports whether a session may edit the board: either the board
// is unrestricted or the session already presented the PIN.
func (s *BoardService) CheckAccess(ctx context.Context, boardID, sessionID string) (bool, error) {
	sb, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return false, err
	}
	if sb.Pin == "" {
		return true, nil
	}
	if sessionID == "" {
		return false, nil
	}
	return s.sessions.IsAuthorized(ctx, sessionID, boardID)
}

// Apply runs a pure document transform against the latest stored state and
// writes the result back wholesale. Two racing writers resolve by last write
// landing; the domain tolerates that.
func (s *BoardService) Apply(ctx context.Context, boardID string, transform func(board.ScoreboardData) (board.ScoreboardData, error)) (board.ScoreboardData, error) {
	sb, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return board.ScoreboardData{}, err
	}
	next, err := transform(sb.Data)
	if err != nil {
		return board.ScoreboardData{}, err
	}
	if err := s.repo.UpdateData(ctx, boardID, next); err != nil {
		return board.ScoreboardData{}, err
	}
	return next, nil
}

// ScoreAdjustment is one remote score change, either a delta or an absolute
// value, targeting a direct score or a sub-game score.
type ScoreAdjustment struct {
	BoardID       string   `json:"board_id"`
	ActivityID    string   `json:"activity_id"`
	SubGameID     string   `json:"sub_game_id,omitempty"`
	ParticipantID string   `json:"participant_id"`
	Delta         float64  `json:"delta,omitempty"`
	Set           *float64 `json:"set,omitempty"`
}

// ApplyScoreAdjustment routes a score change through the read-modify-write
// path. Results clamp at a floor of zero, never at a ceiling.
func (s *BoardService) ApplyScoreAdjustment(ctx context.Context, adj ScoreAdjustment) error {
	if adj.BoardID == "" || adj.ActivityID == "" || adj.ParticipantID == "" {
		return board.ErrInvalidRequest
	}
	_, err := s.Apply(ctx, adj.BoardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		switch {
		case adj.SubGameID != "" && adj.Set != nil:
			return d.SetSubGameScore(adj.ActivityID, adj.SubGameID, adj.ParticipantID, *adj.Set)
		case adj.SubGameID != "":
			return d.AdjustSubGameScore(adj.ActivityID, adj.SubGameID, adj.ParticipantID, adj.Delta)
		case adj.Set != nil:
			return d.SetDirectScore(adj.ActivityID, adj.ParticipantID, *adj.Set)
		default:
			return d.AdjustDirectScore(adj.ActivityID, adj.ParticipantID, adj.Delta)
		}
	})
	return err
}
