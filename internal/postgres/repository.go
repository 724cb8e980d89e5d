package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scoreboard-live/internal/board"
	"github.com/scoreboard-live/internal/config"
)

// notifyChannel is the LISTEN/NOTIFY channel carrying updated board ids.
const notifyChannel = "scoreboard_updates"

// Repository provides PostgreSQL-based data access for scoreboard rows. All
// writes are whole-field replacements; there is no incremental update path.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations, including the update trigger
// that feeds the change-notification stream.
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS scoreboards (
			id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			pin VARCHAR(64),
			background_color VARCHAR(32),
			timer_seconds INT DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scoreboards_created ON scoreboards(created_at DESC)`,
		// The payload is just the row id: NOTIFY payloads are capped at 8000
		// bytes, so the listener refetches the full row instead.
		`CREATE OR REPLACE FUNCTION notify_scoreboard_update() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('` + notifyChannel + `', NEW.id::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS scoreboards_notify ON scoreboards`,
		`CREATE TRIGGER scoreboards_notify
			AFTER UPDATE ON scoreboards
			FOR EACH ROW EXECUTE FUNCTION notify_scoreboard_update()`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// FetchRow retrieves a board row as a raw untyped record. The shape is not
// guaranteed to match the current schema; callers normalize it themselves.
func (r *Repository) FetchRow(ctx context.Context, boardID string) (map[string]any, error) {
	query := `SELECT row_to_json(s) FROM scoreboards s WHERE id = $1`
	var rowJSON []byte
	err := r.pool.QueryRow(ctx, query, boardID).Scan(&rowJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, board.ErrBoardNotFound
		}
		return nil, fmt.Errorf("fetching board row: %w", err)
	}

	var row map[string]any
	if err := json.Unmarshal(rowJSON, &row); err != nil {
		return nil, fmt.Errorf("decoding board row: %w", err)
	}
	return row, nil
}

// InsertBoard creates a new board row.
func (r *Repository) InsertBoard(ctx context.Context, sb board.Scoreboard) error {
	dataJSON, err := json.Marshal(sb.Data)
	if err != nil {
		return fmt.Errorf("marshaling board data: %w", err)
	}

	query := `
		INSERT INTO scoreboards (id, title, data, pin, background_color, timer_seconds)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`
	_, err = r.pool.Exec(ctx, query,
		sb.ID,
		sb.Title,
		dataJSON,
		sb.Pin,
		sb.BackgroundColor,
		sb.TimerSeconds,
	)
	if err != nil {
		return fmt.Errorf("inserting board: %w", err)
	}
	return nil
}

// UpdateData replaces the whole data document of a board.
func (r *Repository) UpdateData(ctx context.Context, boardID string, data board.ScoreboardData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling board data: %w", err)
	}

	query := `UPDATE scoreboards SET data = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, boardID, dataJSON)
	if err != nil {
		return fmt.Errorf("updating board data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// UpdateTitle replaces a board's title.
func (r *Repository) UpdateTitle(ctx context.Context, boardID, title string) error {
	query := `UPDATE scoreboards SET title = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, boardID, title)
	if err != nil {
		return fmt.Errorf("updating board title: %w", err)
	}
	if result.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// UpdatePin replaces a board's pin. An empty pin clears the restriction.
func (r *Repository) UpdatePin(ctx context.Context, boardID, pin string) error {
	query := `UPDATE scoreboards SET pin = NULLIF($2, '') WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, boardID, pin)
	if err != nil {
		return fmt.Errorf("updating board pin: %w", err)
	}
	if result.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// UpdateBackgroundColor replaces a board's background color.
func (r *Repository) UpdateBackgroundColor(ctx context.Context, boardID, color string) error {
	query := `UPDATE scoreboards SET background_color = NULLIF($2, '') WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, boardID, color)
	if err != nil {
		return fmt.Errorf("updating board background color: %w", err)
	}
	if result.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// DeleteBoard removes a board row.
func (r *Repository) DeleteBoard(ctx context.Context, boardID string) error {
	query := `DELETE FROM scoreboards WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, boardID)
	if err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	if result.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// ListBoards returns lightweight summaries of all boards, newest first.
func (r *Repository) ListBoards(ctx context.Context) ([]board.Summary, error) {
	query := `
		SELECT id, title, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), COALESCE(data->>'logo', '')
		FROM scoreboards
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	defer rows.Close()

	var summaries []board.Summary
	for rows.Next() {
		var s board.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.Logo); err != nil {
			return nil, fmt.Errorf("scanning board summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
