// Package turnlog keeps a SQLite-backed audit log of completed conversation
// turns. It is deliberately separate from the in-memory session store: session
// histories drive the chat backend and vanish on restart, the turn log is an
// operator-facing record with configurable retention.
package turnlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AlaeddineMessadi/supertonic/internal/config"
	_ "modernc.org/sqlite"
)

// Turn is one recorded user/assistant exchange.
type Turn struct {
	ID             int64
	ConversationID string
	UserText       string
	AssistantText  string
	AudioSeconds   float64
	CreatedAt      time.Time
}

// Store wraps the SQLite turn log. In ephemeral mode it holds no database and
// every operation is a no-op, so callers never branch on the retention mode.
type Store struct {
	db    *sql.DB
	cfg   config.TurnLogConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the turn log according to config.
func Open(ctx context.Context, cfg config.TurnLogConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("turn log vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("turn log prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    user_text TEXT,
    assistant_text TEXT,
    audio_seconds REAL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation_created ON turns(conversation_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources. In session retention mode the recorded
// turns only outlive a single process run, so the tables are cleared first.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.cfg.RetentionMode == "session" {
		if _, err := s.db.Exec(`DELETE FROM conversations`); err != nil {
			s.log.Warn("turn log session cleanup failed", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}

// RecordTurn writes one completed exchange, creating the conversation row on
// first use. Satisfies the orchestrator's recorder contract.
func (s *Store) RecordTurn(ctx context.Context, conversationID, userText, assistantText string, audioSeconds float64) error {
	if s.db == nil {
		return nil
	}
	now := s.clock().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations(conversation_id, created_at) VALUES(?, ?)
		 ON CONFLICT(conversation_id) DO NOTHING`,
		conversationID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns(conversation_id, user_text, assistant_text, audio_seconds, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		conversationID, userText, assistantText, audioSeconds, now); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteConversation removes a conversation and its turns; wired to the
// conversation reset endpoint so an explicit reset also clears the audit
// trail.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	return err
}

// ListTurns retrieves up to limit turns for a conversation ordered ascending
// by time.
func (s *Store) ListTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_text, assistant_text, audio_seconds, created_at
		 FROM turns WHERE conversation_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var created string
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.UserText, &t.AssistantText, &t.AudioSeconds, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id IN (
			SELECT conversation_id FROM conversations ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
