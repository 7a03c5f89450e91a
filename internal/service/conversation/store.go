// Package conversation persists the durable conversation log and the
// daily caregiver summaries. Writes from the turn pipeline are
// best-effort: callers log failures and keep going.
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	chatmodel "github.com/tripot-app/backend/internal/model/chat"
)

// ErrNotFound signals a missing owner or entity.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database holding users, conversations, and
// summaries. database/sql serializes access; SQLite handles concurrent
// writers from independent sessions.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id_str TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			summary_json TEXT NOT NULL,
			report_date DATE NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, report_date),
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for stores sharing the database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUser resolves an owner key to its row id, creating the row
// on first contact.
func (s *Store) GetOrCreateUser(ctx context.Context, ownerID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE user_id_str = ?`, ownerID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (user_id_str) VALUES (?)`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// SaveTurn appends the user and agent lines of one exchange, in that
// order, as a single transaction.
func (s *Store) SaveTurn(ctx context.Context, ownerID, userMessage, agentMessage string) error {
	userID, err := s.GetOrCreateUser(ctx, ownerID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (user_id, speaker, message, created_at) VALUES (?, ?, ?, ?)`,
		userID, chatmodel.SpeakerUser, userMessage, now,
	); err != nil {
		return fmt.Errorf("insert user line: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (user_id, speaker, message, created_at) VALUES (?, ?, ?, ?)`,
		userID, chatmodel.SpeakerAgent, agentMessage, now,
	); err != nil {
		return fmt.Errorf("insert agent line: %w", err)
	}

	return tx.Commit()
}

// FetchDailyTranscript returns the owner's conversation for one date as
// prefixed transcript text, or ErrNotFound when nothing was said.
func (s *Store) FetchDailyTranscript(ctx context.Context, ownerID string, day time.Time) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.speaker, c.message
		FROM conversations c
		JOIN users u ON c.user_id = u.id
		WHERE u.user_id_str = ? AND date(c.created_at) = date(?)
		ORDER BY c.created_at, c.id`,
		ownerID, day.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return "", fmt.Errorf("query daily conversations: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var speaker, message string
		if err := rows.Scan(&speaker, &message); err != nil {
			return "", fmt.Errorf("scan conversation row: %w", err)
		}
		lines = append(lines, chatmodel.Line{Speaker: speaker, Text: message}.String())
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate conversation rows: %w", err)
	}
	if len(lines) == 0 {
		return "", ErrNotFound
	}
	return strings.Join(lines, "\n"), nil
}

// OwnersWithConversationsOn lists owner keys that talked on the date.
func (s *Store) OwnersWithConversationsOn(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT u.user_id_str
		FROM users u
		JOIN conversations c ON c.user_id = u.id
		WHERE date(c.created_at) = date(?)`,
		day.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("query active owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner row: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// SaveSummary upserts the caregiver summary for (owner, date).
func (s *Store) SaveSummary(ctx context.Context, ownerID string, day time.Time, summaryJSON string) error {
	userID, err := s.GetOrCreateUser(ctx, ownerID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summaries (user_id, summary_json, report_date)
		VALUES (?, ?, date(?))
		ON CONFLICT(user_id, report_date)
		DO UPDATE SET summary_json = excluded.summary_json, created_at = CURRENT_TIMESTAMP`,
		userID, summaryJSON, day.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LatestSummary returns the most recently created summary for the owner.
func (s *Store) LatestSummary(ctx context.Context, ownerID string) (summaryJSON string, reportDate string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT s.summary_json, s.report_date
		FROM summaries s
		JOIN users u ON s.user_id = u.id
		WHERE u.user_id_str = ?
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`,
		ownerID,
	).Scan(&summaryJSON, &reportDate)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query latest summary: %w", err)
	}
	return summaryJSON, reportDate, nil
}
