// Package family implements the shared photo yard: uploads, posts,
// and comments stored alongside the conversation database.
package family

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	familymodel "github.com/tripot-app/backend/internal/model/family"
)

// ErrNotFound signals a missing photo or comment.
var ErrNotFound = errors.New("not found")

// Service provides photo yard CRUD over the shared SQLite handle.
type Service struct {
	db        *sql.DB
	uploadDir string
}

// NewService migrates the photo yard tables and returns the service.
func NewService(db *sql.DB, uploadDir string) (*Service, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS family_photos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			original_name TEXT,
			file_path TEXT NOT NULL,
			file_size INTEGER,
			uploaded_by TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			photo_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			description TEXT,
			mentions TEXT,
			location TEXT,
			audio_message TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(photo_id) REFERENCES family_photos(id)
		);`,
		`CREATE TABLE IF NOT EXISTS photo_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			photo_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			author_name TEXT NOT NULL,
			comment_text TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(photo_id) REFERENCES family_photos(id)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate photo yard schema: %w", err)
		}
	}

	return &Service{db: db, uploadDir: uploadDir}, nil
}

// SaveUpload writes the file under a dated directory and records the
// photo metadata plus its post in one transaction.
func (s *Service) SaveUpload(ctx context.Context, userID int64, originalName, uploadedBy string, contents []byte, post familymodel.Post) (*familymodel.Photo, error) {
	now := time.Now().UTC()
	dateDir := filepath.Join(s.uploadDir, now.Format("2006/01/02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(dateDir, filename)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return nil, fmt.Errorf("write photo file: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upload tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO family_photos (user_id, filename, original_name, file_path, file_size, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, filename, originalName, path, len(contents), uploadedBy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	photoID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO posts (photo_id, user_id, description, mentions, location, audio_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		photoID, userID, post.Description, post.Mentions, post.Location, post.AudioMessage, now,
	); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &familymodel.Photo{
		ID:           photoID,
		UserID:       userID,
		Filename:     filename,
		OriginalName: originalName,
		FilePath:     path,
		FileSize:     int64(len(contents)),
		UploadedBy:   uploadedBy,
		CreatedAt:    now,
	}, nil
}

// PhotosByUserGroupedByDate lists the user's photos, newest first,
// grouped by upload date with their comments attached.
func (s *Service) PhotosByUserGroupedByDate(ctx context.Context, userID int64, limit int) (map[string][]familymodel.PhotoWithComments, int, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uploaded_by, created_at
		FROM family_photos
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]familymodel.PhotoWithComments)
	total := 0
	for rows.Next() {
		var (
			id         int64
			uploadedBy sql.NullString
			createdAt  time.Time
		)
		if err := rows.Scan(&id, &uploadedBy, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan photo row: %w", err)
		}

		comments, err := s.CommentsByPhoto(ctx, id)
		if err != nil {
			return nil, 0, err
		}

		dateKey := createdAt.Format("2006-01-02")
		grouped[dateKey] = append(grouped[dateKey], familymodel.PhotoWithComments{
			ID:         id,
			UploadedBy: uploadedBy.String,
			CreatedAt:  createdAt.Format(time.RFC3339),
			FileURL:    fmt.Sprintf("/api/v1/family/family-yard/photo/%d", id),
			Comments:   comments,
		})
		total++
	}
	return grouped, total, rows.Err()
}

// PhotoByID returns one photo's stored metadata.
func (s *Service) PhotoByID(ctx context.Context, photoID int64) (*familymodel.Photo, error) {
	var (
		photo        familymodel.Photo
		originalName sql.NullString
		uploadedBy   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, original_name, file_path, file_size, uploaded_by, created_at
		FROM family_photos WHERE id = ?`,
		photoID,
	).Scan(&photo.ID, &photo.UserID, &photo.Filename, &originalName, &photo.FilePath, &photo.FileSize, &uploadedBy, &photo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query photo: %w", err)
	}
	photo.OriginalName = originalName.String
	photo.UploadedBy = uploadedBy.String
	return &photo, nil
}

// PostByPhoto returns the post metadata attached at upload, if any.
func (s *Service) PostByPhoto(ctx context.Context, photoID int64) (*familymodel.Post, error) {
	var post familymodel.Post
	var description, mentions, location, audio sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, photo_id, description, mentions, location, audio_message
		FROM posts WHERE photo_id = ?`,
		photoID,
	).Scan(&post.ID, &post.PhotoID, &description, &mentions, &location, &audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query post: %w", err)
	}
	post.Description = description.String
	post.Mentions = mentions.String
	post.Location = location.String
	post.AudioMessage = audio.String
	return &post, nil
}

// CreateComment adds a comment to an existing photo.
func (s *Service) CreateComment(ctx context.Context, photoID, userID int64, authorName, text string) (*familymodel.Comment, error) {
	if _, err := s.PhotoByID(ctx, photoID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO photo_comments (photo_id, user_id, author_name, comment_text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		photoID, userID, authorName, text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &familymodel.Comment{
		ID:         id,
		PhotoID:    photoID,
		AuthorName: authorName,
		Text:       text,
		CreatedAt:  now,
	}, nil
}

// CommentsByPhoto lists a photo's comments oldest first.
func (s *Service) CommentsByPhoto(ctx context.Context, photoID int64) ([]familymodel.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photo_id, author_name, comment_text, created_at
		FROM photo_comments
		WHERE photo_id = ?
		ORDER BY created_at, id`,
		photoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]familymodel.Comment, 0)
	for rows.Next() {
		var c familymodel.Comment
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// UpdateComment replaces a comment's text.
func (s *Service) UpdateComment(ctx context.Context, commentID int64, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE photo_comments SET comment_text = ? WHERE id = ?`, text, commentID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, commentID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM photo_comments WHERE id = ?`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
