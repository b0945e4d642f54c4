package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Users

// UpsertUser creates a user on first contact and refreshes the profile
// fields on every later /start.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, platform_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.PlatformID, user.Username, user.FirstName, user.LastName,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUserByPlatformID retrieves a user by their messaging-platform id
func (r *Repository) GetUserByPlatformID(ctx context.Context, platformID string) (*models.User, error) {
	var user models.User

	query := `
		SELECT id, platform_id, username, first_name, last_name, created_at, updated_at
		FROM users
		WHERE platform_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, platformID).Scan(
		&user.ID, &user.PlatformID, &user.Username, &user.FirstName,
		&user.LastName, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Downloads

// CreateDownload creates a new download record in pending state
func (r *Repository) CreateDownload(ctx context.Context, download *models.Download) error {
	if download.ID == "" {
		download.ID = uuid.New().String()
	}
	if download.Status == "" {
		download.Status = models.DownloadStatusPending
	}

	query := `
		INSERT INTO downloads (id, user_id, video_url, video_title, format, quality, file_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		download.ID, download.UserID, download.VideoURL, download.VideoTitle,
		download.Format, download.Quality, download.FileSize, download.Status,
	).Scan(&download.CreatedAt, &download.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create download: %w", err)
	}

	return nil
}

// FindLatestPending returns the most recent pending download for a user and
// URL, which is the row the orchestrator takes over.
func (r *Repository) FindLatestPending(ctx context.Context, userID, videoURL string) (*models.Download, error) {
	var d models.Download

	query := `
		SELECT id, user_id, video_url, video_title, format, quality, file_size,
		       status, completed_at, created_at, updated_at
		FROM downloads
		WHERE user_id = $1 AND video_url = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Pool.QueryRow(ctx, query, userID, videoURL, models.DownloadStatusPending).Scan(
		&d.ID, &d.UserID, &d.VideoURL, &d.VideoTitle, &d.Format, &d.Quality,
		&d.FileSize, &d.Status, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending download: %w", err)
	}

	return &d, nil
}

// MarkProcessing transitions a download to processing, stamping the chosen
// track type, quality label and declared size.
func (r *Repository) MarkProcessing(ctx context.Context, id, format, quality string, fileSize int64) error {
	query := `
		UPDATE downloads
		SET status = $2, format = $3, quality = $4, file_size = $5, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, models.DownloadStatusProcessing, format, quality, fileSize)
	if err != nil {
		return fmt.Errorf("failed to mark download processing: %w", err)
	}

	return nil
}

// MarkCompleted transitions a download to completed with the delivered file
// size and a completion timestamp.
func (r *Repository) MarkCompleted(ctx context.Context, id string, fileSize int64) error {
	query := `
		UPDATE downloads
		SET status = $2, file_size = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, models.DownloadStatusCompleted, fileSize, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark download completed: %w", err)
	}

	return nil
}

// MarkFailed transitions a download to failed. Only explicit cancellation
// paths call this; pipeline errors leave the row at its last status.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE downloads
		SET status = $2, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, models.DownloadStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to mark download failed: %w", err)
	}

	return nil
}

// ListDownloadsByUser returns a user's most recent downloads
func (r *Repository) ListDownloadsByUser(ctx context.Context, userID string, limit int) ([]*models.Download, error) {
	query := `
		SELECT id, user_id, video_url, video_title, format, quality, file_size,
		       status, completed_at, created_at, updated_at
		FROM downloads
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	return scanDownloads(rows)
}

// ListDownloads returns all downloads with pagination, newest first
func (r *Repository) ListDownloads(ctx context.Context, limit, offset int) ([]*models.Download, error) {
	query := `
		SELECT id, user_id, video_url, video_title, format, quality, file_size,
		       status, completed_at, created_at, updated_at
		FROM downloads
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	return scanDownloads(rows)
}

// GetStats aggregates download counts by status across all users
func (r *Repository) GetStats(ctx context.Context) (*models.DownloadStats, error) {
	var stats models.DownloadStats

	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'completed'),
		       count(*) FILTER (WHERE status = 'failed'),
		       count(*) FILTER (WHERE status = 'processing'),
		       count(*) FILTER (WHERE status = 'pending')
		FROM downloads
	`

	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.Processing, &stats.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

// GetUserStats aggregates one user's download counts by status
func (r *Repository) GetUserStats(ctx context.Context, userID string) (*models.DownloadStats, error) {
	var stats models.DownloadStats

	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'completed'),
		       count(*) FILTER (WHERE status = 'failed'),
		       count(*) FILTER (WHERE status = 'processing'),
		       count(*) FILTER (WHERE status = 'pending')
		FROM downloads
		WHERE user_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.Processing, &stats.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

// ListUsersWithStats returns users with their download counts for reporting
func (r *Repository) ListUsersWithStats(ctx context.Context, limit, offset int) ([]*models.UserWithStats, error) {
	query := `
		SELECT u.id, u.platform_id, u.username, u.first_name, u.last_name,
		       u.created_at, u.updated_at,
		       count(d.id),
		       count(d.id) FILTER (WHERE d.status = 'completed')
		FROM users u
		LEFT JOIN downloads d ON d.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserWithStats
	for rows.Next() {
		var u models.UserWithStats
		err := rows.Scan(
			&u.ID, &u.PlatformID, &u.Username, &u.FirstName, &u.LastName,
			&u.CreatedAt, &u.UpdatedAt, &u.DownloadCount, &u.CompletedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	return users, nil
}

func scanDownloads(rows pgx.Rows) ([]*models.Download, error) {
	var downloads []*models.Download
	for rows.Next() {
		var d models.Download
		err := rows.Scan(
			&d.ID, &d.UserID, &d.VideoURL, &d.VideoTitle, &d.Format, &d.Quality,
			&d.FileSize, &d.Status, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, &d)
	}

	return downloads, nil
}
