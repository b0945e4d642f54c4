package models

import "time"

// Download is the durable record of one download attempt. It outlives the
// in-memory session and is what the reporting views read.
type Download struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	VideoURL    string     `json:"video_url" db:"video_url"`
	VideoTitle  string     `json:"video_title" db:"video_title"`
	Format      string     `json:"format" db:"format"`
	Quality     string     `json:"quality" db:"quality"`
	FileSize    int64      `json:"file_size,omitempty" db:"file_size"`
	Status      string     `json:"status" db:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// DownloadStatus constants
const (
	DownloadStatusPending    = "pending"
	DownloadStatusProcessing = "processing"
	DownloadStatusCompleted  = "completed"
	DownloadStatusFailed     = "failed"
)

// DownloadStats aggregates download counts by outcome.
type DownloadStats struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Processing int64 `json:"processing"`
	Pending    int64 `json:"pending"`
}
