package models

import "time"

// DownloadEvent is published on the event bus at each lifecycle transition
// of a download. Consumed by the reporting process, never by the bot itself.
type DownloadEvent struct {
	Event      string    `json:"event"`
	DownloadID string    `json:"download_id,omitempty"`
	UserID     string    `json:"user_id"`
	VideoURL   string    `json:"video_url"`
	Title      string    `json:"title,omitempty"`
	Format     string    `json:"format,omitempty"`
	Quality    string    `json:"quality,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Download lifecycle event names
const (
	EventDownloadRequested = "download.requested"
	EventDownloadCompleted = "download.completed"
	EventDownloadFailed    = "download.failed"
)
