package models

import "time"

// User is a messaging-platform user known to the service. Created or
// refreshed on /start, referenced by every Download row.
type User struct {
	ID         string    `json:"id" db:"id"`
	PlatformID string    `json:"platform_id" db:"platform_id"`
	Username   string    `json:"username,omitempty" db:"username"`
	FirstName  string    `json:"first_name,omitempty" db:"first_name"`
	LastName   string    `json:"last_name,omitempty" db:"last_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// UserWithStats is a reporting row combining a user with download counts.
type UserWithStats struct {
	User
	DownloadCount  int64 `json:"download_count"`
	CompletedCount int64 `json:"completed_count"`
}
