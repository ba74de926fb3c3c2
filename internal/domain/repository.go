package domain

import "time"

// UploadRepository defines the interface for relay history persistence.
type UploadRepository interface {
	// Create creates a new upload record
	Create(upload *Upload) error

	// Update updates an existing upload record
	Update(upload *Upload) error

	// FindByID finds an upload by ID
	FindByID(id string) (*Upload, error)

	// FindAll finds all uploads with optional filters
	FindAll(filters map[string]interface{}) ([]*Upload, error)

	// DeleteOlderThan removes terminal records created before the cutoff and
	// returns how many were removed
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// Count returns the total number of upload records
	Count() (int64, error)

	// GetStats returns relay statistics
	GetStats() (*UploadStats, error)

	// Close releases the underlying storage
	Close() error
}

// UploadStats represents relay statistics.
type UploadStats struct {
	Total      int64 `json:"total"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
