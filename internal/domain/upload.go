package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus represents the current status of a relay.
type UploadStatus string

const (
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
)

// Upload is the persisted record of one relay: a source URL in, a platform
// message out.
type Upload struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	ChatID       string       `json:"chat_id" gorm:"not null"`
	SourceURL    string       `json:"source_url" gorm:"not null"`
	Kind         MediaKind    `json:"kind" gorm:"not null"`
	Caption      string       `json:"caption,omitempty"`
	FormatMode   FormatMode   `json:"format_mode,omitempty"`
	Status       UploadStatus `json:"status" gorm:"not null;index"`
	MessageID    int          `json:"message_id,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// NewUpload creates the record for a relay that is starting right now.
// Relays are synchronous, so there is no queued state.
func NewUpload(req *UploadRequest) *Upload {
	return &Upload{
		ID:         uuid.New().String(),
		ChatID:     req.ChatID,
		SourceURL:  req.SourceURL,
		Kind:       req.Kind,
		Caption:    req.Caption,
		FormatMode: req.Mode,
		Status:     StatusProcessing,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// MarkCompleted marks the relay as delivered and records the message id.
func (u *Upload) MarkCompleted(messageID int) {
	u.Status = StatusCompleted
	u.MessageID = messageID
	now := time.Now()
	u.CompletedAt = &now
	u.UpdatedAt = now
}

// MarkFailed marks the relay as failed.
func (u *Upload) MarkFailed(err error) {
	u.Status = StatusFailed
	u.ErrorMessage = err.Error()
	u.UpdatedAt = time.Now()
}

// IsTerminal checks if the relay reached a final state.
func (u *Upload) IsTerminal() bool {
	return u.Status == StatusCompleted || u.Status == StatusFailed
}
