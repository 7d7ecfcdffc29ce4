package domain

import (
	"strings"
	"time"
)

// Attachment belongs to exactly one email. Data is nil until the bytes have
// been cached locally.
type Attachment struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	EmailID    string    `json:"email_id" gorm:"not null;index"`
	ExternalID string    `json:"-" gorm:"not null"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"file_size"`
	IsInline   bool      `json:"is_inline"`
	ContentID  *string   `json:"content_id,omitempty"`
	Data       []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Attachment) TableName() string { return "email_attachments" }

func (a *Attachment) Cached() bool { return a.Data != nil }

// IsImage reports whether a MIME type is image-like.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
