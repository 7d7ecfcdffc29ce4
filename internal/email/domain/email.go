package domain

import "time"

// Source tells whether a row was written by the user or pulled from Gmail.
type Source string

const (
	SourceUser  Source = "user"
	SourceGmail Source = "gmail"
)

type EmailType string

const (
	EmailTypeReceived EmailType = "received"
	EmailTypeSent     EmailType = "sent"
	EmailTypeDraft    EmailType = "draft"
)

type Email struct {
	ID          string       `json:"id" gorm:"primaryKey"`
	UserID      string       `json:"user_id" gorm:"index;not null"`
	ExternalID  *string      `json:"external_id,omitempty"` // Gmail message id, nil for local-only mail
	ThreadID    *string      `json:"thread_id,omitempty"`
	Source      Source       `json:"source"`
	Type        EmailType    `json:"email_type" gorm:"column:email_type"`
	Sender      string       `json:"sender"`
	Recipients  string       `json:"recipients"`
	Cc          string       `json:"cc,omitempty"`
	Bcc         string       `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	IsHTML      bool         `json:"is_html"`
	Snippet     string       `json:"snippet"`
	Labels      []string     `json:"labels" gorm:"serializer:json"`
	IsRead      bool         `json:"is_read"`
	IsImportant bool         `json:"is_important"`
	ReceivedAt  *time.Time   `json:"received_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
}

func (Email) TableName() string { return "emails" }

// EmailPatch carries the fields a sync or a flag toggle may change. Nil means
// "leave as is".
type EmailPatch struct {
	IsRead      *bool
	IsImportant *bool
	Labels      *[]string
	Snippet     *string
}

func (p EmailPatch) Empty() bool {
	return p.IsRead == nil && p.IsImportant == nil && p.Labels == nil && p.Snippet == nil
}

// Apply merges the patch into e.
func (p EmailPatch) Apply(e *Email) {
	if p.IsRead != nil {
		e.IsRead = *p.IsRead
	}
	if p.IsImportant != nil {
		e.IsImportant = *p.IsImportant
	}
	if p.Labels != nil {
		e.Labels = append([]string(nil), (*p.Labels)...)
	}
	if p.Snippet != nil {
		e.Snippet = *p.Snippet
	}
}

// EmailFilter narrows the local mailbox listing.
type EmailFilter struct {
	Status string // "", "unread", "read", "important"
	Search string
	Limit  int
	Offset int
}
