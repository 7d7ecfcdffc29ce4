package repository

import (
	"context"

	emaildomain "privatezone-backend/internal/email/domain"
)

// EmailRepository defines storage operations for emails. Every method is
// scoped by user id.
type EmailRepository interface {
	// FindByExternalID returns the email mirroring a Gmail message, nil if absent.
	FindByExternalID(ctx context.Context, userID, externalID string) (*emaildomain.Email, error)
	FindByID(ctx context.Context, userID, id string) (*emaildomain.Email, error)
	List(ctx context.Context, userID string, filter emaildomain.EmailFilter) ([]*emaildomain.Email, int64, error)
	Create(ctx context.Context, email *emaildomain.Email) error
	// Save writes the whole row back.
	Save(ctx context.Context, email *emaildomain.Email) error
	Delete(ctx context.Context, userID, id string) (bool, error)
	// FindWithoutAttachments lists synced emails that have no attachment rows,
	// newest first.
	FindWithoutAttachments(ctx context.Context, userID string, limit int) ([]*emaildomain.Email, error)
}

// AttachmentRepository defines storage operations for email attachments.
type AttachmentRepository interface {
	// Create inserts the attachment unless (email_id, external_id) exists.
	// Reports whether a row was written.
	Create(ctx context.Context, att *emaildomain.Attachment) (bool, error)
	Exists(ctx context.Context, emailID, externalID string) (bool, error)
	// FindForUser loads one attachment of one email, only if the email
	// belongs to userID.
	FindForUser(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, error)
	ListByEmail(ctx context.Context, userID, emailID string) ([]*emaildomain.Attachment, error)
	SaveData(ctx context.Context, userID, id string, data []byte) error
}
