package usecase

import (
	"context"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/pkg/gauth"
)

// EmailUsecase covers the local mailbox and the Gmail-backed operations.
type EmailUsecase interface {
	// Sync pulls up to opts.MaxResults Gmail messages into the local
	// mailbox and caches their attachments.
	Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error)
	// SyncSince stores only the messages added after startHistoryID. A
	// provider 404 means the id expired and a full Sync is needed.
	SyncSince(ctx context.Context, userID string, startHistoryID uint64) (*SyncResult, error)
	ReprocessMissingAttachments(ctx context.Context, userID string, limit int) (*ReprocessResult, error)
	Profile(ctx context.Context, userID string) (*emaildomain.Profile, error)
	// Send delivers through Gmail and keeps a local copy marked as sent.
	Send(ctx context.Context, userID string, out emaildomain.OutgoingMessage) (*emaildomain.Email, error)
	// SetRemoteRead changes the UNREAD label of a Gmail message and mirrors
	// the flag on the local copy, if there is one. messageID is the Gmail id.
	SetRemoteRead(ctx context.Context, userID, messageID string, isRead bool) error
	// TrashRemote moves a Gmail message to trash and drops the local copy.
	TrashRemote(ctx context.Context, userID, messageID string) error
	Watch(ctx context.Context, userID string) (uint64, error)

	List(ctx context.Context, userID string, filter emaildomain.EmailFilter) ([]*emaildomain.Email, int64, error)
	Get(ctx context.Context, userID, id string) (*emaildomain.Email, error)
	// Compose stores a locally written email, or a draft.
	Compose(ctx context.Context, userID string, out emaildomain.OutgoingMessage, isImportant, isDraft bool) (*emaildomain.Email, error)
	Patch(ctx context.Context, userID, id string, patch emaildomain.EmailPatch) (*emaildomain.Email, error)
	Delete(ctx context.Context, userID, id string) error
	ListAttachments(ctx context.Context, userID, emailID string) ([]*emaildomain.Attachment, error)
	// GetAttachment returns the attachment row and its bytes, fetching them
	// from Gmail when they are not cached.
	GetAttachment(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, []byte, error)
}

// MailClient is the Gmail provider client. *gmail.Service implements it.
type MailClient interface {
	ListMessageIDs(ctx context.Context, creds gauth.Credentials, query string, max int64) ([]string, error)
	ListHistory(ctx context.Context, creds gauth.Credentials, startHistoryID uint64) ([]string, uint64, error)
	GetMessage(ctx context.Context, creds gauth.Credentials, messageID string) (*emaildomain.RemoteMessage, error)
	GetAttachment(ctx context.Context, creds gauth.Credentials, messageID, attachmentID string) ([]byte, error)
	Send(ctx context.Context, creds gauth.Credentials, out emaildomain.OutgoingMessage) (string, string, error)
	ModifyLabels(ctx context.Context, creds gauth.Credentials, messageID string, add, remove []string) error
	Trash(ctx context.Context, creds gauth.Credentials, messageID string) error
	GetProfile(ctx context.Context, creds gauth.Credentials) (*emaildomain.Profile, error)
	Watch(ctx context.Context, creds gauth.Credentials, topicName string) (uint64, error)
}

// CredentialSource is satisfied by *tokenguard.Guard.
type CredentialSource interface {
	Credentials(ctx context.Context, userID string, provider intdomain.Provider) (*intdomain.CredentialRecord, error)
}

// SyncHistory is the part of the sync history store the mail flows use.
type SyncHistory interface {
	RecordSync(ctx context.Context, userID string, provider intdomain.Provider, outcome intdomain.SyncOutcome, at time.Time) error
	AdvanceHistoryID(ctx context.Context, userID string, provider intdomain.Provider, historyID uint64) (bool, error)
}

type SyncOptions struct {
	Query      string
	MaxResults int64
}

type SyncResult struct {
	SyncedCount       int                  `json:"syncedCount"`
	TotalFetched      int                  `json:"totalFetched"`
	FailedCount       int                  `json:"failedCount"`
	AttachmentsStored int                  `json:"attachmentsStored"`
	Emails            []*emaildomain.Email `json:"emails"`
	// Created holds the emails this run inserted, newest first.
	Created []*emaildomain.Email `json:"-"`
}

type ReprocessResult struct {
	ProcessedEmails  int `json:"processedEmails"`
	TotalAttachments int `json:"totalAttachments"`
}
