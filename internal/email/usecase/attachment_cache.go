package usecase

import (
	"context"
	"fmt"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/internal/email/repository"
	"privatezone-backend/internal/errs"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/tokenguard"
	"privatezone-backend/pkg/gauth"

	"go.uber.org/zap"
)

const (
	DefaultCacheLimit     int64 = 1 << 20
	defaultReprocessLimit       = 20
)

// AttachmentCache stores attachment rows and keeps the bytes of small ones in
// the database. Images below the limit are fetched when first seen; anything
// else is fetched on first read and kept if it turns out to be small.
type AttachmentCache struct {
	mail        MailClient
	creds       CredentialSource
	emails      repository.EmailRepository
	attachments repository.AttachmentRepository
	limit       int64
	logger      *zap.Logger
}

func NewAttachmentCache(
	mail MailClient,
	creds CredentialSource,
	emails repository.EmailRepository,
	attachments repository.AttachmentRepository,
	limit int64,
	logger *zap.Logger,
) *AttachmentCache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &AttachmentCache{
		mail:        mail,
		creds:       creds,
		emails:      emails,
		attachments: attachments,
		limit:       limit,
		logger:      logger.Named("attachments"),
	}
}

// Materialize inserts the attachments of each pending email and returns how
// many rows were written. Descriptors already stored are skipped.
func (c *AttachmentCache) Materialize(ctx context.Context, userID string, creds gauth.Credentials, pending []emaildomain.PendingAttachments) int {
	stored := 0
	for _, p := range pending {
		for _, d := range p.Descriptors {
			log := c.logger.With(
				zap.String("user_id", userID),
				zap.String("email_id", p.EmailID),
				zap.String("external_id", p.ExternalMessageID),
				zap.String("attachment_id", d.ExternalID))

			ok, err := c.materializeOne(ctx, creds, p, d, log)
			if err != nil {
				log.Warn("skip attachment", zap.Error(err))
				continue
			}
			if ok {
				stored++
			}
		}
	}
	return stored
}

func (c *AttachmentCache) materializeOne(ctx context.Context, creds gauth.Credentials, p emaildomain.PendingAttachments, d emaildomain.AttachmentDescriptor, log *zap.Logger) (bool, error) {
	if d.ExternalID == "" {
		return false, nil
	}

	exists, err := c.attachments.Exists(ctx, p.EmailID, d.ExternalID)
	if err != nil {
		return false, fmt.Errorf("check attachment: %w", err)
	}
	if exists {
		return false, nil
	}

	att := &emaildomain.Attachment{
		EmailID:    p.EmailID,
		ExternalID: d.ExternalID,
		Filename:   d.Filename,
		MimeType:   d.MimeType,
		SizeBytes:  d.SizeBytes,
		IsInline:   d.IsInline,
	}
	if d.ContentID != "" {
		contentID := d.ContentID
		att.ContentID = &contentID
	}

	if c.eager(d) {
		data, err := c.mail.GetAttachment(ctx, creds, p.ExternalMessageID, d.ExternalID)
		if err != nil {
			// Stored without bytes; the read path fetches them later.
			log.Warn("attachment download failed", zap.Error(err))
		} else {
			att.Data = data
		}
	}

	created, err := c.attachments.Create(ctx, att)
	if err != nil {
		return false, fmt.Errorf("insert attachment: %w", err)
	}
	return created, nil
}

func (c *AttachmentCache) eager(d emaildomain.AttachmentDescriptor) bool {
	return emaildomain.IsImage(d.MimeType) && d.SizeBytes < c.limit
}

// Get serves an attachment of an email owned by userID. Missing bytes are
// fetched from Gmail and written back when below the limit.
func (c *AttachmentCache) Get(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, []byte, error) {
	att, err := c.attachments.FindForUser(ctx, userID, emailID, attachmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load attachment: %w", err)
	}
	if att == nil {
		return nil, nil, errs.NotFound("attachment")
	}
	if att.Cached() {
		return att, att.Data, nil
	}

	email, err := c.emails.FindByID(ctx, userID, emailID)
	if err != nil {
		return nil, nil, fmt.Errorf("load email: %w", err)
	}
	if email == nil || email.ExternalID == nil {
		return nil, nil, errs.NotFound("gmail message")
	}

	rec, err := c.creds.Credentials(ctx, userID, intdomain.ProviderMail)
	if err != nil {
		return nil, nil, err
	}

	data, err := c.mail.GetAttachment(ctx, tokenguard.ClientCredentials(rec), *email.ExternalID, att.ExternalID)
	if err != nil {
		c.logger.Error("fetch attachment",
			zap.String("user_id", userID),
			zap.String("email_id", emailID),
			zap.String("attachment_id", att.ExternalID),
			zap.Error(err))
		return nil, nil, err
	}

	if int64(len(data)) < c.limit {
		if err := c.attachments.SaveData(ctx, userID, att.ID, data); err != nil {
			c.logger.Warn("backfill attachment", zap.String("attachment_id", att.ID), zap.Error(err))
		} else {
			att.Data = data
		}
	}
	return att, data, nil
}

// ReprocessMissing re-reads synced emails that have no attachment rows and
// stores whatever attachments Gmail lists for them.
func (c *AttachmentCache) ReprocessMissing(ctx context.Context, userID string, limit int) (*ReprocessResult, error) {
	if limit <= 0 {
		limit = defaultReprocessLimit
	}

	rec, err := c.creds.Credentials(ctx, userID, intdomain.ProviderMail)
	if err != nil {
		return nil, err
	}
	creds := tokenguard.ClientCredentials(rec)

	emails, err := c.emails.FindWithoutAttachments(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("find emails without attachments: %w", err)
	}

	res := &ReprocessResult{}
	for _, email := range emails {
		msg, err := c.mail.GetMessage(ctx, creds, *email.ExternalID)
		if err != nil {
			c.logger.Warn("skip email: fetch failed",
				zap.String("user_id", userID),
				zap.String("email_id", email.ID),
				zap.String("external_id", *email.ExternalID),
				zap.Error(err))
			continue
		}

		if len(msg.Attachments) > 0 {
			c.Materialize(ctx, userID, creds, []emaildomain.PendingAttachments{{
				EmailID:           email.ID,
				ExternalMessageID: msg.ExternalID,
				Descriptors:       msg.Attachments,
			}})
			res.TotalAttachments += len(msg.Attachments)
		}
		res.ProcessedEmails++
	}

	c.logger.Info("attachments reprocessed",
		zap.String("user_id", userID),
		zap.Int("processed_emails", res.ProcessedEmails),
		zap.Int("attachments", res.TotalAttachments))
	return res, nil
}
