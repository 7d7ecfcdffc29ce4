package usecase

import (
	"context"
	"fmt"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/internal/email/repository"
	"privatezone-backend/pkg/gauth"

	"go.uber.org/zap"
)

// Reconciler mirrors Gmail messages into the emails table. It does not touch
// attachments: every stored email whose message lists attachments is handed
// back as pending work for the AttachmentCache.
type Reconciler struct {
	mail   MailClient
	emails repository.EmailRepository
	logger *zap.Logger
}

func NewReconciler(mail MailClient, emails repository.EmailRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		mail:   mail,
		emails: emails,
		logger: logger.Named("reconciler"),
	}
}

// Reconcile lists the messages matching opts and stores each of them. A
// listing failure aborts; a failure on one message is logged and counted.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, creds gauth.Credentials, opts SyncOptions) (*SyncResult, []emaildomain.PendingAttachments, error) {
	ids, err := r.mail.ListMessageIDs(ctx, creds, opts.Query, opts.MaxResults)
	if err != nil {
		return nil, nil, fmt.Errorf("list gmail messages: %w", err)
	}
	res, pending := r.ReconcileIDs(ctx, userID, creds, ids)
	return res, pending, nil
}

// ReconcileIDs fetches and stores the given messages in order.
func (r *Reconciler) ReconcileIDs(ctx context.Context, userID string, creds gauth.Credentials, ids []string) (*SyncResult, []emaildomain.PendingAttachments) {
	res := &SyncResult{
		TotalFetched: len(ids),
		Emails:       make([]*emaildomain.Email, 0, len(ids)),
	}
	var pending []emaildomain.PendingAttachments

	for _, id := range ids {
		log := r.logger.With(zap.String("user_id", userID), zap.String("provider", "mail"), zap.String("external_id", id))

		msg, err := r.mail.GetMessage(ctx, creds, id)
		if err != nil {
			log.Warn("skip message: fetch failed", zap.Error(err))
			res.FailedCount++
			continue
		}

		email, created, err := r.store(ctx, userID, msg)
		if err != nil {
			log.Warn("skip message: store failed", zap.Error(err))
			res.FailedCount++
			continue
		}

		res.Emails = append(res.Emails, email)
		if created {
			res.Created = append(res.Created, email)
		}
		if len(msg.Attachments) > 0 {
			pending = append(pending, emaildomain.PendingAttachments{
				EmailID:           email.ID,
				ExternalMessageID: msg.ExternalID,
				Descriptors:       msg.Attachments,
			})
		}
	}

	res.SyncedCount = len(res.Emails)
	return res, pending
}

// store inserts a new row or refreshes the volatile fields of an existing one.
// Content already stored is never overwritten.
func (r *Reconciler) store(ctx context.Context, userID string, msg *emaildomain.RemoteMessage) (*emaildomain.Email, bool, error) {
	if msg.ExternalID == "" {
		return nil, false, emaildomain.ErrMalformedMessage
	}

	existing, err := r.emails.FindByExternalID(ctx, userID, msg.ExternalID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		email := newSyncedEmail(userID, msg)
		if err := r.emails.Create(ctx, email); err != nil {
			return nil, false, err
		}
		return email, true, nil
	}

	labels := append([]string(nil), msg.Labels...)
	emaildomain.EmailPatch{
		IsRead:      &msg.IsRead,
		IsImportant: &msg.IsImportant,
		Labels:      &labels,
		Snippet:     &msg.Snippet,
	}.Apply(existing)

	if err := r.emails.Save(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func newSyncedEmail(userID string, msg *emaildomain.RemoteMessage) *emaildomain.Email {
	externalID := msg.ExternalID
	email := &emaildomain.Email{
		UserID:      userID,
		ExternalID:  &externalID,
		Source:      emaildomain.SourceGmail,
		Type:        emaildomain.EmailTypeReceived,
		Sender:      msg.Sender,
		Recipients:  msg.Recipients,
		Cc:          msg.Cc,
		Bcc:         msg.Bcc,
		Subject:     msg.Subject,
		Body:        msg.Body,
		IsHTML:      msg.IsHTML,
		Snippet:     msg.Snippet,
		Labels:      append([]string(nil), msg.Labels...),
		IsRead:      msg.IsRead,
		IsImportant: msg.IsImportant,
	}
	if msg.ThreadID != "" {
		threadID := msg.ThreadID
		email.ThreadID = &threadID
	}
	if !msg.ReceivedAt.IsZero() {
		receivedAt := msg.ReceivedAt
		email.ReceivedAt = &receivedAt
	}
	return email
}
