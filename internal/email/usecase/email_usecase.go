package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/internal/email/repository"
	"privatezone-backend/internal/errs"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/tokenguard"
	"privatezone-backend/pkg/events"
	"privatezone-backend/pkg/gauth"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

const (
	defaultSyncMax int64 = 50
	maxSyncMax     int64 = 500
	labelUnread          = "UNREAD"
)

// emailUsecase implements EmailUsecase
type emailUsecase struct {
	emailRepo      repository.EmailRepository
	attachmentRepo repository.AttachmentRepository
	mail           MailClient
	creds          CredentialSource
	history        SyncHistory
	reconciler     *Reconciler
	cache          *AttachmentCache
	publisher      events.Publisher
	watchTopic     string
	logger         *zap.Logger
}

type Config struct {
	// AttachmentCacheLimit is the size below which attachment bytes are kept
	// in the database.
	AttachmentCacheLimit int64
	// WatchTopic is the Pub/Sub topic Gmail publishes mailbox changes to.
	WatchTopic string
}

func NewEmailUsecase(
	emailRepo repository.EmailRepository,
	attachmentRepo repository.AttachmentRepository,
	mail MailClient,
	creds CredentialSource,
	history SyncHistory,
	publisher events.Publisher,
	cfg Config,
	logger *zap.Logger,
) EmailUsecase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &emailUsecase{
		emailRepo:      emailRepo,
		attachmentRepo: attachmentRepo,
		mail:           mail,
		creds:          creds,
		history:        history,
		reconciler:     NewReconciler(mail, emailRepo, logger),
		cache:          NewAttachmentCache(mail, creds, emailRepo, attachmentRepo, cfg.AttachmentCacheLimit, logger),
		publisher:      publisher,
		watchTopic:     cfg.WatchTopic,
		logger:         logger.Named("email"),
	}
}

func (u *emailUsecase) credentials(ctx context.Context, userID string) (gauth.Credentials, *intdomain.CredentialRecord, error) {
	rec, err := u.creds.Credentials(ctx, userID, intdomain.ProviderMail)
	if err != nil {
		return gauth.Credentials{}, nil, err
	}
	return tokenguard.ClientCredentials(rec), rec, nil
}

func (u *emailUsecase) Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultSyncMax
	}
	if opts.MaxResults > maxSyncMax {
		opts.MaxResults = maxSyncMax
	}
	log := u.logger.With(zap.String("user_id", userID), zap.String("provider", string(intdomain.ProviderMail)))

	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		log.Warn("sync aborted: no usable credentials", zap.Error(err))
		return nil, err
	}

	res, pending, err := u.reconciler.Reconcile(ctx, userID, creds, opts)
	if err != nil {
		log.Error("sync aborted", zap.Error(err))
		return nil, err
	}
	u.finishSync(ctx, log, userID, creds, res, pending)
	return res, nil
}

func (u *emailUsecase) SyncSince(ctx context.Context, userID string, startHistoryID uint64) (*SyncResult, error) {
	log := u.logger.With(
		zap.String("user_id", userID),
		zap.String("provider", string(intdomain.ProviderMail)),
		zap.Uint64("start_history_id", startHistoryID))

	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		log.Warn("incremental sync aborted: no usable credentials", zap.Error(err))
		return nil, err
	}

	ids, latest, err := u.mail.ListHistory(ctx, creds, startHistoryID)
	if err != nil {
		log.Warn("list gmail history", zap.Error(err))
		return nil, err
	}
	if int64(len(ids)) > maxSyncMax {
		ids = ids[len(ids)-int(maxSyncMax):]
	}

	res, pending := u.reconciler.ReconcileIDs(ctx, userID, creds, ids)
	u.finishSync(ctx, log, userID, creds, res, pending)
	log.Debug("history applied", zap.Uint64("latest_history_id", latest))
	return res, nil
}

// finishSync caches attachments for a reconciled batch, then records and
// announces the outcome. Failures past this point only get logged.
func (u *emailUsecase) finishSync(ctx context.Context, log *zap.Logger, userID string, creds gauth.Credentials, res *SyncResult, pending []emaildomain.PendingAttachments) {
	res.AttachmentsStored = u.cache.Materialize(ctx, userID, creds, pending)

	now := time.Now().UTC()
	outcome := intdomain.SyncOutcome{Synced: res.SyncedCount, Fetched: res.TotalFetched, Failed: res.FailedCount}
	if err := u.history.RecordSync(ctx, userID, intdomain.ProviderMail, outcome, now); err != nil {
		log.Warn("record sync history", zap.Error(err))
	}

	ev := events.SyncEvent{
		UserID:   userID,
		Kind:     string(intdomain.ProviderMail),
		Synced:   res.SyncedCount,
		Fetched:  res.TotalFetched,
		Failed:   res.FailedCount,
		Stored:   res.AttachmentsStored,
		SyncedAt: now,
	}
	if err := u.publisher.PublishSync(ctx, ev); err != nil {
		log.Warn("publish sync event", zap.Error(err))
	}

	log.Info("gmail sync finished",
		zap.Int("synced", res.SyncedCount),
		zap.Int("fetched", res.TotalFetched),
		zap.Int("failed", res.FailedCount),
		zap.Int("attachments", res.AttachmentsStored))
}

func (u *emailUsecase) ReprocessMissingAttachments(ctx context.Context, userID string, limit int) (*ReprocessResult, error) {
	return u.cache.ReprocessMissing(ctx, userID, limit)
}

func (u *emailUsecase) Profile(ctx context.Context, userID string) (*emaildomain.Profile, error) {
	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.mail.GetProfile(ctx, creds)
}

func validateOutgoing(out emaildomain.OutgoingMessage) error {
	if strings.TrimSpace(out.To) == "" || strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return errs.Validation("to, subject, and body are required")
	}
	for _, field := range []struct{ name, value string }{{"to", out.To}, {"cc", out.Cc}, {"bcc", out.Bcc}} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, err := mail.ParseAddressList(field.value); err != nil {
			return errs.Validation("invalid %s address: %v", field.name, err)
		}
	}
	return nil
}

func (u *emailUsecase) Send(ctx context.Context, userID string, out emaildomain.OutgoingMessage) (*emaildomain.Email, error) {
	if err := validateOutgoing(out); err != nil {
		return nil, err
	}

	creds, rec, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.AccountEmail != nil && *rec.AccountEmail != "" {
		out.From = *rec.AccountEmail
	}

	messageID, threadID, err := u.mail.Send(ctx, creds, out)
	if err != nil {
		u.logger.Error("send via gmail", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	email := &emaildomain.Email{
		UserID:     userID,
		ExternalID: &messageID,
		Source:     emaildomain.SourceGmail,
		Type:       emaildomain.EmailTypeSent,
		Sender:     out.From,
		Recipients: out.To,
		Cc:         out.Cc,
		Bcc:        out.Bcc,
		Subject:    out.Subject,
		Body:       out.Body,
		IsHTML:     out.IsHTML,
		Labels:     []string{"SENT"},
		IsRead:     true,
		ReceivedAt: &now,
	}
	if threadID != "" {
		email.ThreadID = &threadID
	}
	if err := u.emailRepo.Create(ctx, email); err != nil {
		// Already sent; the next sync picks the message up again.
		u.logger.Error("store sent email",
			zap.String("user_id", userID),
			zap.String("external_id", messageID),
			zap.Error(err))
		return nil, fmt.Errorf("store sent email: %w", err)
	}
	return email, nil
}

func (u *emailUsecase) SetRemoteRead(ctx context.Context, userID, messageID string, isRead bool) error {
	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		return err
	}

	var add, remove []string
	if isRead {
		remove = []string{labelUnread}
	} else {
		add = []string{labelUnread}
	}
	if err := u.mail.ModifyLabels(ctx, creds, messageID, add, remove); err != nil {
		return err
	}

	email, err := u.emailRepo.FindByExternalID(ctx, userID, messageID)
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}
	if email == nil {
		return nil
	}

	labels := withoutLabel(email.Labels, labelUnread)
	if !isRead {
		labels = append(labels, labelUnread)
	}
	emaildomain.EmailPatch{IsRead: &isRead, Labels: &labels}.Apply(email)
	return u.emailRepo.Save(ctx, email)
}

func withoutLabel(labels []string, label string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l != label {
			out = append(out, l)
		}
	}
	return out
}

func (u *emailUsecase) TrashRemote(ctx context.Context, userID, messageID string) error {
	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.mail.Trash(ctx, creds, messageID); err != nil {
		return err
	}

	email, err := u.emailRepo.FindByExternalID(ctx, userID, messageID)
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}
	if email == nil {
		return nil
	}
	if _, err := u.emailRepo.Delete(ctx, userID, email.ID); err != nil {
		return fmt.Errorf("delete local copy: %w", err)
	}
	return nil
}

func (u *emailUsecase) Watch(ctx context.Context, userID string) (uint64, error) {
	if u.watchTopic == "" {
		return 0, errs.Validation("gmail push notifications are not configured")
	}

	creds, _, err := u.credentials(ctx, userID)
	if err != nil {
		return 0, err
	}

	historyID, err := u.mail.Watch(ctx, creds, u.watchTopic)
	if err != nil {
		return 0, err
	}
	if _, err := u.history.AdvanceHistoryID(ctx, userID, intdomain.ProviderMail, historyID); err != nil {
		u.logger.Warn("store watch history id", zap.String("user_id", userID), zap.Error(err))
	}

	u.logger.Info("gmail watch started", zap.String("user_id", userID), zap.Uint64("history_id", historyID))
	return historyID, nil
}

func (u *emailUsecase) List(ctx context.Context, userID string, filter emaildomain.EmailFilter) ([]*emaildomain.Email, int64, error) {
	switch filter.Status {
	case "", "unread", "read", "important":
	default:
		return nil, 0, errs.Validation("unknown filter %q", filter.Status)
	}
	return u.emailRepo.List(ctx, userID, filter)
}

func (u *emailUsecase) Get(ctx context.Context, userID, id string) (*emaildomain.Email, error) {
	email, err := u.emailRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	if email == nil {
		return nil, errs.NotFound("email")
	}

	atts, err := u.attachmentRepo.ListByEmail(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	for _, a := range atts {
		email.Attachments = append(email.Attachments, *a)
	}
	return email, nil
}

func (u *emailUsecase) Compose(ctx context.Context, userID string, out emaildomain.OutgoingMessage, isImportant, isDraft bool) (*emaildomain.Email, error) {
	if err := validateOutgoing(out); err != nil {
		return nil, err
	}

	emailType := emaildomain.EmailTypeSent
	if isDraft {
		emailType = emaildomain.EmailTypeDraft
	}
	email := &emaildomain.Email{
		UserID:      userID,
		Source:      emaildomain.SourceUser,
		Type:        emailType,
		Sender:      out.From,
		Recipients:  out.To,
		Cc:          out.Cc,
		Bcc:         out.Bcc,
		Subject:     out.Subject,
		Body:        out.Body,
		IsHTML:      out.IsHTML,
		Labels:      []string{},
		IsRead:      true,
		IsImportant: isImportant,
	}
	if err := u.emailRepo.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("store email: %w", err)
	}
	return email, nil
}

func (u *emailUsecase) Patch(ctx context.Context, userID, id string, patch emaildomain.EmailPatch) (*emaildomain.Email, error) {
	if patch.Empty() {
		return nil, errs.Validation("no fields to update")
	}

	email, err := u.emailRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	if email == nil {
		return nil, errs.NotFound("email")
	}

	patch.Apply(email)
	if err := u.emailRepo.Save(ctx, email); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	return email, nil
}

func (u *emailUsecase) Delete(ctx context.Context, userID, id string) error {
	deleted, err := u.emailRepo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	if !deleted {
		return errs.NotFound("email")
	}
	return nil
}

func (u *emailUsecase) ListAttachments(ctx context.Context, userID, emailID string) ([]*emaildomain.Attachment, error) {
	email, err := u.emailRepo.FindByID(ctx, userID, emailID)
	if err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	if email == nil {
		return nil, errs.NotFound("email")
	}
	return u.attachmentRepo.ListByEmail(ctx, userID, emailID)
}

func (u *emailUsecase) GetAttachment(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, []byte, error) {
	return u.cache.Get(ctx, userID, emailID, attachmentID)
}
