// Package notification turns Gmail watch notifications into a mail sync and
// a push notification to the user's devices.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	authdomain "privatezone-backend/internal/auth/domain"
	emaildomain "privatezone-backend/internal/email/domain"
	emailusecase "privatezone-backend/internal/email/usecase"
	"privatezone-backend/internal/errs"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/pkg/fcm"

	"go.uber.org/zap"
)

// pushSyncMax bounds the full sync a notification falls back to when there
// is no usable history id.
const pushSyncMax = 10

// GmailNotification is the payload Gmail publishes to the watch topic.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

type MailSyncer interface {
	Sync(ctx context.Context, userID string, opts emailusecase.SyncOptions) (*emailusecase.SyncResult, error)
	SyncSince(ctx context.Context, userID string, startHistoryID uint64) (*emailusecase.SyncResult, error)
}

type CredentialFinder interface {
	FindActiveByAccountEmail(ctx context.Context, provider intdomain.Provider, email string) (*intdomain.CredentialRecord, error)
}

type HistoryTracker interface {
	Get(ctx context.Context, userID string, provider intdomain.Provider) (*intdomain.SyncHistory, error)
	AdvanceHistoryID(ctx context.Context, userID string, provider intdomain.Provider, historyID uint64) (bool, error)
}

type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// Outcome describes what a single notification led to.
type Outcome struct {
	UserID   string
	Skipped  string // reason, empty when a sync ran
	NewMail  int
	Notified bool
}

type Handler struct {
	creds   CredentialFinder
	history HistoryTracker
	mail    MailSyncer
	tokens  TokenStore
	sender  fcm.Sender
	logger  *zap.Logger
}

// NewHandler builds the notification handler. sender may be nil, in which
// case mail is still synced but nobody is notified.
func NewHandler(creds CredentialFinder, history HistoryTracker, mail MailSyncer, tokens TokenStore, sender fcm.Sender, logger *zap.Logger) *Handler {
	return &Handler{
		creds:   creds,
		history: history,
		mail:    mail,
		tokens:  tokens,
		sender:  sender,
		logger:  logger.Named("notification"),
	}
}

// Handle processes one Pub/Sub payload. Errors are returned only for
// payloads worth redelivering; unknown accounts and stale history ids are
// reported through Outcome.Skipped.
func (h *Handler) Handle(ctx context.Context, data []byte) (*Outcome, error) {
	var n GmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		h.logger.Warn("malformed notification", zap.Error(err))
		return &Outcome{Skipped: "malformed payload"}, nil
	}
	log := h.logger.With(zap.String("account", n.EmailAddress), zap.Uint64("history_id", n.HistoryID))

	rec, err := h.creds.FindActiveByAccountEmail(ctx, intdomain.ProviderMail, n.EmailAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	if rec == nil {
		log.Debug("no active mail integration for account")
		return &Outcome{Skipped: "unknown account"}, nil
	}
	out := &Outcome{UserID: rec.UserID}
	log = log.With(zap.String("user_id", rec.UserID))

	prev, err := h.history.Get(ctx, rec.UserID, intdomain.ProviderMail)
	if err != nil {
		return nil, fmt.Errorf("load history id: %w", err)
	}
	var since uint64
	if prev != nil {
		since = prev.HistoryID
	}

	advanced, err := h.history.AdvanceHistoryID(ctx, rec.UserID, intdomain.ProviderMail, n.HistoryID)
	if err != nil {
		return nil, fmt.Errorf("advance history id: %w", err)
	}
	if !advanced {
		log.Debug("duplicate notification")
		out.Skipped = "already seen"
		return out, nil
	}

	res, err := h.sync(ctx, log, rec.UserID, since)
	if err != nil {
		// the history id is already stored, so a redelivery would be skipped
		log.Warn("push-triggered sync failed", zap.Error(err))
		out.Skipped = "sync failed"
		return out, nil
	}
	out.NewMail = len(res.Created)
	log.Info("push-triggered sync finished",
		zap.Int("synced", res.SyncedCount),
		zap.Int("new", out.NewMail),
		zap.Int("attachments_stored", res.AttachmentsStored))

	if out.NewMail > 0 && h.sender != nil {
		out.Notified = h.notify(ctx, rec.UserID, n, res.Created)
	}
	return out, nil
}

// sync applies the mailbox history after since, or runs a bounded full sync
// when there is no stored id or the provider no longer has it.
func (h *Handler) sync(ctx context.Context, log *zap.Logger, userID string, since uint64) (*emailusecase.SyncResult, error) {
	if since > 0 {
		res, err := h.mail.SyncSince(ctx, userID, since)
		if err == nil {
			return res, nil
		}
		if errs.ProviderStatus(err) != http.StatusNotFound {
			return nil, err
		}
		log.Info("history id expired, falling back to full sync", zap.Uint64("since", since))
	}
	return h.mail.Sync(ctx, userID, emailusecase.SyncOptions{MaxResults: pushSyncMax})
}

func (h *Handler) notify(ctx context.Context, userID string, n GmailNotification, created []*emaildomain.Email) bool {
	log := h.logger.With(zap.String("user_id", userID))

	tokens, err := h.tokens.GetTokensByUserID(ctx, userID)
	if err != nil {
		log.Error("load device tokens", zap.Error(err))
		return false
	}
	if len(tokens) == 0 {
		log.Debug("no device tokens, skipping push")
		return false
	}
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	failed, err := h.sender.SendToDevices(ctx, values, newMailNotification(n, created))
	for _, token := range failed {
		if derr := h.tokens.DeleteToken(ctx, token); derr != nil {
			log.Warn("prune device token", zap.Error(derr))
		}
	}
	if err != nil {
		log.Error("send push notification", zap.Error(err))
		return false
	}
	log.Info("push notification sent", zap.Int("devices", len(values)-len(failed)))
	return true
}

func newMailNotification(n GmailNotification, created []*emaildomain.Email) fcm.NotificationData {
	latest := created[0]

	title := "New email from " + latest.Sender
	if latest.Sender == "" {
		title = "New email"
	}
	body := latest.Subject
	if len([]rune(body)) > 100 {
		body = string([]rune(body)[:97]) + "..."
	}
	if body == "" {
		body = "(no subject)"
	}
	if len(created) > 1 {
		body = fmt.Sprintf("%s (+%d more)", body, len(created)-1)
	}

	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":         "email_update",
			"email":        n.EmailAddress,
			"historyId":    strconv.FormatUint(n.HistoryID, 10),
			"emailId":      latest.ID,
			"click_action": "/inbox/" + latest.ID,
		},
	}
}
