package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/gauth"

	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	providerName = "gmail"
	user         = "me"
	maxPageSize  = 500
)

// Scopes requested when connecting a mailbox.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
	oauth2api.UserinfoEmailScope,
}

// Service is the Mail provider client. It keeps no per-user state: every call
// takes the credentials to use and builds its own API service.
type Service struct {
	oauth *gauth.OAuth
	opts  []option.ClientOption
}

func NewService(oauth *gauth.OAuth, opts ...option.ClientOption) *Service {
	return &Service{
		oauth: oauth.WithScopes(Scopes...),
		opts:  opts,
	}
}

func (s *Service) OAuth() *gauth.OAuth { return s.oauth }

func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*gauth.Token, error) {
	return s.oauth.RefreshAccessToken(ctx, refreshToken)
}

func (s *Service) newGmail(ctx context.Context, creds gauth.Credentials) (*gmail.Service, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, creds))}, s.opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListMessageIDs returns up to max message ids matching query, newest first.
func (s *Service) ListMessageIDs(ctx context.Context, creds gauth.Credentials, query string, max int64) ([]string, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return nil, err
	}

	var ids []string
	pageToken := ""
	for int64(len(ids)) < max {
		pageSize := max - int64(len(ids))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := srv.Users.Messages.List(user).MaxResults(pageSize).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, gauth.Classify(providerName, err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Messages) == 0 {
			break
		}
	}

	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// ListHistory returns the ids of messages added to the mailbox after
// startHistoryID, oldest first and without duplicates, together with the
// newest history id the provider reported. A 404 means startHistoryID is too
// old and the caller needs a full sync.
func (s *Service) ListHistory(ctx context.Context, creds gauth.Credentials, startHistoryID uint64) ([]string, uint64, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return nil, 0, err
	}

	var ids []string
	seen := make(map[string]struct{})
	latest := startHistoryID
	err = srv.Users.History.List(user).
		StartHistoryId(startHistoryID).
		HistoryTypes("messageAdded").
		Context(ctx).
		Pages(ctx, func(resp *gmail.ListHistoryResponse) error {
			if resp.HistoryId > latest {
				latest = resp.HistoryId
			}
			for _, h := range resp.History {
				for _, added := range h.MessagesAdded {
					if added.Message == nil || added.Message.Id == "" {
						continue
					}
					if _, ok := seen[added.Message.Id]; ok {
						continue
					}
					seen[added.Message.Id] = struct{}{}
					ids = append(ids, added.Message.Id)
				}
			}
			return nil
		})
	if err != nil {
		return nil, 0, gauth.Classify(providerName, err)
	}
	return ids, latest, nil
}

// GetMessage fetches one message in full format and normalizes it.
func (s *Service) GetMessage(ctx context.Context, creds gauth.Credentials, messageID string) (*emaildomain.RemoteMessage, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}

	return normalize(msg)
}

// GetAttachment downloads one attachment body. No caching happens here.
func (s *Service) GetAttachment(ctx context.Context, creds gauth.Credentials, messageID, attachmentID string) ([]byte, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return nil, err
	}

	part, err := srv.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}

	data, err := decodeBase64URL(part.Data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode attachment data: %w", err)
	}
	return data, nil
}

// Send composes an RFC 5322 message and sends it. Returns the Gmail message
// and thread ids.
func (s *Service) Send(ctx context.Context, creds gauth.Credentials, out emaildomain.OutgoingMessage) (string, string, error) {
	raw, err := compose(out, time.Now())
	if err != nil {
		return "", "", err
	}

	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return "", "", err
	}

	sent, err := srv.Users.Messages.Send(user, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", "", gauth.Classify(providerName, err)
	}
	return sent.Id, sent.ThreadId, nil
}

// ModifyLabels adds and/or removes labels from a message.
func (s *Service) ModifyLabels(ctx context.Context, creds gauth.Credentials, messageID string, add, remove []string) error {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Modify(user, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	return gauth.Classify(providerName, err)
}

// Trash moves a message to the trash.
func (s *Service) Trash(ctx context.Context, creds gauth.Credentials, messageID string) error {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Trash(user, messageID).Context(ctx).Do()
	return gauth.Classify(providerName, err)
}

func (s *Service) GetProfile(ctx context.Context, creds gauth.Credentials) (*emaildomain.Profile, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return nil, err
	}

	p, err := srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}
	return &emaildomain.Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
		HistoryID:     p.HistoryId,
	}, nil
}

// Watch (re)starts push notifications for the INBOX on a Pub/Sub topic and
// returns the starting history id.
func (s *Service) Watch(ctx context.Context, creds gauth.Credentials, topicName string) (uint64, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newGmail(ctx, creds)
	if err != nil {
		return 0, err
	}

	// Only one watch per mailbox; a failing stop just means there was none.
	_ = srv.Users.Stop(user).Context(ctx).Do()

	resp, err := srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return 0, gauth.Classify(providerName, err)
	}
	return resp.HistoryId, nil
}

// Helper functions

func normalize(msg *gmail.Message) (*emaildomain.RemoteMessage, error) {
	if msg == nil || msg.Id == "" || msg.Payload == nil {
		return nil, emaildomain.ErrMalformedMessage
	}

	headers := msg.Payload.Headers
	body, isHTML := getEmailBody(msg.Payload)

	return &emaildomain.RemoteMessage{
		ExternalID:  msg.Id,
		ThreadID:    msg.ThreadId,
		Sender:      getHeader(headers, "From"),
		Recipients:  getHeader(headers, "To"),
		Cc:          getHeader(headers, "Cc"),
		Bcc:         getHeader(headers, "Bcc"),
		Subject:     getHeader(headers, "Subject"),
		Body:        body,
		IsHTML:      isHTML,
		Snippet:     msg.Snippet,
		Labels:      append([]string(nil), msg.LabelIds...),
		IsRead:      !hasLabel(msg.LabelIds, "UNREAD"),
		IsImportant: hasLabel(msg.LabelIds, "IMPORTANT"),
		ReceivedAt:  time.UnixMilli(msg.InternalDate).UTC(),
		Attachments: getAttachments(msg.Payload),
	}, nil
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	// Single-part message: the payload itself is the body
	if len(payload.Parts) == 0 && payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
				switch part.MimeType {
				case "text/html":
					if data, err := decodeBase64URL(part.Body.Data); err == nil && htmlBody == "" {
						htmlBody = string(data)
					}
				case "text/plain":
					if data, err := decodeBase64URL(part.Body.Data); err == nil && plainBody == "" {
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

func getAttachments(payload *gmail.MessagePart) []emaildomain.AttachmentDescriptor {
	var attachments []emaildomain.AttachmentDescriptor

	var findAttachments func(parts []*gmail.MessagePart)
	findAttachments = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil {
				contentID := strings.Trim(getHeader(part.Headers, "Content-ID"), "<>")
				disposition := strings.ToLower(getHeader(part.Headers, "Content-Disposition"))

				attachments = append(attachments, emaildomain.AttachmentDescriptor{
					ExternalID: part.Body.AttachmentId,
					Filename:   part.Filename,
					MimeType:   part.MimeType,
					SizeBytes:  part.Body.Size,
					IsInline:   strings.HasPrefix(disposition, "inline") || contentID != "",
					ContentID:  contentID,
				})
			}
			if len(part.Parts) > 0 {
				findAttachments(part.Parts)
			}
		}
	}
	findAttachments(payload.Parts)

	return attachments
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

// Gmail emits URL-safe base64, sometimes without padding.
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func compose(out emaildomain.OutgoingMessage, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject(out.Subject)

	if out.From != "" {
		from, err := mail.ParseAddressList(out.From)
		if err != nil {
			return nil, errs.Validation("invalid from address: %v", err)
		}
		h.SetAddressList("From", from)
	}
	for _, field := range []struct{ key, value string }{{"To", out.To}, {"Cc", out.Cc}, {"Bcc", out.Bcc}} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(field.value)
		if err != nil {
			return nil, errs.Validation("invalid %s address: %v", strings.ToLower(field.key), err)
		}
		h.SetAddressList(field.key, addrs)
	}

	contentType := "text/plain"
	if out.IsHTML {
		contentType = "text/html"
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := w.Write([]byte(out.Body)); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}
