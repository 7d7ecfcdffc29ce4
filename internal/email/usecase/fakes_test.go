package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/internal/email/repository"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/pkg/events"
	"privatezone-backend/pkg/gauth"
)

type memEmails struct {
	mu   sync.Mutex
	rows map[string]*emaildomain.Email
	seq  int
	atts *memAttachments
}

var _ repository.EmailRepository = (*memEmails)(nil)

func newMemEmails() *memEmails {
	m := &memEmails{rows: map[string]*emaildomain.Email{}}
	m.atts = &memAttachments{rows: map[string]*emaildomain.Attachment{}, emails: m}
	return m
}

func clone(e *emaildomain.Email) *emaildomain.Email {
	c := *e
	c.Labels = append([]string(nil), e.Labels...)
	c.Attachments = nil
	return &c
}

func (m *memEmails) FindByExternalID(_ context.Context, userID, externalID string) (*emaildomain.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.UserID == userID && e.ExternalID != nil && *e.ExternalID == externalID {
			return clone(e), nil
		}
	}
	return nil, nil
}

func (m *memEmails) FindByID(_ context.Context, userID, id string) (*emaildomain.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	return clone(e), nil
}

func (m *memEmails) List(_ context.Context, userID string, _ emaildomain.EmailFilter) ([]*emaildomain.Email, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*emaildomain.Email
	for _, e := range m.rows {
		if e.UserID == userID {
			out = append(out, clone(e))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memEmails) Create(_ context.Context, email *emaildomain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	email.ID = fmt.Sprintf("e%d", m.seq)
	email.CreatedAt = time.Now()
	m.rows[email.ID] = clone(email)
	return nil
}

func (m *memEmails) Save(_ context.Context, email *emaildomain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[email.ID] = clone(email)
	return nil
}

func (m *memEmails) Delete(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memEmails) FindWithoutAttachments(_ context.Context, userID string, limit int) ([]*emaildomain.Email, error) {
	m.mu.Lock()
	var out []*emaildomain.Email
	for _, e := range m.rows {
		if e.UserID == userID && e.ExternalID != nil {
			out = append(out, clone(e))
		}
	}
	m.mu.Unlock()

	kept := out[:0]
	for _, e := range out {
		if m.atts.count(e.ID) == 0 {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

func (m *memEmails) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

type memAttachments struct {
	mu     sync.Mutex
	rows   map[string]*emaildomain.Attachment
	seq    int
	saves  int
	emails *memEmails
}

var _ repository.AttachmentRepository = (*memAttachments)(nil)

func (m *memAttachments) Create(_ context.Context, att *emaildomain.Attachment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.EmailID == att.EmailID && a.ExternalID == att.ExternalID {
			return false, nil
		}
	}
	m.seq++
	att.ID = fmt.Sprintf("a%d", m.seq)
	c := *att
	m.rows[att.ID] = &c
	return true, nil
}

func (m *memAttachments) Exists(_ context.Context, emailID, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.EmailID == emailID && a.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAttachments) FindForUser(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, error) {
	email, _ := m.emails.FindByID(ctx, userID, emailID)
	if email == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[attachmentID]
	if !ok || a.EmailID != emailID {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *memAttachments) ListByEmail(ctx context.Context, userID, emailID string) ([]*emaildomain.Attachment, error) {
	email, _ := m.emails.FindByID(ctx, userID, emailID)
	if email == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*emaildomain.Attachment
	for _, a := range m.rows {
		if a.EmailID == emailID {
			c := *a
			c.Data = nil
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (m *memAttachments) SaveData(_ context.Context, _, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if a, ok := m.rows[id]; ok {
		a.Data = data
	}
	return nil
}

func (m *memAttachments) count(emailID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.EmailID == emailID {
			n++
		}
	}
	return n
}

func (m *memAttachments) byExternalID(externalID string) *emaildomain.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ExternalID == externalID {
			return a
		}
	}
	return nil
}

type fakeMail struct {
	mu sync.Mutex

	ids      []string
	messages map[string]*emaildomain.RemoteMessage
	failing  map[string]error
	listErr  error
	blobs    map[string][]byte

	added        []string
	historyErr   error
	historyStart uint64
	blobErr  error

	attachmentFetches int
	sent              []emaildomain.OutgoingMessage
	labelCalls        [][2][]string
	trashed           []string
	watchTopic        string
	lastCreds         gauth.Credentials
}

var _ MailClient = (*fakeMail)(nil)

func newFakeMail() *fakeMail {
	return &fakeMail{
		messages: map[string]*emaildomain.RemoteMessage{},
		failing:  map[string]error{},
		blobs:    map[string][]byte{},
	}
}

func (f *fakeMail) add(msg *emaildomain.RemoteMessage) {
	f.ids = append(f.ids, msg.ExternalID)
	f.messages[msg.ExternalID] = msg
}

func (f *fakeMail) ListMessageIDs(_ context.Context, creds gauth.Credentials, _ string, max int64) ([]string, error) {
	f.lastCreds = creds
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := f.ids
	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (f *fakeMail) ListHistory(_ context.Context, _ gauth.Credentials, startHistoryID uint64) ([]string, uint64, error) {
	f.historyStart = startHistoryID
	if f.historyErr != nil {
		return nil, 0, f.historyErr
	}
	return f.added, startHistoryID + uint64(len(f.added)), nil
}

func (f *fakeMail) GetMessage(_ context.Context, _ gauth.Credentials, id string) (*emaildomain.RemoteMessage, error) {
	if err, ok := f.failing[id]; ok {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, emaildomain.ErrMalformedMessage)
	}
	c := *msg
	c.Labels = append([]string(nil), msg.Labels...)
	return &c, nil
}

func (f *fakeMail) GetAttachment(_ context.Context, _ gauth.Credentials, _, attachmentID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachmentFetches++
	if f.blobErr != nil {
		return nil, f.blobErr
	}
	return f.blobs[attachmentID], nil
}

func (f *fakeMail) Send(_ context.Context, _ gauth.Credentials, out emaildomain.OutgoingMessage) (string, string, error) {
	f.sent = append(f.sent, out)
	return "sent-1", "thread-1", nil
}

func (f *fakeMail) ModifyLabels(_ context.Context, _ gauth.Credentials, _ string, add, remove []string) error {
	f.labelCalls = append(f.labelCalls, [2][]string{add, remove})
	return nil
}

func (f *fakeMail) Trash(_ context.Context, _ gauth.Credentials, id string) error {
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeMail) GetProfile(context.Context, gauth.Credentials) (*emaildomain.Profile, error) {
	return &emaildomain.Profile{EmailAddress: "me@gmail.com", MessagesTotal: 10}, nil
}

func (f *fakeMail) Watch(_ context.Context, _ gauth.Credentials, topic string) (uint64, error) {
	f.watchTopic = topic
	return 4242, nil
}

type fakeCreds struct {
	err   error
	calls int
	email string
}

func (f *fakeCreds) Credentials(_ context.Context, userID string, provider intdomain.Provider) (*intdomain.CredentialRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := &intdomain.CredentialRecord{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh",
		IsActive:     true,
	}
	if f.email != "" {
		rec.AccountEmail = &f.email
	}
	return rec, nil
}

type fakeHistory struct {
	outcomes   []intdomain.SyncOutcome
	historyIDs []uint64
}

func (f *fakeHistory) RecordSync(_ context.Context, _ string, _ intdomain.Provider, outcome intdomain.SyncOutcome, _ time.Time) error {
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakeHistory) AdvanceHistoryID(_ context.Context, _ string, _ intdomain.Provider, id uint64) (bool, error) {
	f.historyIDs = append(f.historyIDs, id)
	return true, nil
}

type fakePublisher struct {
	events []events.SyncEvent
}

func (f *fakePublisher) PublishSync(_ context.Context, ev events.SyncEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() {}

func message(id string, atts ...emaildomain.AttachmentDescriptor) *emaildomain.RemoteMessage {
	return &emaildomain.RemoteMessage{
		ExternalID:  id,
		ThreadID:    "t-" + id,
		Sender:      "Alice <alice@example.com>",
		Recipients:  "me@gmail.com",
		Subject:     "Subject " + id,
		Body:        "Body " + id,
		Snippet:     "snippet " + id,
		Labels:      []string{"INBOX", "UNREAD"},
		ReceivedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Attachments: atts,
	}
}
