package usecase

import (
	"context"
	"errors"
	"testing"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/pkg/gauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCache(t *testing.T) (*AttachmentCache, *memEmails, *fakeMail) {
	t.Helper()
	emails := newMemEmails()
	mail := newFakeMail()
	return NewAttachmentCache(mail, &fakeCreds{}, emails, emails.atts, 0, zaptest.NewLogger(t)), emails, mail
}

func storedEmail(t *testing.T, emails *memEmails, userID, externalID string) *emaildomain.Email {
	t.Helper()
	e := &emaildomain.Email{UserID: userID, ExternalID: &externalID, Source: emaildomain.SourceGmail}
	require.NoError(t, emails.Create(context.Background(), e))
	return e
}

func TestMaterialize_Dedup(t *testing.T) {
	cache, emails, mail := newCache(t)
	email := storedEmail(t, emails, "u1", "m1")
	mail.blobs["x1"] = []byte("gif")
	pending := []emaildomain.PendingAttachments{{
		EmailID:           email.ID,
		ExternalMessageID: "m1",
		Descriptors: []emaildomain.AttachmentDescriptor{
			{ExternalID: "x1", Filename: "a.gif", MimeType: "image/gif", SizeBytes: 3},
		},
	}}
	ctx := context.Background()

	assert.Equal(t, 1, cache.Materialize(ctx, "u1", gauth.Credentials{}, pending))
	assert.Equal(t, 0, cache.Materialize(ctx, "u1", gauth.Credentials{}, pending))
	assert.Equal(t, 1, emails.atts.count(email.ID))
	assert.Equal(t, 1, mail.attachmentFetches)
}

func TestMaterialize_SkipsDescriptorsWithoutID(t *testing.T) {
	cache, emails, mail := newCache(t)
	email := storedEmail(t, emails, "u1", "m1")

	n := cache.Materialize(context.Background(), "u1", gauth.Credentials{}, []emaildomain.PendingAttachments{{
		EmailID:           email.ID,
		ExternalMessageID: "m1",
		Descriptors: []emaildomain.AttachmentDescriptor{
			{Filename: "orphan.png", MimeType: "image/png", SizeBytes: 1},
			{ExternalID: "x2", Filename: "report.pdf", MimeType: "application/pdf", SizeBytes: 10},
		},
	}})

	assert.Equal(t, 1, n)
	assert.Equal(t, 0, mail.attachmentFetches)
	assert.False(t, emails.atts.byExternalID("x2").Cached())
}

func TestMaterialize_DownloadFailureKeepsMetadata(t *testing.T) {
	cache, emails, mail := newCache(t)
	email := storedEmail(t, emails, "u1", "m1")
	mail.blobErr = errors.New("connection reset")

	n := cache.Materialize(context.Background(), "u1", gauth.Credentials{}, []emaildomain.PendingAttachments{{
		EmailID:           email.ID,
		ExternalMessageID: "m1",
		Descriptors: []emaildomain.AttachmentDescriptor{
			{ExternalID: "x1", Filename: "a.png", MimeType: "image/png", SizeBytes: 100, IsInline: true, ContentID: "<img1>"},
		},
	}})

	assert.Equal(t, 1, n)
	att := emails.atts.byExternalID("x1")
	require.NotNil(t, att)
	assert.False(t, att.Cached())
	assert.True(t, att.IsInline)
	require.NotNil(t, att.ContentID)
	assert.Equal(t, "<img1>", *att.ContentID)
}

func TestGet_MissingRowIsNotFound(t *testing.T) {
	cache, emails, _ := newCache(t)
	email := storedEmail(t, emails, "u1", "m1")

	_, _, err := cache.Get(context.Background(), "u1", email.ID, "nope")
	require.Error(t, err)
	assert.Equal(t, "attachment not found", err.Error())
}

func TestReprocessMissing(t *testing.T) {
	cache, emails, mail := newCache(t)
	withAtts := storedEmail(t, emails, "u1", "m1")
	storedEmail(t, emails, "u1", "m2")
	storedEmail(t, emails, "u1", "m3")
	storedEmail(t, emails, "u2", "m4")

	mail.add(message("m1",
		emaildomain.AttachmentDescriptor{ExternalID: "x1", Filename: "a.pdf", MimeType: "application/pdf", SizeBytes: 10},
		emaildomain.AttachmentDescriptor{ExternalID: "x2", Filename: "b.pdf", MimeType: "application/pdf", SizeBytes: 10},
	))
	mail.add(message("m2"))
	mail.failing["m3"] = errors.New("quota")

	res, err := cache.ReprocessMissing(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ProcessedEmails)
	assert.Equal(t, 2, res.TotalAttachments)
	assert.Equal(t, 2, emails.atts.count(withAtts.ID))

	// m1 now has rows, m2 and m3 are still candidates.
	res, err = cache.ReprocessMissing(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessedEmails)
	assert.Equal(t, 0, res.TotalAttachments)
}
