package repository

import (
	"context"
	"testing"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"
	"privatezone-backend/pkg/database/dbtest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestEmailRepository_FindByExternalID(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "emails" WHERE user_id = \$1 AND external_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "external_id", "subject", "labels", "is_read"}).
			AddRow("e1", "u1", "m1", "Hello", `["INBOX","UNREAD"]`, false))

	email, err := repo.FindByExternalID(context.Background(), "u1", "m1")
	require.NoError(t, err)
	require.NotNil(t, email)
	assert.Equal(t, "Hello", email.Subject)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, email.Labels)
	require.NotNil(t, email.ExternalID)
	assert.Equal(t, "m1", *email.ExternalID)
}

func TestEmailRepository_FindByExternalIDMissing(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "emails"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	email, err := repo.FindByExternalID(context.Background(), "u1", "nope")
	require.NoError(t, err)
	assert.Nil(t, email)
}

func TestEmailRepository_CreateSkipsAssociations(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectExec(`INSERT INTO "emails"`).WillReturnResult(sqlmock.NewResult(0, 1))

	email := &emaildomain.Email{
		UserID:     "u1",
		ExternalID: strPtr("m1"),
		Source:     emaildomain.SourceGmail,
		Labels:     []string{"INBOX"},
		Attachments: []emaildomain.Attachment{
			{ExternalID: "a1", Filename: "x.png"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), email))
	assert.NotEmpty(t, email.ID)
}

func TestEmailRepository_ListFilters(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "emails" WHERE user_id = \$1 AND is_read = \$2 AND \(subject ILIKE \$3 OR sender ILIKE \$4 OR snippet ILIKE \$5\)`).
		WithArgs("u1", false, "%invoice%", "%invoice%", "%invoice%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "emails" WHERE .* ORDER BY COALESCE\(received_at, created_at\) DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "subject"}).AddRow("e1", "u1", "Invoice #1"))

	emails, total, err := repo.List(context.Background(), "u1", emaildomain.EmailFilter{Status: "unread", Search: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, emails, 1)
	assert.Equal(t, "Invoice #1", emails[0].Subject)
}

func TestEmailRepository_DeleteScopedByUser(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectExec(`DELETE FROM "emails" WHERE id = \$1 AND user_id = \$2`).
		WithArgs("e1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "intruder", "e1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestEmailRepository_FindWithoutAttachments(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "emails" WHERE \(user_id = \$1 AND external_id IS NOT NULL\) AND NOT EXISTS \(SELECT 1 FROM email_attachments a WHERE a.email_id = emails.id\) ORDER BY COALESCE\(received_at, created_at\) DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "external_id"}).
			AddRow("e2", "u1", "m2").
			AddRow("e1", "u1", "m1"))

	emails, err := repo.FindWithoutAttachments(context.Background(), "u1", 20)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "e2", emails[0].ID)
}

func TestAttachmentRepository_CreateIgnoresDuplicates(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewAttachmentRepository(db)

	mock.ExpectExec(`INSERT INTO "email_attachments" .* ON CONFLICT \("email_id","external_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "email_attachments" .* ON CONFLICT \("email_id","external_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), &emaildomain.Attachment{EmailID: "e1", ExternalID: "a1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(context.Background(), &emaildomain.Attachment{EmailID: "e1", ExternalID: "a1"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAttachmentRepository_FindForUserJoinsOwner(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(`SELECT .* FROM "email_attachments" JOIN emails ON emails.id = email_attachments.email_id WHERE email_attachments.id = \$1 AND email_attachments.email_id = \$2 AND emails.user_id = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email_id", "external_id", "mime_type", "size_bytes", "data", "created_at"}).
			AddRow("att", "e1", "x1", "image/png", 3, []byte{1, 2, 3}, time.Now()))

	att, err := repo.FindForUser(context.Background(), "u1", "e1", "att")
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.True(t, att.Cached())
	assert.Equal(t, []byte{1, 2, 3}, att.Data)
}

func TestAttachmentRepository_FindForUserOtherOwner(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(`FROM "email_attachments" JOIN emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	att, err := repo.FindForUser(context.Background(), "intruder", "e1", "att")
	require.NoError(t, err)
	assert.Nil(t, att)
}

func TestAttachmentRepository_SaveData(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewAttachmentRepository(db)

	mock.ExpectExec(`UPDATE "email_attachments" SET "data"=\$1,"updated_at"=\$2 WHERE id = \$3 AND email_id IN \(SELECT id FROM emails WHERE user_id = \$4\)`).
		WithArgs([]byte("img"), sqlmock.AnyArg(), "att", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveData(context.Background(), "u1", "att", []byte("img")))
}

func TestEmailRepository_SaveScopedByUser(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewEmailRepository(db)

	mock.ExpectExec(`UPDATE "emails" SET .* WHERE user_id = \$[0-9]+ AND .*"id" = \$[0-9]+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "emails" SET .* WHERE user_id = \$[0-9]+ AND .*"id" = \$[0-9]+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	email := &emaildomain.Email{ID: "e1", UserID: "u1", Subject: "Hello", IsRead: true}
	require.NoError(t, repo.Save(context.Background(), email))
	assert.False(t, email.UpdatedAt.IsZero())

	other := &emaildomain.Email{ID: "e1", UserID: "intruder", Subject: "Hijack"}
	assert.ErrorIs(t, repo.Save(context.Background(), other), gorm.ErrRecordNotFound)
}
