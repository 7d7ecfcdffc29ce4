package repository

import (
	"context"
	"errors"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Everything but the bytes.
var attachmentMetaColumns = []string{
	"email_attachments.id",
	"email_attachments.email_id",
	"email_attachments.external_id",
	"email_attachments.filename",
	"email_attachments.mime_type",
	"email_attachments.size_bytes",
	"email_attachments.is_inline",
	"email_attachments.content_id",
	"email_attachments.created_at",
	"email_attachments.updated_at",
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, att *emaildomain.Attachment) (bool, error) {
	now := time.Now().UTC()
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	att.CreatedAt = now
	att.UpdatedAt = now

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(att)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attachmentRepository) Exists(ctx context.Context, emailID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&emaildomain.Attachment{}).
		Where("email_id = ? AND external_id = ?", emailID, externalID).
		Count(&count).Error
	return count > 0, err
}

func (r *attachmentRepository) FindForUser(ctx context.Context, userID, emailID, attachmentID string) (*emaildomain.Attachment, error) {
	var att emaildomain.Attachment
	err := r.db.WithContext(ctx).
		Joins("JOIN emails ON emails.id = email_attachments.email_id").
		Where("email_attachments.id = ? AND email_attachments.email_id = ? AND emails.user_id = ?", attachmentID, emailID, userID).
		First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepository) ListByEmail(ctx context.Context, userID, emailID string) ([]*emaildomain.Attachment, error) {
	var atts []*emaildomain.Attachment
	err := r.db.WithContext(ctx).
		Select(attachmentMetaColumns).
		Joins("JOIN emails ON emails.id = email_attachments.email_id").
		Where("email_attachments.email_id = ? AND emails.user_id = ?", emailID, userID).
		Order("email_attachments.filename ASC").
		Find(&atts).Error
	return atts, err
}

func (r *attachmentRepository) SaveData(ctx context.Context, userID, id string, data []byte) error {
	return r.db.WithContext(ctx).Model(&emaildomain.Attachment{}).
		Where("id = ? AND email_id IN (SELECT id FROM emails WHERE user_id = ?)", id, userID).
		Updates(map[string]interface{}{
			"data":       data,
			"updated_at": time.Now().UTC(),
		}).Error
}
