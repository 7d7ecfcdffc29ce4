package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	emaildomain "privatezone-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) FindByExternalID(ctx context.Context, userID, externalID string) (*emaildomain.Email, error) {
	var email emaildomain.Email
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) FindByID(ctx context.Context, userID, id string) (*emaildomain.Email, error) {
	var email emaildomain.Email
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) List(ctx context.Context, userID string, filter emaildomain.EmailFilter) ([]*emaildomain.Email, int64, error) {
	query := r.db.WithContext(ctx).Model(&emaildomain.Email{}).Where("user_id = ?", userID)

	switch filter.Status {
	case "unread":
		query = query.Where("is_read = ?", false)
	case "read":
		query = query.Where("is_read = ?", true)
	case "important":
		query = query.Where("is_important = ?", true)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("subject ILIKE ? OR sender ILIKE ? OR snippet ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var emails []*emaildomain.Email
	err := query.
		Order("COALESCE(received_at, created_at) DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&emails).Error
	return emails, total, err
}

func (r *emailRepository) Create(ctx context.Context, email *emaildomain.Email) error {
	now := time.Now().UTC()
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.CreatedAt = now
	email.UpdatedAt = now
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(email).Error
}

// Save writes every column of a row the owner already has. A row owned by
// someone else is reported as gorm.ErrRecordNotFound.
func (r *emailRepository) Save(ctx context.Context, email *emaildomain.Email) error {
	email.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(email).
		Where("user_id = ?", email.UserID).
		Select("*").
		Omit(clause.Associations, "id", "user_id", "created_at").
		Updates(email)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *emailRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&emaildomain.Email{})
	return res.RowsAffected > 0, res.Error
}

func (r *emailRepository) FindWithoutAttachments(ctx context.Context, userID string, limit int) ([]*emaildomain.Email, error) {
	var emails []*emaildomain.Email
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_id IS NOT NULL", userID).
		Where("NOT EXISTS (SELECT 1 FROM email_attachments a WHERE a.email_id = emails.id)").
		Order("COALESCE(received_at, created_at) DESC").
		Limit(limit).
		Find(&emails).Error
	return emails, err
}
