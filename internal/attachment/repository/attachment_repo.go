package repository

import (
	"context"
	"errors"

	"realtime_chat_service/internal/attachment/domain"
	errprocess "realtime_chat_service/pkg/err"

	"gorm.io/gorm"
)

// AttachmentRepo definition attachment metadata store
type AttachmentRepo interface {
	AutoMigrate() error
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id uint) (*domain.Attachment, error)
	UpdateStatus(ctx context.Context, id uint, status domain.AttachmentStatus) error
	FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error)
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo create AttachmentRepo
func NewAttachmentRepo(db *gorm.DB) AttachmentRepo {
	return &attachmentRepo{db: db}
}

// AutoMigrate 只會新增欄位, 不會刪除
func (r *attachmentRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Attachment{})
}

func (r *attachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// GetByID get attachment by id
func (r *attachmentRepo) GetByID(ctx context.Context, id uint) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.ErrAttachmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UpdateStatus 只更新 status 欄位
func (r *attachmentRepo) UpdateStatus(ctx context.Context, id uint, status domain.AttachmentStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Attachment{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errprocess.ErrAttachmentNotFound
	}
	return nil
}

// FindByStatus 用來補發卡在 uploaded 的掃描工作
func (r *attachmentRepo) FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error) {
	var list []domain.Attachment
	if err := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
