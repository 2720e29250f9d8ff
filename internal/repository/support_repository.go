package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichain/medichain/internal/domain/support"
)

type SupportRepository struct {
	db *gorm.DB
}

func NewSupportRepository(db *gorm.DB) *SupportRepository {
	return &SupportRepository{db: db}
}

func (r *SupportRepository) Create(ctx context.Context, req *support.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *SupportRepository) List(ctx context.Context) ([]*support.Request, error) {
	var out []*support.Request
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *SupportRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (*support.Request, error) {
	res := r.db.WithContext(ctx).Model(&support.Request{}).
		Where("id = ?", id).
		Update("completed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, support.ErrRequestNotFound
	}

	var req support.Request
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, support.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}
