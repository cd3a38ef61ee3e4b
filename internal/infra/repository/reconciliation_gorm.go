package repository

import (
	"context"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"gorm.io/gorm"
)

type reconciliationGormRepository struct {
	db *gorm.DB
}

func NewReconciliationGormRepository(db *gorm.DB) repo.ReconciliationRepository {
	return &reconciliationGormRepository{db: db}
}

func (r *reconciliationGormRepository) Create(ctx context.Context, e model.ReconciliationEntry) error {
	return r.db.WithContext(ctx).Create(&e).Error
}

func (r *reconciliationGormRepository) List(ctx context.Context, f repo.ReconciliationFilter) ([]model.ReconciliationEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.ReconciliationEntry{})
	if f.OnlyOpen {
		q = q.Where("resolved_at IS NULL")
	}
	if f.Kind != nil {
		q = q.Where("kind = ?", *f.Kind)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var out []model.ReconciliationEntry
	if err := q.Order("id desc").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return []model.ReconciliationEntry{}, err
	}
	return out, nil
}

// 未解決のものだけ解決済みにする
func (r *reconciliationGormRepository) Resolve(ctx context.Context, id int64, resolvedBy int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.ReconciliationEntry{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]interface{}{"resolved_at": at, "resolved_by": resolvedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
