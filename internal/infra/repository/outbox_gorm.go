package repository

import (
	"context"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxGormRepository struct {
	db *gorm.DB
}

func NewOutboxGormRepository(db *gorm.DB) repo.OutboxRepository {
	return &outboxGormRepository{db: db}
}

func (r *outboxGormRepository) Create(ctx context.Context, ev model.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(&ev).Error
}

// 古い順。複数インスタンスでも同じ行を取らないようSKIP LOCKEDで選んで確保期限を書く
func (r *outboxGormRepository) ClaimPending(ctx context.Context, limit int, now, leaseUntil time.Time) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", model.OutboxStatusPending).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return []model.OutboxEvent{}, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for i := range out {
		ids = append(ids, out[i].ID)
		out[i].ClaimedUntil = &leaseUntil
	}
	if err := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("claimed_until", leaseUntil).Error; err != nil {
		return []model.OutboxEvent{}, err
	}
	return out, nil
}

func (r *outboxGormRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.OutboxStatusSent,
			"published_at":  at,
			"last_error":    "",
			"claimed_until": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *outboxGormRepository) MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) (bool, error) {
	var ev model.OutboxEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ev).Error; err != nil {
		return false, mapErr(err)
	}

	attempts := ev.Attempts + 1
	status := model.OutboxStatusPending
	if attempts >= maxAttempts {
		status = model.OutboxStatusFailed
	}

	if err := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":      attempts,
			"status":        status,
			"last_error":    lastErr,
			"claimed_until": nil,
		}).Error; err != nil {
		return false, err
	}
	return status == model.OutboxStatusFailed, nil
}
