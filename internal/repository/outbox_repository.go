package repository

import (
	"context"
	"time"

	"campusmart/internal/domain/model"
)

type OutboxRepository interface {
	Create(ctx context.Context, ev model.OutboxEvent) error
	// pendingで未確保（または確保切れ）の行を古い順に取り、leaseUntilまで確保する
	ClaimPending(ctx context.Context, limit int, now, leaseUntil time.Time) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	// attemptsを+1。maxAttemptsに達したらfailedにしてtrueを返す
	MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) (bool, error)
}

type ReconciliationFilter struct {
	OnlyOpen bool
	Kind     *model.ReconciliationKind
	Limit    int
	Offset   int
}

type ReconciliationRepository interface {
	Create(ctx context.Context, e model.ReconciliationEntry) error
	List(ctx context.Context, f ReconciliationFilter) ([]model.ReconciliationEntry, error)
	Resolve(ctx context.Context, id int64, resolvedBy int64, at time.Time) error
}
