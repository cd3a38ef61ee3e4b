package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusmart/internal/domain/model"
	"campusmart/internal/infra/event"
	"campusmart/internal/repository"
	"campusmart/internal/usecase"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
	// 1バッチの配信がこれを超えると別のリレーが同じイベントを取り直す
	defaultClaimLease = 5 * time.Minute
)

type Publisher interface {
	Publish(ctx context.Context, msg event.Message) error
}

// order.created の後処理
type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, ev usecase.OrderEvent) error
}

// outboxのpendingを配信して、結果をoutboxに書き戻す。
// Txは確保と結果の書き戻しだけに使い、ブローカーやメールの呼び出しはTxの外で行う
type OutboxRelay struct {
	tx          repository.TransactionManager
	publisher   Publisher
	mailer      OrderMailer
	batchSize   int
	maxAttempts int
	lease       time.Duration
	now         func() time.Time
}

type RelayResult struct {
	Sent    int
	Retried int
	Failed  int
}

// mailerはnilでもよい
func NewOutboxRelay(tx repository.TransactionManager, publisher Publisher, mailer OrderMailer) *OutboxRelay {
	return &OutboxRelay{
		tx:          tx,
		publisher:   publisher,
		mailer:      mailer,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		lease:       defaultClaimLease,
		now:         time.Now,
	}
}

// 1バッチ分。確保した行は期限まで他のインスタンスから見えないので、複数台で動かしてもよい
func (r *OutboxRelay) RunOnce(ctx context.Context) (RelayResult, error) {
	var res RelayResult

	var events []model.OutboxEvent
	now := r.now()
	err := r.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		var err error
		events, err = repos.Outbox().ClaimPending(ctx, r.batchSize, now, now.Add(r.lease))
		return err
	})
	if err != nil {
		return res, fmt.Errorf("claim outbox: %w", err)
	}

	for _, ev := range events {
		if err := r.deliver(ctx, ev, &res); err != nil {
			// 残りは確保期限が切れたら次のバッチで拾われる
			return res, err
		}
	}
	return res, nil
}

func (r *OutboxRelay) deliver(ctx context.Context, ev model.OutboxEvent, res *RelayResult) error {
	logger := log.Ctx(ctx).With().Str("event_id", ev.ID).Str("topic", ev.Topic).Logger()

	pubErr := r.publisher.Publish(ctx, event.Message{
		ID:      ev.ID,
		Topic:   ev.Topic,
		Key:     ev.Key,
		Payload: []byte(ev.Payload),
	})
	if pubErr != nil {
		return r.recordFailure(ctx, ev, pubErr, res)
	}

	err := r.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		return repos.Outbox().MarkSent(ctx, ev.ID, r.now())
	})
	if err != nil {
		return fmt.Errorf("mark event %s sent: %w", ev.ID, err)
	}
	res.Sent++
	logger.Debug().Msg("event published")

	if ev.Topic == model.TopicOrderCreated && r.mailer != nil {
		return r.confirm(ctx, ev)
	}
	return nil
}

func (r *OutboxRelay) recordFailure(ctx context.Context, ev model.OutboxEvent, pubErr error, res *RelayResult) error {
	logger := log.Ctx(ctx).With().Str("event_id", ev.ID).Str("topic", ev.Topic).Logger()

	var failed bool
	err := r.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		var err error
		failed, err = repos.Outbox().MarkAttemptFailed(ctx, ev.ID, pubErr.Error(), r.maxAttempts)
		if err != nil || !failed {
			return err
		}
		return repos.Reconciliation().Create(ctx, model.ReconciliationEntry{
			Kind:      model.ReconcileEventUndelivered,
			OrderID:   orderIDFromKey(ev.Key),
			Detail:    fmt.Sprintf("event %s (%s) undelivered after %d attempts: %s", ev.ID, ev.Topic, r.maxAttempts, pubErr),
			CreatedAt: r.now(),
		})
	})
	if err != nil {
		return fmt.Errorf("record publish failure for %s: %w", ev.ID, err)
	}

	if !failed {
		res.Retried++
		logger.Warn().Err(pubErr).Int("attempts", ev.Attempts+1).Msg("event publish failed, will retry")
		return nil
	}
	res.Failed++
	logger.Error().Err(pubErr).Msg("event undelivered")
	return nil
}

// メール失敗は注文を巻き戻さず、照合テーブルに残すだけ
func (r *OutboxRelay) confirm(ctx context.Context, ev model.OutboxEvent) error {
	var oe usecase.OrderEvent
	if err := json.Unmarshal([]byte(ev.Payload), &oe); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event_id", ev.ID).Msg("broken order event payload")
		return nil
	}
	mailErr := r.mailer.SendOrderConfirmation(ctx, oe)
	if mailErr == nil {
		return nil
	}

	log.Ctx(ctx).Error().Err(mailErr).Int64("order_id", oe.OrderID).Msg("order confirmation mail failed")
	orderID := oe.OrderID
	err := r.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		return repos.Reconciliation().Create(ctx, model.ReconciliationEntry{
			Kind:      model.ReconcilePostCommitFailure,
			OrderID:   &orderID,
			Detail:    fmt.Sprintf("confirmation mail for %s: %s", oe.OrderNumber, mailErr),
			CreatedAt: r.now(),
		})
	})
	if err != nil {
		return fmt.Errorf("record mail failure for order %d: %w", orderID, err)
	}
	return nil
}

func orderIDFromKey(key string) *int64 {
	var id int64
	if _, err := fmt.Sscan(key, &id); err != nil || id <= 0 {
		return nil
	}
	return &id
}

// 定期実行。戻り値のSchedulerはShutdownで止める
func (r *OutboxRelay) Schedule(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("outbox interval must be positive")
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			res, err := r.RunOnce(ctx)
			if err != nil {
				log.Error().Err(err).Str("component", "OutboxRelay").Msg("relay batch failed")
				return
			}
			if res.Sent+res.Retried+res.Failed > 0 {
				log.Info().Str("component", "OutboxRelay").
					Int("sent", res.Sent).Int("retried", res.Retried).Int("failed", res.Failed).
					Msg("relay batch done")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
