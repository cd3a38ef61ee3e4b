package event

import (
	"context"

	"github.com/rs/zerolog/log"
)

// outboxのリレーが使う配信先
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload []byte
}

// ブローカー未設定のときはログに出すだけ
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	log.Ctx(ctx).Info().
		Str("event_id", msg.ID).
		Str("topic", msg.Topic).
		Str("key", msg.Key).
		RawJSON("payload", msg.Payload).
		Msg("event published (log only)")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
