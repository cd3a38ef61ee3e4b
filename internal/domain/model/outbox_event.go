package model

import "time"

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status_changed"
)

// 注文と同じTxで書き、リレーが後で配信する
type OutboxEvent struct {
	ID          string       `gorm:"type:char(26);primaryKey" json:"id"`
	Topic       string       `gorm:"type:varchar(100);not null" json:"topic"`
	Key         string       `gorm:"type:varchar(100);not null" json:"key"`
	Payload     string       `gorm:"type:text;not null" json:"payload"`
	Status      OutboxStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts    int          `gorm:"not null;default:0" json:"attempts"`
	LastError   string       `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time    `gorm:"not null;autoCreateTime;index" json:"created_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	// リレーが配信中の間だけ入る。過ぎたら別のリレーが取り直せる
	ClaimedUntil *time.Time `gorm:"index" json:"-"`
}
