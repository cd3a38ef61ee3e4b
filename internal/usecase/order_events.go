package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"github.com/oklog/ulid/v2"
)

type OrderEventItem struct {
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// outboxに載せる注文イベント
type OrderEvent struct {
	Type           string           `json:"type"`
	OrderID        int64            `json:"order_id"`
	OrderNumber    string           `json:"order_number"`
	UserID         int64            `json:"user_id"`
	BuyerName      string           `json:"buyer_name,omitempty"`
	BuyerEmail     string           `json:"buyer_email,omitempty"`
	SellerID       int64            `json:"seller_id"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	TotalAmount    int64            `json:"total_amount"`
	Items          []OrderEventItem `json:"items,omitempty"`
	ActorUserID    int64            `json:"actor_user_id"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

func newOrderEvent(topic string, o model.Order, items []model.OrderItem, actorID int64, now time.Time) OrderEvent {
	ev := OrderEvent{
		Type:        topic,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		SellerID:    o.SellerID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		ActorUserID: actorID,
		OccurredAt:  now,
	}
	for _, it := range items {
		ev.Items = append(ev.Items, OrderEventItem{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}
	return ev
}

// 同じTxでoutboxに書く。キーは注文IDなので同じ注文のイベントは順序が保たれる
func enqueueOrderEvent(ctx context.Context, r repo.TxRepos, ev OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.Outbox().Create(ctx, model.OutboxEvent{
		ID:        ulid.Make().String(),
		Topic:     ev.Type,
		Key:       strconv.FormatInt(ev.OrderID, 10),
		Payload:   string(payload),
		Status:    model.OutboxStatusPending,
		CreatedAt: ev.OccurredAt,
	})
}

// 注文まわりの計測（prometheus実装はinfra/metrics）
type OrderObserver interface {
	OrderPlaced(totalAmount int64)
	OrderRejected(kind ErrorKind)
	OrderCancelled()
	OrderStatusChanged(to model.OrderStatus)
}

type noopObserver struct{}

func (noopObserver) OrderPlaced(int64)                    {}
func (noopObserver) OrderRejected(ErrorKind)              {}
func (noopObserver) OrderCancelled()                      {}
func (noopObserver) OrderStatusChanged(model.OrderStatus) {}
