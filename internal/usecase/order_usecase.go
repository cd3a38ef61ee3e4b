package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("campusmart/usecase")

// 同じ冪等キーで同時に作られた（Txはロールバック済み）
var errIdempotentRace = errors.New("idempotency key raced")

type OrderUsecase struct {
	tx       repo.TransactionManager
	numbers  repo.OrderNumberGenerator
	observer OrderObserver
	now      func() time.Time
}

func NewOrderUsecase(tx repo.TransactionManager, numbers repo.OrderNumberGenerator, observer OrderObserver) *OrderUsecase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &OrderUsecase{tx: tx, numbers: numbers, observer: observer, now: time.Now}
}

type PlaceOrderInput struct {
	Shipping      ShippingInput
	PaymentMethod string
	// 空ならカートの中身で注文する
	Items []LineItemInput
	// 表示用の参考値。計算には使わない
	ClientTotal    *int64
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          int64                 `json:"user_id"`
	UserName        string                `json:"user_name,omitempty"`
	SellerID        int64                 `json:"seller_id"`
	SellerName      string                `json:"seller_name,omitempty"`
	Status          string                `json:"status"`
	TotalAmount     int64                 `json:"total_amount"`
	PaymentMethod   string                `json:"payment_method"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Items           []OrderItemOutput     `json:"items"`

	// 出品者向け一覧だけ
	SellerTotal *int64 `json:"seller_total,omitempty"`
	ItemCount   *int   `json:"item_count,omitempty"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文確定。検証→在庫の条件付き減算→注文作成→カートクリア→カウンタ更新を1Txで行う
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	ctx, span := tracer.Start(ctx, "OrderUsecase.PlaceOrder")
	defer span.End()

	out, err := u.placeOrder(ctx, userID, in)
	if err != nil {
		u.observer.OrderRejected(KindOf(err))
		return OrderOutput{}, err
	}
	span.SetAttributes(attribute.String("order.number", out.OrderNumber), attribute.Int64("order.total", out.TotalAmount))
	return out, nil
}

func (u *OrderUsecase) placeOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}

	shipping, err := NormalizeShipping(in.Shipping)
	if err != nil {
		return OrderOutput{}, err
	}
	payment, err := NormalizePaymentMethod(in.PaymentMethod)
	if err != nil {
		return OrderOutput{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, NewError(KindValidation, "invalid idempotency key")
	}
	lines, err := mergeLineItems(in.Items)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	replayed := false

	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return dbError(ctx, "order.find_idempotency", err)
			}
			if found {
				replayed = true
				return u.loadOutput(ctx, r, existing, &out)
			}
		}

		//カートをロック（同じユーザーのカート操作と直列にする）
		cart, err := r.Carts().LockByUserID(ctx, userID)
		if err != nil {
			return dbError(ctx, "cart.lock", err)
		}

		if len(lines) == 0 {
			cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
			if err != nil {
				return dbError(ctx, "cart.items", err)
			}
			fromCart := make([]LineItemInput, 0, len(cartItems))
			for _, ci := range cartItems {
				fromCart = append(fromCart, LineItemInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
			}
			//カート経由でも同じ上限をかける
			if lines, err = mergeLineItems(fromCart); err != nil {
				return err
			}
		}
		if len(lines) == 0 {
			return NewError(KindValidation, "no items to order")
		}

		//商品を解決して、在庫を条件付きで減らす。価格は現在のサーバー価格
		orderItems := make([]model.OrderItem, 0, len(lines))
		var total int64
		var sellerName string
		for _, li := range lines {
			p, err := r.Products().FindByID(ctx, li.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindProductUnavailable, fmt.Sprintf("product %d is no longer available", li.ProductID))
			}
			if err != nil {
				return dbError(ctx, "product.find", err)
			}
			if !p.IsActive {
				return NewError(KindProductUnavailable, fmt.Sprintf("product %q is no longer available", p.Name))
			}

			next, ok := addLineAmount(total, p.Price, li.Quantity)
			if !ok {
				return NewError(KindValidation, "order total is too large")
			}

			if err := r.Inventory().AdjustStock(ctx, p.ID, -li.Quantity); err != nil {
				switch {
				case errors.Is(err, repo.ErrInsufficientStock):
					return insufficientStock(ctx, r, p, li.Quantity)
				case errors.Is(err, repo.ErrNotFound):
					return NewError(KindProductUnavailable, fmt.Sprintf("product %q is no longer available", p.Name))
				default:
					return dbError(ctx, "inventory.adjust", err)
				}
			}

			if len(orderItems) == 0 {
				sellerName = p.SellerName
			}
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           p.ID,
				SellerID:            p.SellerID,
				ProductNameSnapshot: p.Name,
				ImageSnapshot:       p.Image,
				UnitPriceSnapshot:   p.Price,
				Quantity:            li.Quantity,
			})
			total = next
		}

		//代表の出品者は明細順で最初の出品者。解決できなければ購入者
		sellerID := resolveSeller(orderItems, userID)
		if sellerID == userID {
			sellerName = ""
		}

		number, err := u.numbers.Next(ctx)
		if err != nil {
			return dbError(ctx, "order.number", err)
		}

		now := u.now()
		order := model.Order{
			OrderNumber:     number,
			UserID:          userID,
			SellerID:        sellerID,
			Status:          model.OrderStatusPending,
			TotalAmount:     total,
			ShippingAddress: shipping,
			PaymentMethod:   payment,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		// 注文作成
		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicate) && key != "" {
			return errIdempotentRace
		}
		if err != nil {
			return dbError(ctx, "order.create", err)
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return dbError(ctx, "order_items.create", err)
		}

		//在庫履歴
		for _, it := range orderItems {
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   it.ProductID,
				ActorUserID: userID,
				Delta:       -it.Quantity,
				Reason:      "order:" + number,
				CreatedAt:   now,
			}); err != nil {
				return dbError(ctx, "inventory.adjustment", err)
			}
		}

		//カートを空にする
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbError(ctx, "cart.clear", err)
		}

		//注文数カウンタ
		if err := r.Users().AdjustCounter(ctx, userID, model.CounterTotalOrders, 1); err != nil {
			return dbError(ctx, "user.counter", err)
		}

		buyer, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return dbError(ctx, "user.find", err)
		}

		ev := newOrderEvent(model.TopicOrderCreated, order, orderItems, userID, now)
		ev.BuyerName = buyer.Name
		ev.BuyerEmail = buyer.Email
		if err := enqueueOrderEvent(ctx, r, ev); err != nil {
			return dbError(ctx, "outbox.create", err)
		}

		out = toOrderOutput(order, orderItems)
		out.UserName = buyer.Name
		out.SellerName = sellerName
		return nil
	})

	if errors.Is(err, errIdempotentRace) {
		//先に確定した方の結果を返す
		return u.findByIdempotencyKey(ctx, userID, key)
	}
	if err != nil {
		return OrderOutput{}, err
	}

	if replayed {
		log.Ctx(ctx).Info().Str("order_number", out.OrderNumber).Msg("idempotent order replayed")
		return out, nil
	}

	if in.ClientTotal != nil && *in.ClientTotal != out.TotalAmount {
		log.Ctx(ctx).Warn().
			Int64("client_total", *in.ClientTotal).
			Int64("server_total", out.TotalAmount).
			Str("order_number", out.OrderNumber).
			Msg("client total differs from server total")
	}

	u.observer.OrderPlaced(out.TotalAmount)
	log.Ctx(ctx).Info().
		Int64("order_id", out.ID).
		Str("order_number", out.OrderNumber).
		Int64("user_id", userID).
		Int64("total", out.TotalAmount).
		Msg("order placed")
	return out, nil
}

func (u *OrderUsecase) findByIdempotencyKey(ctx context.Context, userID int64, key string) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		o, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return dbError(ctx, "order.find_idempotency", err)
		}
		if !found {
			return NewError(KindConflict, "idempotency conflict")
		}
		return u.loadOutput(ctx, r, o, &out)
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 在庫不足。最新の在庫数をメッセージに入れる
func insufficientStock(ctx context.Context, r repo.TxRepos, p model.Product, requested int64) error {
	available := p.Stock
	if latest, err := r.Products().FindByID(ctx, p.ID); err == nil {
		available = latest.Stock
	}
	return NewError(KindInsufficientStock,
		fmt.Sprintf("insufficient stock for %q: requested %d, available %d", p.Name, requested, available))
}

// 明細順で最初に見つかった出品者。いなければ購入者
func resolveSeller(items []model.OrderItem, buyerID int64) int64 {
	for _, it := range items {
		if it.SellerID > 0 {
			return it.SellerID
		}
	}
	return buyerID
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return dbError(ctx, "order.list_user", err)
		}
		items, err := u.buildOutputs(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// 出品者の商品を含む注文。明細は自分の商品だけに絞り、小計を付ける
func (u *OrderUsecase) ListSellerOrders(ctx context.Context, actor Actor, page int, limit int) (OrderListOutput, error) {
	if !actor.valid() {
		return OrderListOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if !actor.IsSeller() {
		return OrderListOutput{}, NewError(KindForbidden, "seller only")
	}
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		orders, total, err := r.Orders().ListBySellerID(ctx, actor.UserID, page, limit)
		if err != nil {
			return dbError(ctx, "order.list_seller", err)
		}
		outs, err := u.buildOutputs(ctx, r, orders)
		if err != nil {
			return err
		}
		for i := range outs {
			outs[i] = filterForSeller(outs[i], actor.UserID)
		}
		out = OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func filterForSeller(o OrderOutput, sellerID int64) OrderOutput {
	mine := make([]OrderItemOutput, 0, len(o.Items))
	var sellerTotal int64
	for _, it := range o.Items {
		if it.SellerID != sellerID {
			continue
		}
		mine = append(mine, it)
		sellerTotal += it.Subtotal
	}
	count := len(mine)
	o.Items = mine
	o.SellerTotal = &sellerTotal
	o.ItemCount = &count
	return o
}

// 注文詳細。購入者・担当出品者・管理者だけ
func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if !actor.valid() {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if o.UserID != actor.UserID && o.SellerID != actor.UserID && !actor.IsAdmin() {
			return NewError(KindForbidden, "not authorized to view this order")
		}
		return u.loadOutput(ctx, r, o, &out)
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// pendingの注文だけ、本人か管理者がキャンセルできる。在庫は戻す
func (u *OrderUsecase) CancelOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if !actor.valid() {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if o.UserID != actor.UserID && !actor.IsAdmin() {
			return NewError(KindForbidden, "not authorized to cancel this order")
		}
		if o.Status != model.OrderStatusPending {
			return NewError(KindInvalidStateTransition, fmt.Sprintf("cannot cancel order in status %s", o.Status))
		}

		// pendingのときだけ更新（同時キャンセルで在庫を二重に戻さない）
		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusCancelled); err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				return NewError(KindInvalidStateTransition, "order status changed concurrently")
			}
			return dbError(ctx, "order.update_status", err)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(ctx, "order_items.list", err)
		}

		now := u.now()
		for _, it := range items {
			err := r.Inventory().AdjustStock(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, repo.ErrNotFound) {
				//商品が削除済み。キャンセルは通して、戻せなかった分を記録する
				orderID, productID := o.ID, it.ProductID
				log.Ctx(ctx).Error().
					Int64("order_id", o.ID).
					Int64("product_id", it.ProductID).
					Int64("quantity", it.Quantity).
					Msg("cannot restock deleted product, flagged for reconciliation")
				if err := r.Reconciliation().Create(ctx, model.ReconciliationEntry{
					Kind:      model.ReconcileRestockMissingProduct,
					OrderID:   &orderID,
					ProductID: &productID,
					Quantity:  it.Quantity,
					Detail:    fmt.Sprintf("order %s cancelled but product %d no longer exists", o.OrderNumber, it.ProductID),
					CreatedAt: now,
				}); err != nil {
					return dbError(ctx, "reconciliation.create", err)
				}
				continue
			}
			if err != nil {
				return dbError(ctx, "inventory.adjust", err)
			}
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   it.ProductID,
				ActorUserID: actor.UserID,
				Delta:       it.Quantity,
				Reason:      "cancel:" + o.OrderNumber,
				CreatedAt:   now,
			}); err != nil {
				return dbError(ctx, "inventory.adjustment", err)
			}
		}

		if err := r.Users().AdjustCounter(ctx, o.UserID, model.CounterTotalOrders, -1); err != nil {
			return dbError(ctx, "user.counter", err)
		}

		before := o.Status
		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = now

		if err := writeOrderAudit(ctx, r, actor, model.AuditActionCancelOrder, o.ID, before, o.Status, now); err != nil {
			return err
		}

		ev := newOrderEvent(model.TopicOrderCancelled, o, items, actor.UserID, now)
		ev.PreviousStatus = string(before)
		if err := enqueueOrderEvent(ctx, r, ev); err != nil {
			return dbError(ctx, "outbox.create", err)
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.observer.OrderCancelled()
	log.Ctx(ctx).Info().Int64("order_id", out.ID).Int64("actor_id", actor.UserID).Msg("order cancelled")
	return out, nil
}

// ステータス変更。管理者か担当出品者だけが前に進められる
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID int64, status string) (OrderOutput, error) {
	if !actor.valid() {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}
	next := model.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return OrderOutput{}, NewError(KindValidation, "invalid status")
	}

	//キャンセルはキャンセルのルールで
	if next == model.OrderStatusCancelled {
		return u.CancelOrder(ctx, actor, orderID)
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && o.SellerID != actor.UserID {
			return NewError(KindForbidden, "only the seller or an admin can update order status")
		}
		if !o.Status.CanTransitionTo(next) {
			return NewError(KindInvalidStateTransition, fmt.Sprintf("cannot change status from %s to %s", o.Status, next))
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, o.Status, next); err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				return NewError(KindInvalidStateTransition, "order status changed concurrently")
			}
			return dbError(ctx, "order.update_status", err)
		}

		//配達完了で出品者の販売数を+1
		if next == model.OrderStatusDelivered {
			if err := r.Users().AdjustCounter(ctx, o.SellerID, model.CounterTotalSales, 1); err != nil {
				return dbError(ctx, "user.counter", err)
			}
		}

		now := u.now()
		before := o.Status
		o.Status = next
		o.UpdatedAt = now

		if err := writeOrderAudit(ctx, r, actor, model.AuditActionUpdateOrderStatus, o.ID, before, next, now); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(ctx, "order_items.list", err)
		}

		ev := newOrderEvent(model.TopicOrderStatusChanged, o, nil, actor.UserID, now)
		ev.PreviousStatus = string(before)
		if err := enqueueOrderEvent(ctx, r, ev); err != nil {
			return dbError(ctx, "outbox.create", err)
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.observer.OrderStatusChanged(next)
	return out, nil
}

func findOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewError(KindNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, dbError(ctx, "order.find", err)
	}
	return o, nil
}

func writeOrderAudit(ctx context.Context, r repo.TxRepos, actor Actor, action model.AuditAction, orderID int64, before, after model.OrderStatus, now time.Time) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   `{"status":"` + string(before) + `"}`,
		AfterJSON:    `{"status":"` + string(after) + `"}`,
		CreatedAt:    now,
	}); err != nil {
		return dbError(ctx, "audit.create", err)
	}
	return nil
}

// 1件分の明細と名前を読み込む
func (u *OrderUsecase) loadOutput(ctx context.Context, r repo.TxRepos, o model.Order, out *OrderOutput) error {
	outs, err := u.buildOutputs(ctx, r, []model.Order{o})
	if err != nil {
		return err
	}
	*out = outs[0]
	return nil
}

// 明細はまとめて取得し、購入者・出品者名を解決する
func (u *OrderUsecase) buildOutputs(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	if len(orders) == 0 {
		return outs, nil
	}

	ids := make([]int64, 0, len(orders))
	userIDs := make([]int64, 0, len(orders)*2)
	for _, o := range orders {
		ids = append(ids, o.ID)
		userIDs = append(userIDs, o.UserID, o.SellerID)
	}

	items, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, dbError(ctx, "order_items.list", err)
	}
	byOrder := make(map[int64][]model.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	users, err := r.Users().FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, dbError(ctx, "user.find_many", err)
	}
	names := make(map[int64]string, len(users))
	for _, usr := range users {
		names[usr.ID] = usr.Name
	}

	for _, o := range orders {
		out := toOrderOutput(o, byOrder[o.ID])
		out.UserName = names[o.UserID]
		out.SellerName = names[o.SellerID]
		outs = append(outs, out)
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.ProductNameSnapshot,
			Image:     it.ImageSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		SellerID:        o.SellerID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   string(o.PaymentMethod),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           outItems,
	}
}

// page/limitの最低限チェック（0は既定値）
func normalizePage(page int, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, NewError(KindValidation, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, NewError(KindValidation, "invalid limit")
	}
	return page, limit, nil
}
