package usecase

import (
	"fmt"
	"math"
	"strings"

	"campusmart/internal/domain/model"
)

// 配送先の入力。正規形とフロントのフォーム形のどちらも受ける
type ShippingInput struct {
	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string

	// フォーム形
	FirstName string
	LastName  string
	ZipCode   string
	State     string
}

// 正規化して必須チェック。足りなければValidationError（補完はしない）
func NormalizeShipping(in ShippingInput) (model.ShippingAddress, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = strings.TrimSpace(strings.TrimSpace(in.FirstName) + " " + strings.TrimSpace(in.LastName))
	}
	postal := strings.TrimSpace(in.PostalCode)
	if postal == "" {
		postal = strings.TrimSpace(in.ZipCode)
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = strings.TrimSpace(in.State)
	}

	addr := model.ShippingAddress{
		FullName:   fullName,
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		PostalCode: postal,
		Country:    country,
	}

	required := []struct {
		name  string
		value string
	}{
		{"fullName", addr.FullName},
		{"address", addr.Address},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return model.ShippingAddress{}, NewError(KindValidation, "missing shipping fields: "+strings.Join(missing, ", "))
	}
	return addr, nil
}

var paymentAliases = map[string]model.PaymentMethod{
	"":                 model.PaymentCashOnDelivery,
	"cod":              model.PaymentCashOnDelivery,
	"cash":             model.PaymentCashOnDelivery,
	"cash_on_delivery": model.PaymentCashOnDelivery,
	"cash-on-delivery": model.PaymentCashOnDelivery,
	"cash on delivery": model.PaymentCashOnDelivery,
	"card":             model.PaymentCreditCard,
	"credit_card":      model.PaymentCreditCard,
	"debit_card":       model.PaymentDebitCard,
	"paypal":           model.PaymentPaypal,
}

// 別名を正規の値にそろえる。未指定は代引き
func NormalizePaymentMethod(raw string) (model.PaymentMethod, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if pm, ok := paymentAliases[key]; ok {
		return pm, nil
	}
	return "", NewError(KindValidation, fmt.Sprintf("unsupported payment method %q", raw))
}

type LineItemInput struct {
	ProductID int64
	Quantity  int64
}

// MaxLineQuantity は1注文・1商品あたりの数量上限（合算後）
const MaxLineQuantity int64 = 1000

// 同じ商品はまとめる。順序は最初に出てきた順
func mergeLineItems(items []LineItemInput) ([]LineItemInput, error) {
	out := make([]LineItemInput, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, NewError(KindValidation, "invalid product id")
		}
		if it.Quantity < 1 {
			return nil, NewError(KindValidation, fmt.Sprintf("quantity for product %d must be at least 1", it.ProductID))
		}
		if it.Quantity > MaxLineQuantity {
			return nil, lineQuantityTooLarge(it.ProductID)
		}
		if i, ok := index[it.ProductID]; ok {
			//同じ商品の合算も上限内に収める。各行が上限以下なので加算はあふれない
			if out[i].Quantity > MaxLineQuantity-it.Quantity {
				return nil, lineQuantityTooLarge(it.ProductID)
			}
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func lineQuantityTooLarge(productID int64) error {
	return NewError(KindValidation, fmt.Sprintf("quantity for product %d must be at most %d", productID, MaxLineQuantity))
}

// addLineAmount は total に price*qty を足す。int64 に収まらなければ false
func addLineAmount(total, price, qty int64) (int64, bool) {
	if price < 0 || qty < 0 || total < 0 {
		return 0, false
	}
	if price != 0 && qty > math.MaxInt64/price {
		return 0, false
	}
	sub := price * qty
	if total > math.MaxInt64-sub {
		return 0, false
	}
	return total + sub, true
}
