package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusmart/internal/usecase"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// 注文確認メール
type OrderMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewOrderMailer(cfg SMTPConfig) (*OrderMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from is empty")
	}
	return &OrderMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (m *OrderMailer) SendOrderConfirmation(ctx context.Context, ev usecase.OrderEvent) error {
	if ev.BuyerEmail == "" {
		log.Ctx(ctx).Warn().Int64("order_id", ev.OrderID).Msg("buyer email is empty, skip confirmation")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", ev.BuyerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Order %s confirmed", ev.OrderNumber))
	msg.SetBody("text/plain", confirmationBody(ev))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send confirmation for order %d: %w", ev.OrderID, err)
	}
	return nil
}

func confirmationBody(ev usecase.OrderEvent) string {
	var b strings.Builder
	name := ev.BuyerName
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", ev.OrderNumber)
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "- %s x%d  %d\n", it.Name, it.Quantity, it.Price*it.Quantity)
	}
	fmt.Fprintf(&b, "\nTotal: %d\n", ev.TotalAmount)
	return b.String()
}
