package mail

import (
	"context"
	"testing"

	"campusmart/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderMailer_RequiresHostAndFrom(t *testing.T) {
	_, err := NewOrderMailer(SMTPConfig{From: "no-reply@campusmart.local"})
	assert.Error(t, err)
	_, err = NewOrderMailer(SMTPConfig{Host: "smtp.local", Port: 587})
	assert.Error(t, err)

	m, err := NewOrderMailer(SMTPConfig{Host: "smtp.local", Port: 587, From: "no-reply@campusmart.local"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSendOrderConfirmation_SkipsWithoutEmail(t *testing.T) {
	// 宛先が無ければSMTPに接続しない
	m, err := NewOrderMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "no-reply@campusmart.local"})
	require.NoError(t, err)
	assert.NoError(t, m.SendOrderConfirmation(context.Background(), usecase.OrderEvent{OrderID: 1}))
}

func TestConfirmationBody(t *testing.T) {
	body := confirmationBody(usecase.OrderEvent{
		OrderNumber: "ORD-20260131-000042",
		BuyerName:   "Hanako",
		TotalAmount: 3000,
		Items: []usecase.OrderEventItem{
			{Name: "Desk Lamp", Price: 1200, Quantity: 2},
			{Name: "Notes", Price: 600, Quantity: 1},
		},
	})

	assert.Contains(t, body, "Hi Hanako,")
	assert.Contains(t, body, "ORD-20260131-000042")
	assert.Contains(t, body, "- Desk Lamp x2  2400")
	assert.Contains(t, body, "- Notes x1  600")
	assert.Contains(t, body, "Total: 3000")

	assert.Contains(t, confirmationBody(usecase.OrderEvent{}), "Hi customer,")
}
