package entities

import (
	"time"

	"github.com/google/uuid"
)

type RefundOrderPayment struct {
	Header EventHeader `json:"header"`

	OrderID uuid.UUID `json:"order_id"`
	Amount  Money     `json:"amount"`
	Reason  string    `json:"reason"`
}

// NewRefundOrderPayment keys the refund by order, an order is refunded at most once
// no matter how many paths ask for it.
func NewRefundOrderPayment(order Order, reason string) RefundOrderPayment {
	return RefundOrderPayment{
		Header:  NewEventHeaderWithIdempotencyKey(order.ID.String() + "-refund"),
		OrderID: order.ID,
		Amount:  order.Amount,
		Reason:  reason,
	}
}

type PaymentSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type IssueReceiptRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	OrderID        string `json:"order_id"`
	Price          Money  `json:"price"`
}

type IssueReceiptResponse struct {
	ReceiptNumber string    `json:"number"`
	IssuedAt      time.Time `json:"issued_at"`
}

type PaymentRefund struct {
	PaymentReference string `json:"payment_reference"`
	Reason           string `json:"reason"`
	IdempotencyKey   string `json:"idempotency_key"`
}

type VoidReceipt struct {
	OrderID        string `json:"order_id"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}
