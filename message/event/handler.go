package event

import (
	"context"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type PaymentLedger interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (allocation.OrderResult, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) error
}

type SpreadsheetsAPI interface {
	AppendRow(ctx context.Context, sheetName string, row []string) error
}

type ReceiptsService interface {
	IssueReceipt(ctx context.Context, request entities.IssueReceiptRequest) (entities.IssueReceiptResponse, error)
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order entities.Order, tickets []entities.Ticket) error
	SendCancellationNotice(ctx context.Context, order entities.Order) error
}

type CommandSender interface {
	Send(ctx context.Context, cmd any) error
}

type Handler struct {
	ledger              PaymentLedger
	spreadsheetsService SpreadsheetsAPI
	receiptsService     ReceiptsService
	notifier            Notifier
	commandBus          CommandSender
}

func NewHandler(
	ledger PaymentLedger,
	spreadsheetsService SpreadsheetsAPI,
	receiptsService ReceiptsService,
	notifier Notifier,
	commandBus CommandSender,
) Handler {
	if ledger == nil {
		panic("missing ledger")
	}
	if spreadsheetsService == nil {
		panic("missing spreadsheetsService")
	}
	if receiptsService == nil {
		panic("missing receiptsService")
	}
	if notifier == nil {
		panic("missing notifier")
	}
	if commandBus == nil {
		panic("missing commandBus")
	}

	return Handler{
		ledger:              ledger,
		spreadsheetsService: spreadsheetsService,
		receiptsService:     receiptsService,
		notifier:            notifier,
		commandBus:          commandBus,
	}
}
