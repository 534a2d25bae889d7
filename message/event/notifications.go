package event

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

const (
	sheetTicketsToPrint  = "tickets-to-print"
	sheetTicketsToRefund = "tickets-to-refund"
)

// Notifications must never block the order flow, failures are only logged.

func (h Handler) SendOrderConfirmation(ctx context.Context, event *entities.TicketsIssued_v1) error {
	if err := h.notifier.SendOrderConfirmation(ctx, event.Order, event.Tickets); err != nil {
		log.FromContext(ctx).WithError(err).WithField("order_id", event.Order.ID).Warn("Could not send order confirmation")
	}
	return nil
}

func (h Handler) SendCancellationNotice(ctx context.Context, event *entities.OrderCancelled_v1) error {
	if err := h.notifier.SendCancellationNotice(ctx, event.Order); err != nil {
		log.FromContext(ctx).WithError(err).WithField("order_id", event.Order.ID).Warn("Could not send cancellation notice")
	}
	return nil
}

func (h Handler) AppendToTracker(ctx context.Context, event *entities.TicketsIssued_v1) error {
	log.FromContext(ctx).Info("Appending tickets to tracker")

	for _, ticket := range event.Tickets {
		err := h.spreadsheetsService.AppendRow(ctx, sheetTicketsToPrint, []string{
			ticket.ID.String(),
			ticket.OrderID.String(),
			ticket.EventNodeID.String(),
			ticket.EntryCode,
			ticket.UserID.String(),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (h Handler) AppendToRefundTracker(ctx context.Context, event *entities.OrderCancelled_v1) error {
	log.FromContext(ctx).Info("Appending cancelled order to tracker")

	return h.spreadsheetsService.AppendRow(ctx, sheetTicketsToRefund, []string{
		event.Order.ID.String(),
		event.Order.PoolOwnerID.String(),
		strconv.Itoa(event.Order.TicketCount),
		string(event.PreviousState),
		event.Order.Amount.Amount.String(),
		event.Order.Amount.Currency,
	})
}
