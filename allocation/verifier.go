package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type RejectionReason string

const (
	RejectedUsed      RejectionReason = "used"
	RejectedExpired   RejectionReason = "expired"
	RejectedCancelled RejectionReason = "cancelled"
	RejectedNotFound  RejectionReason = "not_found"
)

type Verification struct {
	Accepted bool             `json:"accepted"`
	Reason   RejectionReason  `json:"reason,omitempty"`
	Ticket   *entities.Ticket `json:"ticket,omitempty"`
}

type Verifier struct {
	tickets  TicketRepository
	observer Observer
	now      func() time.Time
}

func NewVerifier(tickets TicketRepository, observer Observer, now func() time.Time) *Verifier {
	if tickets == nil {
		panic("tickets repository is required")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if now == nil {
		now = time.Now
	}

	return &Verifier{tickets: tickets, observer: observer, now: now}
}

// Verify consumes the ticket with the entry code at the gate. Only one of concurrent
// verifications of the same ticket is accepted.
func (v *Verifier) Verify(ctx context.Context, entryCode string, poolOwnerID uuid.UUID) (Verification, error) {
	result, err := v.verify(ctx, NormalizeEntryCode(entryCode), poolOwnerID)
	if err != nil {
		return Verification{}, err
	}

	if result.Accepted {
		v.observer.EntryVerified("accepted")
	} else {
		v.observer.EntryVerified(string(result.Reason))
	}

	return result, nil
}

func (v *Verifier) verify(ctx context.Context, entryCode string, poolOwnerID uuid.UUID) (Verification, error) {
	ticket, err := v.tickets.TicketByEntryCode(ctx, poolOwnerID, entryCode)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return Verification{Reason: RejectedNotFound}, nil
	}
	if err != nil {
		return Verification{}, fmt.Errorf("could not get ticket by entry code: %w", err)
	}

	now := v.now().UTC()

	if ticket.Status == entities.TicketActive && ticket.ExpiredAt(now) {
		expired, err := v.tickets.UpdateTicketStatus(ctx, ticket.ID, entities.TicketActive, entities.TicketExpired, now)
		if err == nil {
			return rejected(expired), nil
		}
		if !errors.Is(err, entities.ErrStateConflict) {
			return Verification{}, fmt.Errorf("could not expire ticket %s: %w", ticket.ID, err)
		}
		return v.reread(ctx, poolOwnerID, entryCode)
	}

	if ticket.Status.Terminal() {
		return rejected(ticket), nil
	}

	used, err := v.tickets.UpdateTicketStatus(ctx, ticket.ID, entities.TicketActive, entities.TicketUsed, now)
	if errors.Is(err, entities.ErrStateConflict) {
		return v.reread(ctx, poolOwnerID, entryCode)
	}
	if err != nil {
		return Verification{}, fmt.Errorf("could not mark ticket %s as used: %w", ticket.ID, err)
	}

	return Verification{Accepted: true, Ticket: &used}, nil
}

// reread reports the state of a ticket changed by a concurrent transition.
func (v *Verifier) reread(ctx context.Context, poolOwnerID uuid.UUID, entryCode string) (Verification, error) {
	ticket, err := v.tickets.TicketByEntryCode(ctx, poolOwnerID, entryCode)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return Verification{Reason: RejectedNotFound}, nil
	}
	if err != nil {
		return Verification{}, fmt.Errorf("could not get ticket by entry code: %w", err)
	}
	if !ticket.Status.Terminal() {
		return Verification{}, fmt.Errorf("ticket %s is still active after a conflicting update", ticket.ID)
	}

	return rejected(ticket), nil
}

func rejected(ticket entities.Ticket) Verification {
	var reason RejectionReason
	switch ticket.Status {
	case entities.TicketUsed:
		reason = RejectedUsed
	case entities.TicketExpired:
		reason = RejectedExpired
	default:
		reason = RejectedCancelled
	}

	return Verification{Reason: reason, Ticket: &ticket}
}

func NormalizeEntryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
