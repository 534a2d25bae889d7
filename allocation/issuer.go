package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

const (
	DefaultTicketGrace = 24 * time.Hour

	// EntryCodeAlphabet has no 0/O or 1/I/L.
	EntryCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	EntryCodeLength   = 8
	maxIssueAttempts  = 10
)

// CodeGenerator returns a new entry code candidate.
type CodeGenerator func() string

// NewEntryCode returns an uppercase code of EntryCodeLength characters from EntryCodeAlphabet.
func NewEntryCode() string {
	var code strings.Builder
	for code.Len() < EntryCodeLength {
		// uppercasing turns shortuuid's i and o into I and O, they are filtered out
		for _, r := range strings.ToUpper(shortuuid.New()) {
			if !strings.ContainsRune(EntryCodeAlphabet, r) {
				continue
			}
			code.WriteRune(r)
			if code.Len() == EntryCodeLength {
				break
			}
		}
	}

	return code.String()
}

type Issuer struct {
	tickets TicketRepository
	nodes   NodeRepository
	codes   CodeGenerator
	grace   time.Duration
	now     func() time.Time
}

func NewIssuer(tickets TicketRepository, nodes NodeRepository, codes CodeGenerator, grace time.Duration, now func() time.Time) *Issuer {
	if tickets == nil {
		panic("tickets repository is required")
	}
	if nodes == nil {
		panic("nodes repository is required")
	}
	if codes == nil {
		codes = NewEntryCode
	}
	if now == nil {
		now = time.Now
	}

	return &Issuer{
		tickets: tickets,
		nodes:   nodes,
		codes:   codes,
		grace:   grace,
		now:     now,
	}
}

type issueOptions struct {
	expiresAt time.Time
}

type IssueOption func(*issueOptions)

// WithExpiry overrides the default expiry of the event end plus the grace window.
func WithExpiry(expiresAt time.Time) IssueOption {
	return func(o *issueOptions) {
		o.expiresAt = expiresAt
	}
}

// IssueTickets creates one ticket per ordered unit. Calling it again for the same order
// returns the tickets issued the first time.
func (i *Issuer) IssueTickets(ctx context.Context, order entities.Order, opts ...IssueOption) ([]entities.Ticket, error) {
	existing, err := i.tickets.TicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get tickets of order %s: %w", order.ID, err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	options := issueOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.expiresAt.IsZero() {
		node, err := i.nodes.NodeByID(ctx, order.TargetNodeID)
		if err != nil {
			return nil, err
		}
		options.expiresAt = node.EndsAt.Add(i.grace)
	}

	now := i.now().UTC()
	tickets := make([]entities.Ticket, order.TicketCount)
	for seq := range tickets {
		tickets[seq] = entities.Ticket{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Seq:         seq + 1,
			EventNodeID: order.TargetNodeID,
			PoolOwnerID: order.PoolOwnerID,
			UserID:      order.BuyerID,
			Status:      entities.TicketActive,
			ExpiresAt:   options.expiresAt.UTC(),
			CreatedAt:   now,
		}
	}
	i.assignCodes(tickets, nil)

	for attempt := 1; ; attempt++ {
		err := i.tickets.AddTickets(ctx, order, tickets)
		if err == nil {
			return tickets, nil
		}

		if errors.Is(err, entities.ErrTicketsAlreadyIssued) {
			return i.tickets.TicketsByOrder(ctx, order.ID)
		}

		var collision entities.TicketCodeCollisionError
		if !errors.As(err, &collision) {
			return nil, fmt.Errorf("could not add tickets of order %s: %w", order.ID, err)
		}
		if attempt >= maxIssueAttempts {
			return nil, fmt.Errorf("could not find free entry codes for order %s after %d attempts: %w", order.ID, attempt, err)
		}

		log.FromContext(ctx).WithField("order_id", order.ID).Debug("Entry code collision, regenerating")
		i.assignCodes(tickets, &collision.EntryCode)
	}
}

// assignCodes sets codes unique within the batch. With only set, just the tickets
// holding that code get a new one.
func (i *Issuer) assignCodes(tickets []entities.Ticket, only *string) {
	used := make(map[string]struct{}, len(tickets))
	for _, t := range tickets {
		if only != nil && t.EntryCode != *only {
			used[t.EntryCode] = struct{}{}
		}
	}

	for idx := range tickets {
		if only != nil && tickets[idx].EntryCode != *only {
			continue
		}

		code := i.codes()
		for {
			if _, taken := used[code]; !taken {
				break
			}
			code = i.codes()
		}
		used[code] = struct{}{}
		tickets[idx].EntryCode = code
	}
}
