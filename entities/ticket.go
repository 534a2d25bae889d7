package entities

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from the status.
func (s TicketStatus) Terminal() bool {
	return s != TicketActive
}

type Ticket struct {
	ID          uuid.UUID    `json:"ticket_id" db:"ticket_id"`
	OrderID     uuid.UUID    `json:"order_id" db:"order_id"`
	Seq         int          `json:"seq" db:"seq"`
	EventNodeID uuid.UUID    `json:"event_id" db:"event_id"`
	PoolOwnerID uuid.UUID    `json:"pool_owner_id" db:"pool_owner_id"`
	UserID      uuid.UUID    `json:"user_id" db:"user_id"`
	EntryCode   string       `json:"entry_code" db:"entry_code"`
	Status      TicketStatus `json:"status" db:"status"`
	ExpiresAt   time.Time    `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UsedAt      *time.Time   `json:"used_at,omitempty" db:"used_at"`
}

func (t Ticket) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
