package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const ticketColumns = `
	ticket_id,
	order_id,
	seq,
	event_id,
	pool_owner_id,
	user_id,
	entry_code,
	status,
	expires_at,
	created_at,
	used_at
`

func (s *Store) AddTickets(ctx context.Context, order entities.Order, tickets []entities.Ticket) error {
	return updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		// CancelOrder locks the same row, so the state can't change until commit
		stored, err := orderByID(ctx, tx, order.ID, true)
		if err != nil {
			return err
		}
		if !stored.TicketsIssuable() {
			return fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, order.ID, stored.PaymentState)
		}

		var issued int
		if err := tx.GetContext(ctx, &issued, `SELECT COUNT(*) FROM tickets WHERE order_id = $1`, order.ID); err != nil {
			return fmt.Errorf("could not count tickets: %w", err)
		}
		if issued > 0 {
			return entities.ErrTicketsAlreadyIssued
		}

		for _, ticket := range tickets {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO
					tickets (ticket_id, order_id, seq, event_id, pool_owner_id, user_id, entry_code, status, expires_at, created_at)
				VALUES
					(:ticket_id, :order_id, :seq, :event_id, :pool_owner_id, :user_id, :entry_code, :status, :expires_at, :created_at)
			`, ticket)

			switch uniqueViolationConstraint(err) {
			case "":
			case ticketsActiveEntryCodeConstraint:
				return entities.TicketCodeCollisionError{PoolOwnerID: ticket.PoolOwnerID, EntryCode: ticket.EntryCode}
			case ticketsOrderSeqConstraint:
				return entities.ErrTicketsAlreadyIssued
			}
			if err != nil {
				return fmt.Errorf("could not save ticket: %w", err)
			}
		}

		return publishInTx(ctx, tx, entities.NewTicketsIssued(stored, tickets))
	})
}

func (s *Store) TicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Ticket, error) {
	var tickets []entities.Ticket
	err := s.db.Conn.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM
			tickets
		WHERE
			order_id = $1
		ORDER BY
			seq
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not get tickets of order: %w", err)
	}

	return tickets, nil
}

func (s *Store) TicketByEntryCode(ctx context.Context, poolOwnerID uuid.UUID, entryCode string) (entities.Ticket, error) {
	var ticket entities.Ticket
	err := s.db.Conn.GetContext(ctx, &ticket, `
		SELECT `+ticketColumns+`
		FROM
			tickets
		WHERE
			pool_owner_id = $1
			AND entry_code = $2
		ORDER BY
			status = 'active' DESC,
			created_at DESC
		LIMIT 1
	`, poolOwnerID, entryCode)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Ticket{}, entities.ErrTicketNotFound
	}
	if err != nil {
		return entities.Ticket{}, fmt.Errorf("could not get ticket by entry code: %w", err)
	}

	return ticket, nil
}

func (s *Store) UpdateTicketStatus(
	ctx context.Context,
	ticketID uuid.UUID,
	from, to entities.TicketStatus,
	at time.Time,
) (entities.Ticket, error) {
	var ticket entities.Ticket

	usedAt := sql.NullTime{}
	if to == entities.TicketUsed {
		usedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}

	err := updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &ticket, `
			UPDATE
				tickets
			SET
				status = $3,
				used_at = COALESCE($4::timestamptz, used_at)
			WHERE
				ticket_id = $1
				AND status = $2
			RETURNING `+ticketColumns,
			ticketID, from, to, usedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_id = $1)`, ticketID); err != nil {
				return fmt.Errorf("could not check if ticket exists: %w", err)
			}
			if !exists {
				return entities.ErrTicketNotFound
			}
			return fmt.Errorf("%w: ticket %s is not %s", entities.ErrStateConflict, ticketID, from)
		}
		if err != nil {
			return fmt.Errorf("could not update ticket status: %w", err)
		}

		if to != entities.TicketUsed {
			return nil
		}
		return publishInTx(ctx, tx, entities.NewTicketUsed(ticket))
	})
	if err != nil {
		return entities.Ticket{}, err
	}

	return ticket, nil
}
