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
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const orderColumns = `
	order_id,
	target_node_id,
	pool_owner_id,
	buyer_id,
	ticket_count,
	amount AS "amount.amount",
	currency AS "amount.currency",
	payment_state,
	created_at,
	updated_at
`

func (s *Store) CreateOrder(ctx context.Context, order entities.Order) error {
	return updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO
				orders (order_id, target_node_id, pool_owner_id, buyer_id, ticket_count, amount, currency, payment_state, created_at, updated_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			order.ID, order.TargetNodeID, order.PoolOwnerID, order.BuyerID, order.TicketCount,
			order.Amount.Amount, order.Amount.Currency, order.PaymentState, order.CreatedAt, order.UpdatedAt,
		)
		if isErrorUniqueViolation(err) {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		if err != nil {
			return fmt.Errorf("could not save order: %w", err)
		}

		return publishInTx(ctx, tx, entities.NewOrderPlaced(order))
	})
}

func (s *Store) OrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return orderByID(ctx, s.db.Conn, orderID, false)
}

func orderByID(ctx context.Context, q sqlx.QueryerContext, orderID uuid.UUID, forUpdate bool) (entities.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var order entities.Order
	err := sqlx.GetContext(ctx, q, &order, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, fmt.Errorf("%w: %s", entities.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("could not get order: %w", err)
	}

	return order, nil
}

func (s *Store) MarkPaid(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	var order entities.Order

	err := updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &order, `
			UPDATE
				orders
			SET
				payment_state = 'paid',
				updated_at = $2
			WHERE
				order_id = $1
				AND payment_state = 'pending'
			RETURNING `+orderColumns,
			orderID, s.now().UTC(),
		)
		if errors.Is(err, sql.ErrNoRows) {
			current, err := orderByID(ctx, tx, orderID, false)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, orderID, current.PaymentState)
		}
		if err != nil {
			return fmt.Errorf("could not mark order as paid: %w", err)
		}

		return publishInTx(ctx, tx, entities.NewOrderPaid(order))
	})
	if err != nil {
		return entities.Order{}, err
	}

	return order, nil
}

// CancelOrder locks the order row first and the capacity row second, reserves only take the latter.
func (s *Store) CancelOrder(ctx context.Context, orderID uuid.UUID, from ...entities.PaymentState) (entities.CancelledOrder, error) {
	var cancelled entities.CancelledOrder

	err := updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		order, err := orderByID(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		if order.Cancelled() {
			return entities.OrderAlreadyCancelledError{OrderID: orderID}
		}
		if !lo.Contains(from, order.PaymentState) {
			return fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, orderID, order.PaymentState)
		}

		previous := order.PaymentState
		err = tx.GetContext(ctx, &order, `
			UPDATE
				orders
			SET
				payment_state = 'cancelled',
				updated_at = $2
			WHERE
				order_id = $1
			RETURNING `+orderColumns,
			orderID, s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("could not cancel order: %w", err)
		}

		capacity, err := releaseTickets(ctx, tx, order.PoolOwnerID, order.TicketCount)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE
				tickets
			SET
				status = 'cancelled'
			WHERE
				order_id = $1
				AND status = 'active'
		`, orderID)
		if err != nil {
			return fmt.Errorf("could not cancel tickets: %w", err)
		}
		ticketsCancelled, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not count cancelled tickets: %w", err)
		}

		cancelled = entities.CancelledOrder{
			Order:            order,
			PreviousState:    previous,
			Capacity:         capacity,
			TicketsCancelled: int(ticketsCancelled),
		}

		return publishInTx(ctx, tx, entities.NewOrderCancelled(cancelled))
	})
	if err != nil {
		return entities.CancelledOrder{}, err
	}

	return cancelled, nil
}

func (s *Store) PendingOrdersCreatedBefore(ctx context.Context, before time.Time) ([]entities.Order, error) {
	var orders []entities.Order
	err := s.db.Conn.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM
			orders
		WHERE
			payment_state = ANY($1)
			AND created_at < $2
		ORDER BY
			created_at
	`, pq.Array([]string{string(entities.PaymentPending)}), before)
	if err != nil {
		return nil, fmt.Errorf("could not get pending orders: %w", err)
	}

	return orders, nil
}
