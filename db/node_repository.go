package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const selectNode = `
	SELECT
		event_id,
		kind,
		parent_id,
		title,
		starts_at,
		ends_at,
		price_amount AS "price.amount",
		price_currency AS "price.currency",
		is_free,
		created_at
	FROM
		event_nodes
`

func (s *Store) CreateNode(ctx context.Context, node entities.EventNode, capacity *entities.CapacityRecord) error {
	return updateInTx(ctx, s.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		parentID := uuid.NullUUID{}

		switch node.Kind {
		case entities.NodeOwner:
			if capacity == nil || !capacity.Valid() {
				return entities.InvalidNodeError{NodeID: node.ID, Reason: "main event needs a valid capacity record"}
			}
		case entities.NodeDependent:
			if capacity != nil {
				return entities.InvalidNodeError{NodeID: node.ID, Reason: "sub-events do not own capacity"}
			}

			var parentKind entities.NodeKind
			err := tx.GetContext(ctx, &parentKind, `SELECT kind FROM event_nodes WHERE event_id = $1 FOR SHARE`, node.ParentID)
			if errors.Is(err, sql.ErrNoRows) {
				return entities.NodeNotFoundError{NodeID: node.ParentID}
			}
			if err != nil {
				return fmt.Errorf("could not get parent event: %w", err)
			}
			if parentKind != entities.NodeOwner {
				return entities.InvalidNodeError{NodeID: node.ID, Reason: "sub-events cannot be nested"}
			}
			parentID = uuid.NullUUID{UUID: node.ParentID, Valid: true}
		default:
			return entities.InvalidNodeError{NodeID: node.ID, Reason: fmt.Sprintf("unknown kind %q", node.Kind)}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO
				event_nodes (event_id, kind, parent_id, title, starts_at, ends_at, price_amount, price_currency, is_free, created_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			node.ID, node.Kind, parentID, node.Title, node.StartsAt, node.EndsAt,
			node.Price.Amount, node.Price.Currency, node.IsFree, node.CreatedAt,
		)
		if isErrorUniqueViolation(err) {
			return fmt.Errorf("event %s already exists", node.ID)
		}
		if err != nil {
			return fmt.Errorf("could not save event: %w", err)
		}

		if capacity == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO
				capacity_records (event_id, total_capacity, tickets_left, sold_out)
			VALUES
				($1, $2, $3, $4)
		`, node.ID, capacity.TotalCapacity, capacity.TicketsLeft, capacity.SoldOut)
		if err != nil {
			return fmt.Errorf("could not save capacity record: %w", err)
		}

		return nil
	})
}

func (s *Store) NodeByID(ctx context.Context, nodeID uuid.UUID) (entities.EventNode, error) {
	var node entities.EventNode
	err := s.db.Conn.GetContext(ctx, &node, selectNode+` WHERE event_id = $1`, nodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.EventNode{}, entities.NodeNotFoundError{NodeID: nodeID}
	}
	if err != nil {
		return entities.EventNode{}, fmt.Errorf("could not get event: %w", err)
	}

	return node, nil
}
