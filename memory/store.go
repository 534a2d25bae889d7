// Package memory is an in-process store for the allocation engine. Capacity records
// live in an arena keyed by pool owner id, each guarded by its own mutex.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type pool struct {
	mu     sync.Mutex
	record entities.CapacityRecord
}

type codeKey struct {
	ownerID uuid.UUID
	code    string
}

// Store locks a pool before the data mutex, never the other way around.
type Store struct {
	mu sync.RWMutex

	nodes          map[uuid.UUID]entities.EventNode
	pools          map[uuid.UUID]*pool
	orders         map[uuid.UUID]entities.Order
	tickets        map[uuid.UUID]entities.Ticket
	ticketsByOrder map[uuid.UUID][]uuid.UUID
	activeCodes    map[codeKey]uuid.UUID
	ticketsByCode  map[codeKey][]uuid.UUID

	publisher EventPublisher
	now       func() time.Time
}

var _ allocation.Store = (*Store)(nil)

type Option func(*Store)

// WithPublisher makes the store publish domain events after each committed change.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Store) {
		s.publisher = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:          make(map[uuid.UUID]entities.EventNode),
		pools:          make(map[uuid.UUID]*pool),
		orders:         make(map[uuid.UUID]entities.Order),
		tickets:        make(map[uuid.UUID]entities.Ticket),
		ticketsByOrder: make(map[uuid.UUID][]uuid.UUID),
		activeCodes:    make(map[codeKey]uuid.UUID),
		ticketsByCode:  make(map[codeKey][]uuid.UUID),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.FromContext(ctx).WithError(err).Errorf("Could not publish %T", event)
	}
}

func (s *Store) CreateNode(ctx context.Context, node entities.EventNode, capacity *entities.CapacityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.ID]; ok {
		return fmt.Errorf("event %s already exists", node.ID)
	}

	switch node.Kind {
	case entities.NodeOwner:
		if capacity == nil || !capacity.Valid() {
			return entities.InvalidNodeError{NodeID: node.ID, Reason: "main event needs a valid capacity record"}
		}
		record := *capacity
		record.EventID = node.ID
		s.pools[node.ID] = &pool{record: record}
	case entities.NodeDependent:
		if capacity != nil {
			return entities.InvalidNodeError{NodeID: node.ID, Reason: "sub-events do not own capacity"}
		}
		parent, ok := s.nodes[node.ParentID]
		if !ok {
			return entities.NodeNotFoundError{NodeID: node.ParentID}
		}
		if parent.Kind != entities.NodeOwner {
			return entities.InvalidNodeError{NodeID: node.ID, Reason: "sub-events cannot be nested"}
		}
	default:
		return entities.InvalidNodeError{NodeID: node.ID, Reason: fmt.Sprintf("unknown kind %q", node.Kind)}
	}

	s.nodes[node.ID] = node

	return nil
}

func (s *Store) NodeByID(ctx context.Context, nodeID uuid.UUID) (entities.EventNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return entities.EventNode{}, entities.NodeNotFoundError{NodeID: nodeID}
	}

	return node, nil
}

func (s *Store) pool(ownerID uuid.UUID) (*pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[ownerID]
	if !ok {
		return nil, entities.NodeNotFoundError{NodeID: ownerID}
	}

	return p, nil
}

func (s *Store) CapacityRecord(ctx context.Context, ownerID uuid.UUID) (entities.CapacityRecord, error) {
	p, err := s.pool(ownerID)
	if err != nil {
		return entities.CapacityRecord{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.record, nil
}

func (s *Store) Reserve(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error) {
	if quantity < 1 {
		return entities.CapacityRecord{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	p, err := s.pool(ownerID)
	if err != nil {
		return entities.CapacityRecord{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.record.Decrement(quantity)
	if err != nil {
		return record, err
	}
	p.record = record

	return record, nil
}

func (s *Store) Release(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error) {
	if quantity < 1 {
		return entities.CapacityRecord{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	p, err := s.pool(ownerID)
	if err != nil {
		return entities.CapacityRecord{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.record = p.record.Increment(quantity)

	return p.record, nil
}

func (s *Store) CreateOrder(ctx context.Context, order entities.Order) error {
	s.mu.Lock()
	if _, ok := s.orders[order.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("order %s already exists", order.ID)
	}
	s.orders[order.ID] = order
	s.mu.Unlock()

	s.publish(ctx, entities.NewOrderPlaced(order))

	return nil
}

func (s *Store) OrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return entities.Order{}, fmt.Errorf("%w: %s", entities.ErrOrderNotFound, orderID)
	}

	return order, nil
}

func (s *Store) MarkPaid(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return entities.Order{}, fmt.Errorf("%w: %s", entities.ErrOrderNotFound, orderID)
	}
	if order.PaymentState != entities.PaymentPending {
		s.mu.Unlock()
		return entities.Order{}, fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, orderID, order.PaymentState)
	}

	order.PaymentState = entities.PaymentPaid
	order.UpdatedAt = s.now().UTC()
	s.orders[orderID] = order
	s.mu.Unlock()

	s.publish(ctx, entities.NewOrderPaid(order))

	return order, nil
}

func (s *Store) CancelOrder(ctx context.Context, orderID uuid.UUID, from ...entities.PaymentState) (entities.CancelledOrder, error) {
	s.mu.RLock()
	order, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return entities.CancelledOrder{}, fmt.Errorf("%w: %s", entities.ErrOrderNotFound, orderID)
	}

	p, err := s.pool(order.PoolOwnerID)
	if err != nil {
		return entities.CancelledOrder{}, err
	}

	p.mu.Lock()
	s.mu.Lock()

	cancelled, err := s.cancelLocked(p, orderID, from)

	s.mu.Unlock()
	p.mu.Unlock()

	if err != nil {
		return entities.CancelledOrder{}, err
	}

	s.publish(ctx, entities.NewOrderCancelled(cancelled))

	return cancelled, nil
}

func (s *Store) cancelLocked(p *pool, orderID uuid.UUID, from []entities.PaymentState) (entities.CancelledOrder, error) {
	order := s.orders[orderID]
	if order.Cancelled() {
		return entities.CancelledOrder{}, entities.OrderAlreadyCancelledError{OrderID: orderID}
	}
	if !slices.Contains(from, order.PaymentState) {
		return entities.CancelledOrder{}, fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, orderID, order.PaymentState)
	}

	previous := order.PaymentState
	order.PaymentState = entities.PaymentCancelled
	order.UpdatedAt = s.now().UTC()
	s.orders[orderID] = order

	p.record = p.record.Increment(order.TicketCount)

	cancelledTickets := 0
	for _, ticketID := range s.ticketsByOrder[orderID] {
		ticket := s.tickets[ticketID]
		if ticket.Status != entities.TicketActive {
			continue
		}
		ticket.Status = entities.TicketCancelled
		s.tickets[ticketID] = ticket
		delete(s.activeCodes, codeKey{ticket.PoolOwnerID, ticket.EntryCode})
		cancelledTickets++
	}

	return entities.CancelledOrder{
		Order:            order,
		PreviousState:    previous,
		Capacity:         p.record,
		TicketsCancelled: cancelledTickets,
	}, nil
}

func (s *Store) PendingOrdersCreatedBefore(ctx context.Context, before time.Time) ([]entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []entities.Order
	for _, order := range s.orders {
		if order.PaymentState == entities.PaymentPending && order.CreatedAt.Before(before) {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *Store) AddTickets(ctx context.Context, order entities.Order, tickets []entities.Ticket) error {
	s.mu.Lock()

	stored, ok := s.orders[order.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", entities.ErrOrderNotFound, order.ID)
	}
	if len(s.ticketsByOrder[order.ID]) > 0 {
		s.mu.Unlock()
		return entities.ErrTicketsAlreadyIssued
	}
	if !stored.TicketsIssuable() {
		s.mu.Unlock()
		return fmt.Errorf("%w: order %s is %s", entities.ErrStateConflict, order.ID, stored.PaymentState)
	}
	for _, ticket := range tickets {
		if _, taken := s.activeCodes[codeKey{ticket.PoolOwnerID, ticket.EntryCode}]; taken {
			s.mu.Unlock()
			return entities.TicketCodeCollisionError{PoolOwnerID: ticket.PoolOwnerID, EntryCode: ticket.EntryCode}
		}
	}

	ids := make([]uuid.UUID, 0, len(tickets))
	for _, ticket := range tickets {
		key := codeKey{ticket.PoolOwnerID, ticket.EntryCode}
		s.tickets[ticket.ID] = ticket
		s.activeCodes[key] = ticket.ID
		s.ticketsByCode[key] = append(s.ticketsByCode[key], ticket.ID)
		ids = append(ids, ticket.ID)
	}
	s.ticketsByOrder[order.ID] = ids
	s.mu.Unlock()

	s.publish(ctx, entities.NewTicketsIssued(stored, tickets))

	return nil
}

func (s *Store) TicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.ticketsByOrder[orderID]
	tickets := make([]entities.Ticket, 0, len(ids))
	for _, id := range ids {
		tickets = append(tickets, s.tickets[id])
	}

	return tickets, nil
}

// TicketByEntryCode prefers the active ticket holding the code, then the latest one that held it.
func (s *Store) TicketByEntryCode(ctx context.Context, poolOwnerID uuid.UUID, entryCode string) (entities.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := codeKey{poolOwnerID, entryCode}
	if id, ok := s.activeCodes[key]; ok {
		return s.tickets[id], nil
	}

	ids := s.ticketsByCode[key]
	if len(ids) == 0 {
		return entities.Ticket{}, entities.ErrTicketNotFound
	}

	return s.tickets[ids[len(ids)-1]], nil
}

func (s *Store) UpdateTicketStatus(
	ctx context.Context,
	ticketID uuid.UUID,
	from, to entities.TicketStatus,
	at time.Time,
) (entities.Ticket, error) {
	s.mu.Lock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		s.mu.Unlock()
		return entities.Ticket{}, entities.ErrTicketNotFound
	}
	if ticket.Status != from {
		s.mu.Unlock()
		return entities.Ticket{}, fmt.Errorf("%w: ticket %s is %s", entities.ErrStateConflict, ticketID, ticket.Status)
	}

	ticket.Status = to
	if to == entities.TicketUsed {
		usedAt := at.UTC()
		ticket.UsedAt = &usedAt
	}
	if to != entities.TicketActive {
		delete(s.activeCodes, codeKey{ticket.PoolOwnerID, ticket.EntryCode})
	}
	s.tickets[ticketID] = ticket
	s.mu.Unlock()

	if to == entities.TicketUsed {
		s.publish(ctx, entities.NewTicketUsed(ticket))
	}

	return ticket, nil
}
