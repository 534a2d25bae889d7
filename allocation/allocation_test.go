package allocation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/george-bobby/eventtts-sap-sub000/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventStart = time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type gatewayMock struct {
	mu       sync.Mutex
	err      error
	sessions []map[string]string
}

func (g *gatewayMock) CreateSession(ctx context.Context, amount entities.Money, metadata map[string]string) (entities.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return entities.PaymentSession{}, g.err
	}
	g.sessions = append(g.sessions, metadata)

	return entities.PaymentSession{
		SessionID:   uuid.NewString(),
		RedirectURL: "https://checkout.example.com/" + metadata["order_id"],
	}, nil
}

type fixture struct {
	store   *memory.Store
	gateway *gatewayMock
	clock   *clock
	svc     *allocation.Service
}

func newFixture(t *testing.T, opts ...allocation.Option) fixture {
	t.Helper()

	c := &clock{now: eventStart.Add(-48 * time.Hour)}
	store := memory.NewStore(memory.WithClock(c.Now))
	gateway := &gatewayMock{}

	opts = append([]allocation.Option{allocation.WithClock(c.Now)}, opts...)
	svc := allocation.NewService(store, gateway, allocation.DefaultConfig(), opts...)

	return fixture{store: store, gateway: gateway, clock: c, svc: svc}
}

func (f fixture) createOwner(t *testing.T, capacity int, price string) entities.EventNode {
	t.Helper()

	ev := allocation.NewEvent{
		Title:    "Tech fest",
		StartsAt: eventStart,
		EndsAt:   eventStart.Add(4 * time.Hour),
		Capacity: &capacity,
	}
	if price != "" {
		ev.Price = entities.Money{Amount: decimal.RequireFromString(price), Currency: "USD"}
	}

	node, err := f.svc.Catalog.CreateEvent(context.Background(), ev)
	require.NoError(t, err)

	return node
}

func (f fixture) createDependent(t *testing.T, parent entities.EventNode) entities.EventNode {
	t.Helper()

	node, err := f.svc.Catalog.CreateEvent(context.Background(), allocation.NewEvent{
		ParentID: parent.ID,
		Title:    "Workshop",
		StartsAt: parent.StartsAt.Add(time.Hour),
		EndsAt:   parent.StartsAt.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	return node
}

func (f fixture) ticketsLeft(t *testing.T, ownerID uuid.UUID) int {
	t.Helper()

	record, err := f.store.CapacityRecord(context.Background(), ownerID)
	require.NoError(t, err)
	require.True(t, record.Valid(), "invalid record %+v", record)

	return record.TicketsLeft
}

func TestConcurrentReservationsAreAllOrNothing(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Allocator.Reserve(ctx, owner.ID, 6)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		var insufficient entities.InsufficientCapacityError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, owner.ID, insufficient.PoolOwnerID)
		assert.Equal(t, 6, insufficient.Requested)
		assert.Equal(t, 4, insufficient.Available)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, f.ticketsLeft(t, owner.ID))
}

func TestNoOversellUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 50, "")
	sub := f.createDependent(t, owner)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			node := owner.ID
			if i%2 == 0 {
				node = sub.ID
			}
			quantity := i%3 + 1

			reservation, err := f.svc.Allocator.Reserve(ctx, node, quantity)
			if err != nil {
				assert.ErrorAs(t, err, &entities.InsufficientCapacityError{})
				return
			}

			mu.Lock()
			committed += reservation.Quantity
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	left := f.ticketsLeft(t, owner.ID)
	assert.LessOrEqual(t, committed, 50)
	assert.Equal(t, 50-committed, left)
	assert.GreaterOrEqual(t, left, 0)
}

func TestUnlimitedPool(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, entities.UnlimitedCapacity, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 1000)
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reservation, err := f.svc.Allocator.Reserve(ctx, owner.ID, 5)
			if err == nil && !reservation.Unlimited {
				err = errors.New("reservation should be unlimited")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	record, err := f.store.CapacityRecord(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UnlimitedCapacity, record.TicketsLeft)
	assert.False(t, record.SoldOut)
}

func TestDependentSharesParentPool(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 5, "")
	sub := f.createDependent(t, owner)
	ctx := context.Background()

	reservation, err := f.svc.Allocator.Reserve(ctx, sub.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, reservation.OwnerID)
	assert.Equal(t, sub.ID, reservation.NodeID)
	assert.Equal(t, 2, f.ticketsLeft(t, owner.ID))

	view, err := f.svc.Resolver.ResolvePool(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, view.OwnerID)
	assert.Equal(t, 2, view.Capacity.TicketsLeft)

	_, err = f.svc.Allocator.Reserve(ctx, owner.ID, 3)
	var insufficient entities.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 2, f.ticketsLeft(t, owner.ID))
}

func TestSoldOutFlag(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 3, "")
	ctx := context.Background()

	_, err := f.svc.Allocator.Reserve(ctx, owner.ID, 3)
	require.NoError(t, err)

	record, err := f.store.CapacityRecord(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, record.SoldOut)

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 1)
	require.Error(t, err)
	assert.Empty(t, result.Order.ID)
}

func TestReserveRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 3, "")
	ctx := context.Background()

	_, err := f.svc.Allocator.Reserve(ctx, owner.ID, 0)
	assert.ErrorAs(t, err, &entities.InvalidQuantityError{})

	_, err = f.svc.Allocator.Reserve(ctx, uuid.New(), 1)
	assert.ErrorAs(t, err, &entities.NodeNotFoundError{})

	assert.Equal(t, 3, f.ticketsLeft(t, owner.ID))
}

func TestCheckoutFreeEventIssuesTickets(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	sub := f.createDependent(t, owner)
	buyer := uuid.New()
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, sub.ID, buyer, 3)
	require.NoError(t, err)

	assert.Equal(t, entities.PaymentFree, result.Order.PaymentState)
	assert.Equal(t, sub.ID, result.Order.TargetNodeID)
	assert.Equal(t, owner.ID, result.Order.PoolOwnerID)
	require.Len(t, result.Tickets, 3)
	assert.Empty(t, f.gateway.sessions)

	codes := map[string]struct{}{}
	for _, ticket := range result.Tickets {
		assert.Equal(t, entities.TicketActive, ticket.Status)
		assert.Equal(t, sub.ID, ticket.EventNodeID)
		assert.Equal(t, buyer, ticket.UserID)
		assert.Equal(t, sub.EndsAt.Add(allocation.DefaultTicketGrace), ticket.ExpiresAt)
		assert.Len(t, ticket.EntryCode, 8)
		codes[ticket.EntryCode] = struct{}{}
	}
	assert.Len(t, codes, 3)
	assert.Equal(t, 7, f.ticketsLeft(t, owner.ID))
}

func TestCheckoutPaidEventWaitsForPayment(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "12.50")
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 2)
	require.NoError(t, err)

	assert.Equal(t, entities.PaymentPending, result.Order.PaymentState)
	assert.True(t, decimal.RequireFromString("25").Equal(result.Order.Amount.Amount))
	assert.Contains(t, result.RedirectURL, result.Order.ID.String())
	assert.Empty(t, result.Tickets)
	assert.Equal(t, 8, f.ticketsLeft(t, owner.ID))

	tickets, err := f.store.TicketsByOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	confirmed, err := f.svc.Ledger.ConfirmPayment(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentPaid, confirmed.Order.PaymentState)
	require.Len(t, confirmed.Tickets, 2)

	again, err := f.svc.Ledger.ConfirmPayment(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ticketIDs(confirmed.Tickets), ticketIDs(again.Tickets))
}

func TestPaymentFailureReleasesReservation(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "5")
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 4)
	require.NoError(t, err)
	assert.Equal(t, 6, f.ticketsLeft(t, owner.ID))

	require.NoError(t, f.svc.Ledger.FailPayment(ctx, result.Order.ID, "card declined"))
	assert.Equal(t, 10, f.ticketsLeft(t, owner.ID))

	// repeated failure must not release twice
	require.NoError(t, f.svc.Ledger.FailPayment(ctx, result.Order.ID, "card declined"))
	assert.Equal(t, 10, f.ticketsLeft(t, owner.ID))

	order, err := f.store.OrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentCancelled, order.PaymentState)

	late, err := f.svc.Ledger.ConfirmPayment(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.True(t, late.Order.Cancelled())
	assert.Empty(t, late.Tickets)
}

func TestGatewayErrorCancelsOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "5")
	f.gateway.err = errors.New("gateway unavailable")

	_, err := f.svc.Checkout.Checkout(context.Background(), owner.ID, uuid.New(), 4)

	var failed entities.PaymentFailedError
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Reason, "gateway unavailable")
	assert.Equal(t, 10, f.ticketsLeft(t, owner.ID))
}

func TestExpireStalePayments(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "5")
	ctx := context.Background()

	stale, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 3)
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(10 * time.Minute))
	fresh, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 2)
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(6 * time.Minute))
	expired, err := f.svc.Ledger.ExpireStalePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 8, f.ticketsLeft(t, owner.ID))

	order, err := f.store.OrderByID(ctx, stale.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentCancelled, order.PaymentState)

	order, err = f.store.OrderByID(ctx, fresh.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentPending, order.PaymentState)
}

func TestCancellationWindow(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	buyer := uuid.New()
	ctx := context.Background()

	first, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 2)
	require.NoError(t, err)
	second, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, f.ticketsLeft(t, owner.ID))

	f.clock.Set(eventStart.Add(-48 * time.Hour))
	cancelled, err := f.svc.Cancellation.Cancel(ctx, first.Order.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentFree, cancelled.PreviousState)
	assert.Equal(t, 2, cancelled.TicketsCancelled)
	assert.Equal(t, 7, f.ticketsLeft(t, owner.ID))

	tickets, err := f.store.TicketsByOrder(ctx, first.Order.ID)
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, entities.TicketCancelled, ticket.Status)
	}

	f.clock.Set(eventStart.Add(-30 * time.Minute))
	_, err = f.svc.Cancellation.Cancel(ctx, second.Order.ID, buyer)
	var closed entities.CancellationWindowClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, owner.ID, closed.PoolOwnerID)
	assert.Equal(t, 7, f.ticketsLeft(t, owner.ID))

	f.clock.Set(eventStart.Add(time.Hour))
	_, err = f.svc.Cancellation.Cancel(ctx, second.Order.ID, buyer)
	assert.ErrorAs(t, err, &entities.CancellationWindowClosedError{})
}

func TestCancellationRules(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 4, "")
	buyer := uuid.New()
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 4)
	require.NoError(t, err)

	_, err = f.svc.Cancellation.Cancel(ctx, result.Order.ID, uuid.New())
	assert.ErrorAs(t, err, &entities.UnauthorizedCancellationError{})
	assert.Equal(t, 0, f.ticketsLeft(t, owner.ID))

	_, err = f.svc.Cancellation.Cancel(ctx, uuid.New(), buyer)
	assert.ErrorIs(t, err, entities.ErrOrderNotFound)

	_, err = f.svc.Cancellation.Cancel(ctx, result.Order.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, 4, f.ticketsLeft(t, owner.ID))

	_, err = f.svc.Cancellation.Cancel(ctx, result.Order.ID, buyer)
	assert.ErrorAs(t, err, &entities.OrderAlreadyCancelledError{})
	assert.Equal(t, 4, f.ticketsLeft(t, owner.ID))
}

func TestReserveCancelRoundTrip(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 9, "")
	sub := f.createDependent(t, owner)
	buyer := uuid.New()
	ctx := context.Background()

	for quantity := 1; quantity <= 9; quantity++ {
		before := f.ticketsLeft(t, owner.ID)

		result, err := f.svc.Checkout.Checkout(ctx, sub.ID, buyer, quantity)
		require.NoError(t, err)
		assert.Equal(t, before-quantity, f.ticketsLeft(t, owner.ID))

		_, err = f.svc.Cancellation.Cancel(ctx, result.Order.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, before, f.ticketsLeft(t, owner.ID))
	}
}

func TestCancelUnlimitedOrderLeavesPoolUntouched(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, entities.UnlimitedCapacity, "")
	buyer := uuid.New()
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 5)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancellation.Cancel(ctx, result.Order.ID, buyer)
	require.NoError(t, err)
	assert.True(t, cancelled.Capacity.Unlimited())
	assert.Equal(t, entities.UnlimitedCapacity, cancelled.Capacity.TicketsLeft)
	assert.False(t, cancelled.Capacity.SoldOut)
}

func TestIssueTicketsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 3)
	require.NoError(t, err)

	again, err := f.svc.Issuer.IssueTickets(ctx, result.Order)
	require.NoError(t, err)
	assert.ElementsMatch(t, ticketIDs(result.Tickets), ticketIDs(again))

	stored, err := f.store.TicketsByOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestIssueTicketsRetriesCodeCollisions(t *testing.T) {
	codes := []string{"AAAA2222", "AAAA2222", "BBBB3333", "AAAA2222", "CCCC4444", "DDDD5555"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code
	}

	f := newFixture(t, allocation.WithCodeGenerator(next))
	owner := f.createOwner(t, 10, "")
	ctx := context.Background()

	first, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAAA2222", "BBBB3333"}, entryCodes(first.Tickets))

	second, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CCCC4444", "DDDD5555"}, entryCodes(second.Tickets))
}

func TestIssueTicketsWithExpiryOverride(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, entities.UnlimitedCapacity, "")
	ctx := context.Background()

	reservation, err := f.svc.Allocator.Reserve(ctx, owner.ID, 1)
	require.NoError(t, err)

	order := entities.Order{
		ID:           uuid.New(),
		TargetNodeID: owner.ID,
		PoolOwnerID:  reservation.OwnerID,
		BuyerID:      uuid.New(),
		TicketCount:  1,
		PaymentState: entities.PaymentFree,
	}
	require.NoError(t, f.store.CreateOrder(ctx, order))

	expiresAt := eventStart.Add(time.Hour)
	tickets, err := f.svc.Issuer.IssueTickets(ctx, order, allocation.WithExpiry(expiresAt))
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, expiresAt, tickets[0].ExpiresAt)
}

func TestVerifyEntryCode(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	buyer := uuid.New()
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 2)
	require.NoError(t, err)
	code := result.Tickets[0].EntryCode

	f.clock.Set(eventStart)

	verification, err := f.svc.Verifier.Verify(ctx, " "+code+" ", owner.ID)
	require.NoError(t, err)
	assert.True(t, verification.Accepted)
	require.NotNil(t, verification.Ticket)
	assert.Equal(t, entities.TicketUsed, verification.Ticket.Status)
	assert.NotNil(t, verification.Ticket.UsedAt)

	verification, err = f.svc.Verifier.Verify(ctx, code, owner.ID)
	require.NoError(t, err)
	assert.False(t, verification.Accepted)
	assert.Equal(t, allocation.RejectedUsed, verification.Reason)

	verification, err = f.svc.Verifier.Verify(ctx, code, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, allocation.RejectedNotFound, verification.Reason)

	f.clock.Set(owner.EndsAt.Add(allocation.DefaultTicketGrace))
	verification, err = f.svc.Verifier.Verify(ctx, result.Tickets[1].EntryCode, owner.ID)
	require.NoError(t, err)
	assert.False(t, verification.Accepted)
	assert.Equal(t, allocation.RejectedExpired, verification.Reason)
}

func TestVerifyCancelledTicket(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	buyer := uuid.New()
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, buyer, 1)
	require.NoError(t, err)
	_, err = f.svc.Cancellation.Cancel(ctx, result.Order.ID, buyer)
	require.NoError(t, err)

	verification, err := f.svc.Verifier.Verify(ctx, result.Tickets[0].EntryCode, owner.ID)
	require.NoError(t, err)
	assert.False(t, verification.Accepted)
	assert.Equal(t, allocation.RejectedCancelled, verification.Reason)
}

func TestConcurrentVerificationAcceptsOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	ctx := context.Background()

	result, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	accepted := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			verification, err := f.svc.Verifier.Verify(ctx, result.Tickets[0].EntryCode, owner.ID)
			assert.NoError(t, err)
			accepted <- verification.Accepted
		}()
	}
	wg.Wait()
	close(accepted)

	count := 0
	for ok := range accepted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.createOwner(t, 10, "")
	sub := f.createDependent(t, owner)
	ctx := context.Background()

	_, err := f.svc.Catalog.CreateEvent(ctx, allocation.NewEvent{
		ParentID: sub.ID,
		StartsAt: eventStart,
		EndsAt:   eventStart,
	})
	assert.ErrorAs(t, err, &entities.InvalidNodeError{})

	capacity := 3
	_, err = f.svc.Catalog.CreateEvent(ctx, allocation.NewEvent{
		ParentID: owner.ID,
		StartsAt: eventStart,
		EndsAt:   eventStart,
		Capacity: &capacity,
	})
	assert.ErrorAs(t, err, &entities.InvalidNodeError{})

	invalid := -2
	_, err = f.svc.Catalog.CreateEvent(ctx, allocation.NewEvent{
		StartsAt: eventStart,
		EndsAt:   eventStart,
		Capacity: &invalid,
	})
	assert.ErrorAs(t, err, &entities.InvalidCapacityError{})

	_, err = f.svc.Catalog.CreateEvent(ctx, allocation.NewEvent{
		ParentID: uuid.New(),
		StartsAt: eventStart,
		EndsAt:   eventStart,
	})
	assert.ErrorAs(t, err, &entities.NodeNotFoundError{})

	zero := 0
	soldOut, err := f.svc.Catalog.CreateEvent(ctx, allocation.NewEvent{
		StartsAt: eventStart,
		EndsAt:   eventStart,
		Capacity: &zero,
	})
	require.NoError(t, err)
	record, err := f.store.CapacityRecord(ctx, soldOut.ID)
	require.NoError(t, err)
	assert.True(t, record.SoldOut)
}

func ticketIDs(tickets []entities.Ticket) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}

func entryCodes(tickets []entities.Ticket) []string {
	codes := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		codes = append(codes, ticket.EntryCode)
	}
	return codes
}

func TestNewEntryCode(t *testing.T) {
	seen := make(map[string]struct{}, 10_000)
	for i := 0; i < 10_000; i++ {
		code := allocation.NewEntryCode()
		require.Len(t, code, allocation.EntryCodeLength)
		for _, r := range code {
			require.Contains(t, allocation.EntryCodeAlphabet, string(r), "unexpected character in %s", code)
		}
		seen[code] = struct{}{}
	}

	assert.Len(t, seen, 10_000)
	assert.Equal(t, "ABCD2345", allocation.NormalizeEntryCode(" abcd2345 "))
}

// issueHookStore runs beforeIssue once, when the issuer looks up existing tickets
// of an order. Payment is already committed as paid at that point.
type issueHookStore struct {
	*memory.Store

	mu          sync.Mutex
	beforeIssue func()
}

func (s *issueHookStore) TicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Ticket, error) {
	s.mu.Lock()
	hook := s.beforeIssue
	s.beforeIssue = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	return s.Store.TicketsByOrder(ctx, orderID)
}

func (s *issueHookStore) setBeforeIssue(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeIssue = hook
}

func newHookFixture(t *testing.T) (fixture, *issueHookStore) {
	t.Helper()

	f := newFixture(t)
	store := &issueHookStore{Store: f.store}
	f.svc = allocation.NewService(store, f.gateway, allocation.DefaultConfig(), allocation.WithClock(f.clock.Now))

	return f, store
}

func activeTickets(t *testing.T, f fixture, orderIDs ...uuid.UUID) int {
	t.Helper()

	active := 0
	for _, orderID := range orderIDs {
		tickets, err := f.store.TicketsByOrder(context.Background(), orderID)
		require.NoError(t, err)
		for _, ticket := range tickets {
			if ticket.Status == entities.TicketActive {
				active++
			}
		}
	}

	return active
}

func TestCancelDuringPaymentConfirmation(t *testing.T) {
	f, store := newHookFixture(t)
	owner := f.createOwner(t, 3, "10")
	ctx := context.Background()

	first := uuid.New()
	firstOrder, err := f.svc.Checkout.Checkout(ctx, owner.ID, first, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, f.ticketsLeft(t, owner.ID))

	store.setBeforeIssue(func() {
		cancelled, err := f.svc.Cancellation.Cancel(ctx, firstOrder.Order.ID, first)
		require.NoError(t, err)
		assert.Equal(t, entities.PaymentPaid, cancelled.PreviousState)
	})

	confirmed, err := f.svc.Ledger.ConfirmPayment(ctx, firstOrder.Order.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Order.Cancelled())
	assert.Empty(t, confirmed.Tickets)
	assert.Equal(t, 0, activeTickets(t, f, firstOrder.Order.ID))
	assert.Equal(t, 3, f.ticketsLeft(t, owner.ID))

	secondOrder, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 3)
	require.NoError(t, err)
	_, err = f.svc.Ledger.ConfirmPayment(ctx, secondOrder.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, activeTickets(t, f, firstOrder.Order.ID, secondOrder.Order.ID))
	assert.Equal(t, 0, f.ticketsLeft(t, owner.ID))
}

func TestExpiryDuringPaymentConfirmation(t *testing.T) {
	f, store := newHookFixture(t)
	owner := f.createOwner(t, 3, "10")
	ctx := context.Background()

	order, err := f.svc.Checkout.Checkout(ctx, owner.ID, uuid.New(), 2)
	require.NoError(t, err)
	f.clock.Set(f.clock.Now().Add(allocation.DefaultPaymentTimeout + time.Minute))

	store.setBeforeIssue(func() {
		expired, err := f.svc.Ledger.ExpireStalePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
	})

	confirmed, err := f.svc.Ledger.ConfirmPayment(ctx, order.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentPaid, confirmed.Order.PaymentState)
	assert.Len(t, confirmed.Tickets, 2)
	assert.Equal(t, 1, f.ticketsLeft(t, owner.ID))
}
