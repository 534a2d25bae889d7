package allocation

import "time"

type Config struct {
	TicketGrace        time.Duration
	CancellationCutoff time.Duration
	PaymentTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		TicketGrace:        DefaultTicketGrace,
		CancellationCutoff: DefaultCancellationCutoff,
		PaymentTimeout:     DefaultPaymentTimeout,
	}
}

type options struct {
	observer Observer
	codes    CodeGenerator
	now      func() time.Time
}

type Option func(*options)

func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func WithCodeGenerator(codes CodeGenerator) Option {
	return func(o *options) {
		o.codes = codes
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Service groups the allocation components sharing one store.
type Service struct {
	Catalog      *Catalog
	Resolver     *Resolver
	Allocator    *Allocator
	Ledger       *Ledger
	Issuer       *Issuer
	Cancellation *Cancellation
	Verifier     *Verifier
	Checkout     *Checkout
}

func NewService(store Store, gateway PaymentGateway, config Config, opts ...Option) *Service {
	o := options{
		observer: noopObserver{},
		codes:    NewEntryCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	resolver := NewResolver(store)
	allocator := NewAllocator(resolver, store, o.observer)
	issuer := NewIssuer(store, store, o.codes, config.TicketGrace, o.now)
	ledger := NewLedger(store, allocator, issuer, gateway, o.observer, config.PaymentTimeout, o.now)

	return &Service{
		Catalog:      NewCatalog(store, o.now),
		Resolver:     resolver,
		Allocator:    allocator,
		Ledger:       ledger,
		Issuer:       issuer,
		Cancellation: NewCancellation(store, store, o.observer, config.CancellationCutoff, o.now),
		Verifier:     NewVerifier(store, o.observer, o.now),
		Checkout:     NewCheckout(resolver, allocator, ledger),
	}
}
