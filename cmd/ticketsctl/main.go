package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/config"
	"github.com/george-bobby/eventtts-sap-sub000/db"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var errNoCheckout = errors.New("checkout is not available from ticketsctl")

type noCheckout struct{}

func (noCheckout) CreateSession(context.Context, entities.Money, map[string]string) (entities.PaymentSession, error) {
	return entities.PaymentSession{}, errNoCheckout
}

type Handler struct {
	store  allocation.Store
	config allocation.Config
	out    io.Writer
}

func NewHandler(store allocation.Store, cfg allocation.Config, out io.Writer) *Handler {
	return &Handler{store: store, config: cfg, out: out}
}

func (h *Handler) service(opts ...func(*allocation.Config)) *allocation.Service {
	cfg := h.config
	for _, opt := range opts {
		opt(&cfg)
	}
	return allocation.NewService(h.store, noCheckout{}, cfg)
}

func (h *Handler) Pool(ctx context.Context, nodeID uuid.UUID) error {
	pool, err := h.service().Resolver.ResolvePool(ctx, nodeID)
	if err != nil {
		return err
	}

	left := fmt.Sprint(pool.Capacity.TicketsLeft)
	total := fmt.Sprint(pool.Capacity.TotalCapacity)
	if pool.Capacity.Unlimited() {
		left, total = "unlimited", "unlimited"
	}

	fmt.Fprintf(h.out, "event\t%s\npool owner\t%s\ntotal\t%s\nleft\t%s\nsold out\t%v\nfree\t%v\n",
		pool.NodeID, pool.OwnerID, total, left, pool.Capacity.SoldOut, pool.IsFree)

	return nil
}

func (h *Handler) Verify(ctx context.Context, ownerID uuid.UUID, code string) error {
	verification, err := h.service().Verifier.Verify(ctx, code, ownerID)
	if err != nil {
		return err
	}

	if verification.Accepted {
		fmt.Fprintf(h.out, "accepted\t%s\n", verification.Ticket.ID)
		return nil
	}

	fmt.Fprintf(h.out, "rejected\t%s\n", verification.Reason)
	return nil
}

func (h *Handler) ExpirePayments(ctx context.Context, olderThan time.Duration) error {
	svc := h.service(func(c *allocation.Config) {
		c.PaymentTimeout = olderThan
	})

	expired, err := svc.Ledger.ExpireStalePayments(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(h.out, "expired\t%d\n", expired)
	return nil
}

func newDBHandler() (*Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.PostgresURL == "" {
		return nil, errors.New("POSTGRES_URL is required")
	}

	conn, err := db.NewDBConn(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	return NewHandler(db.NewStore(&conn), allocation.Config{
		TicketGrace:        cfg.TicketGrace,
		CancellationCutoff: cfg.CancellationCutoff,
		PaymentTimeout:     cfg.PaymentTimeout,
	}, os.Stdout), nil
}

func parseUUIDFlag(c *cli.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}

func newApp(newHandler func() (*Handler, error)) *cli.App {
	return &cli.App{
		Name:  "ticketsctl",
		Usage: "Operate ticket pools",
		Commands: []*cli.Command{
			{
				Name:  "pool",
				Usage: "show the pool of an event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Required: true, Usage: "event or sub-event id"},
				},
				Action: func(c *cli.Context) error {
					h, err := newHandler()
					if err != nil {
						return err
					}

					nodeID, err := parseUUIDFlag(c, "event")
					if err != nil {
						return err
					}

					return h.Pool(c.Context, nodeID)
				},
			},
			{
				Name:  "verify",
				Usage: "verify an entry code at the gate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Required: true, Usage: "main event id"},
					&cli.StringFlag{Name: "code", Required: true, Usage: "entry code"},
				},
				Action: func(c *cli.Context) error {
					h, err := newHandler()
					if err != nil {
						return err
					}

					ownerID, err := parseUUIDFlag(c, "owner")
					if err != nil {
						return err
					}

					return h.Verify(c.Context, ownerID, c.String("code"))
				},
			},
			{
				Name:  "expire-payments",
				Usage: "cancel orders waiting for payment for too long",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: allocation.DefaultPaymentTimeout},
				},
				Action: func(c *cli.Context) error {
					h, err := newHandler()
					if err != nil {
						return err
					}

					return h.ExpirePayments(c.Context, c.Duration("older-than"))
				},
			},
		},
	}
}

func main() {
	if err := newApp(newDBHandler).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
