package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/api"
	"github.com/george-bobby/eventtts-sap-sub000/config"
	"github.com/george-bobby/eventtts-sap-sub000/db"
	ticketsHttp "github.com/george-bobby/eventtts-sap-sub000/http"
	"github.com/george-bobby/eventtts-sap-sub000/memory"
	"github.com/george-bobby/eventtts-sap-sub000/message"
	"github.com/george-bobby/eventtts-sap-sub000/message/command"
	"github.com/george-bobby/eventtts-sap-sub000/message/event"
	"github.com/george-bobby/eventtts-sap-sub000/message/outbox"
	"github.com/george-bobby/eventtts-sap-sub000/metrics"
	observability "github.com/george-bobby/eventtts-sap-sub000/trace"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type ReceiptsService interface {
	event.ReceiptsService
	command.ReceiptsService
}

type Dependencies struct {
	Config config.Config

	// DB is nil for the in-memory store.
	DB *db.DB
	// RedisClient is nil for in-process pub/sub.
	RedisClient *redis.Client

	Gateway      allocation.PaymentGateway
	Spreadsheets event.SpreadsheetsAPI
	Receipts     ReceiptsService
	Payments     command.PaymentsService
	Notifier     event.Notifier

	MetricsRegisterer prometheus.Registerer
	// Clock overrides time.Now in the allocation domain.
	Clock func() time.Time
}

type Service struct {
	watermillRouter *watermillMessage.Router
	echoRouter      *echo.Echo
	allocation      *allocation.Service

	httpAddr   string
	sweepEvery time.Duration
}

func New(deps Dependencies) (Service, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var transport message.Transport
	if deps.RedisClient != nil {
		var err error
		transport, err = message.NewRedisTransport(deps.RedisClient, watermillLogger)
		if err != nil {
			return Service{}, fmt.Errorf("could not create redis transport: %w", err)
		}
	} else {
		transport = message.NewGoChannelTransport(watermillLogger)
	}

	var publisher watermillMessage.Publisher
	publisher = transport.Publisher
	publisher = log.CorrelationPublisherDecorator{Publisher: publisher}
	publisher = observability.TracingPublisherDecorator{Publisher: publisher}

	eventBus, err := event.NewBus(publisher)
	if err != nil {
		return Service{}, err
	}
	commandBus, err := command.NewBus(publisher)
	if err != nil {
		return Service{}, err
	}

	var (
		store        allocation.Store
		orders       ticketsHttp.OrderReader
		pgSubscriber watermillMessage.Subscriber
	)
	if deps.DB != nil {
		if err := deps.DB.MigrateSchema(); err != nil {
			return Service{}, err
		}
		var storeOpts []db.StoreOption
		if deps.Clock != nil {
			storeOpts = append(storeOpts, db.WithClock(deps.Clock))
		}
		dbStore := db.NewStore(deps.DB, storeOpts...)
		store, orders = dbStore, dbStore
		sub, err := outbox.NewPostgresSubscriber(deps.DB.Conn, watermillLogger)
		if err != nil {
			return Service{}, err
		}
		pgSubscriber = sub
	} else {
		opts := []memory.Option{memory.WithPublisher(eventBus)}
		if deps.Clock != nil {
			opts = append(opts, memory.WithClock(deps.Clock))
		}
		memStore := memory.NewStore(opts...)
		store, orders = memStore, memStore
	}

	observer, err := metrics.NewPrometheusObserver("", deps.MetricsRegisterer)
	if err != nil {
		return Service{}, err
	}

	allocationOpts := []allocation.Option{allocation.WithObserver(observer)}
	if deps.Clock != nil {
		allocationOpts = append(allocationOpts, allocation.WithClock(deps.Clock))
	}
	allocSvc := allocation.NewService(store, deps.Gateway, allocation.Config{
		TicketGrace:        deps.Config.TicketGrace,
		CancellationCutoff: deps.Config.CancellationCutoff,
		PaymentTimeout:     deps.Config.PaymentTimeout,
	}, allocationOpts...)

	eventsHandler := event.NewHandler(
		allocSvc.Ledger,
		deps.Spreadsheets,
		deps.Receipts,
		deps.Notifier,
		commandBus,
	)
	commandsHandler := command.NewHandler(eventBus, deps.Payments, deps.Receipts)

	watermillRouter, err := message.NewWatermillRouter(
		pgSubscriber,
		publisher,
		command.NewProcessorConfig(transport.NewSubscriber, watermillLogger),
		event.NewProcessorConfig(transport.NewSubscriber, watermillLogger),
		commandsHandler,
		eventsHandler,
		watermillLogger,
	)
	if err != nil {
		return Service{}, fmt.Errorf("could not create watermill router: %w", err)
	}

	echoRouter := ticketsHttp.NewHttpRouter(ticketsHttp.Dependencies{
		EventBus:     eventBus,
		Catalog:      allocSvc.Catalog,
		Pools:        allocSvc.Resolver,
		Checkout:     allocSvc.Checkout,
		Cancellation: allocSvc.Cancellation,
		Orders:       orders,
		Verifier:     allocSvc.Verifier,
		Webhook: api.Signer{
			ClientID:  deps.Config.CheckoutClientID,
			SecretKey: deps.Config.PaymentWebhookSecret,
		},
		DefaultCurrency: deps.Config.DefaultCurrency,
		JWTSecret:       deps.Config.JWTSecret,
	})

	return Service{
		watermillRouter: watermillRouter,
		echoRouter:      echoRouter,
		allocation:      allocSvc,
		httpAddr:        deps.Config.HTTPAddr,
		sweepEvery:      sweepInterval(deps.Config.PaymentTimeout),
	}, nil
}

func sweepInterval(paymentTimeout time.Duration) time.Duration {
	interval := paymentTimeout / 3
	if interval < time.Second {
		return time.Second
	}
	return interval
}

func (s Service) Allocation() *allocation.Service {
	return s.allocation
}

func (s Service) Run(
	ctx context.Context,
) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	errgrp.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	errgrp.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so service won't be healthy before it's ready)
		<-s.watermillRouter.Running()

		err := s.echoRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return s.echoRouter.Shutdown(context.Background())
	})

	errgrp.Go(func() error {
		return s.expireStalePayments(ctx)
	})

	return errgrp.Wait()
}

// expireStalePayments cancels orders the gateway never settled.
func (s Service) expireStalePayments(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			expired, err := s.allocation.Ledger.ExpireStalePayments(ctx)
			if err != nil {
				log.FromContext(ctx).WithError(err).Error("Could not expire stale payments")
				continue
			}
			if expired > 0 {
				log.FromContext(ctx).WithField("orders", expired).Info("Expired stale payments")
			}
		}
	}
}
