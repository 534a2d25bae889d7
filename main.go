package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/api"
	"github.com/george-bobby/eventtts-sap-sub000/config"
	"github.com/george-bobby/eventtts-sap-sub000/db"
	"github.com/george-bobby/eventtts-sap-sub000/message"
	"github.com/george-bobby/eventtts-sap-sub000/service"
	observability "github.com/george-bobby/eventtts-sap-sub000/trace"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Init(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Error("Could not shut down tracer provider")
		}
	}()

	apiClients, err := clients.NewClients(cfg.GatewayAddr, func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
		return nil
	})
	if err != nil {
		panic(err)
	}

	deps := service.Dependencies{
		Config:       cfg,
		Spreadsheets: api.NewSpreadsheetsAPIClient(apiClients),
		Receipts:     api.NewReceiptsServiceClient(apiClients),
		Payments:     api.NewPaymentsServiceClient(apiClients),
		Notifier:     api.NewMailerClient(cfg.NotificationsURL),
		Gateway:      newPaymentGateway(cfg),
	}

	if cfg.PostgresURL != "" {
		conn, err := db.NewDBConn(cfg.PostgresURL)
		if err != nil {
			panic(err)
		}
		defer conn.Close()
		deps.DB = &conn
	}

	if cfg.RedisAddr != "" {
		rdb := message.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		deps.RedisClient = rdb
	}

	svc, err := service.New(deps)
	if err != nil {
		panic(err)
	}

	logrus.WithField("addr", cfg.HTTPAddr).Info("Server starting...")

	if err := svc.Run(ctx); err != nil {
		panic(err)
	}
}

func newPaymentGateway(cfg config.Config) allocation.PaymentGateway {
	if cfg.CheckoutURL == "" {
		logrus.Warn("CHECKOUT_URL not set, paid checkouts use a local gateway stub")
		return &api.CheckoutGatewayMock{}
	}

	return api.NewCheckoutGatewayClient(cfg.CheckoutURL, api.Signer{
		ClientID:  cfg.CheckoutClientID,
		SecretKey: cfg.CheckoutSecretKey,
	}, cfg.PaymentTimeout)
}
