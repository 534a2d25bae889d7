package http

import (
	"net/http"

	libHttp "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type Dependencies struct {
	EventBus     EventPublisher
	Catalog      EventCatalog
	Pools        PoolResolver
	Checkout     CheckoutService
	Cancellation CancellationService
	Orders       OrderReader
	Verifier     EntryVerifier
	Webhook      SignatureVerifier

	DefaultCurrency string

	// JWTSecret enables bearer-token authentication. When empty the buyer
	// is taken from the X-User-ID header.
	JWTSecret string
}

func NewHttpRouter(deps Dependencies) *echo.Echo {
	e := libHttp.NewEcho()

	e.Use(otelecho.Middleware("tickets"))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := Handler{
		eventBus:     deps.EventBus,
		catalog:      deps.Catalog,
		pools:        deps.Pools,
		checkout:     deps.Checkout,
		cancellation: deps.Cancellation,
		orders:       deps.Orders,
		verifier:     deps.Verifier,
		webhook:      deps.Webhook,

		defaultCurrency: deps.DefaultCurrency,
	}

	e.GET("/events/:id", handler.GetEvent)
	e.POST("/payments/notifications", handler.PostPaymentNotification)
	e.POST("/entry/verify", handler.PostEntryVerify)

	auth := authenticate(deps.JWTSecret)
	e.POST("/events", handler.PostEvents, auth, requireRole(deps.JWTSecret, roleOrganizer))
	e.POST("/events/:id/checkout", handler.PostCheckout, auth)
	e.POST("/orders/:id/cancel", handler.PostCancelOrder, auth)
	e.GET("/orders/:id/tickets", handler.GetOrderTickets, auth)

	return e
}
