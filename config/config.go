package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	PostgresURL string
	RedisAddr   string
	GatewayAddr string

	CheckoutURL          string
	CheckoutClientID     string
	CheckoutSecretKey    string
	PaymentWebhookSecret string
	PaymentTimeout       time.Duration

	NotificationsURL string
	JaegerEndpoint   string
	JWTSecret        string

	TicketGrace        time.Duration
	CancellationCutoff time.Duration
	DefaultCurrency    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("could not load .env: %w", err)
	}

	paymentTimeout, err := durationEnv("PAYMENT_TIMEOUT", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	ticketGrace, err := durationEnv("TICKET_GRACE", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cutoff, err := durationEnv("CANCELLATION_CUTOFF", time.Hour)
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:    stringEnv("HTTP_ADDR", ":8080"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		GatewayAddr: os.Getenv("GATEWAY_ADDR"),

		CheckoutURL:          os.Getenv("CHECKOUT_URL"),
		CheckoutClientID:     os.Getenv("CHECKOUT_CLIENT_ID"),
		CheckoutSecretKey:    os.Getenv("CHECKOUT_SECRET_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentTimeout:       paymentTimeout,

		NotificationsURL: os.Getenv("NOTIFICATIONS_URL"),
		JaegerEndpoint:   os.Getenv("JAEGER_ENDPOINT"),
		JWTSecret:        os.Getenv("JWT_SECRET"),

		TicketGrace:        ticketGrace,
		CancellationCutoff: cutoff,
		DefaultCurrency:    stringEnv("DEFAULT_CURRENCY", "USD"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}

	return d, nil
}
