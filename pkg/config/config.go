package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`
	AMQPURL     string `envconfig:"AMQP_URL" default:""`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	StateDir    string `envconfig:"STATE_DIR" default:".storefront"`

	RazorpayKeyID  string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpaySecret string `envconfig:"RAZORPAY_SECRET"`

	// Notification bus tuning. Signals older than SignalMaxAge are
	// discarded by the polling fallback.
	DebounceWindow time.Duration `envconfig:"DEBOUNCE_WINDOW" default:"500ms"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	SignalMaxAge   time.Duration `envconfig:"SIGNAL_MAX_AGE" default:"10s"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

func Load() (Config, error) {
	var c Config
	err := envconfig.Process("storefront", &c)
	return c, err
}
