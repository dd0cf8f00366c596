package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"email-dispatcher/internal/delivery"
	"email-dispatcher/internal/logging"
	"email-dispatcher/internal/models"
)

const (
	TransportSMTP  = "smtp"
	TransportGraph = "graph"

	DefaultSenderName = "Ayush Chauhan"
	DefaultSMTPHost   = "smtp.gmail.com"
	DefaultSMTPPort   = 587
	DefaultDelay      = 3 * time.Second
)

var ErrMissingCredentials = errors.New("missing transport credentials")

type SMTP struct {
	Host               string
	Port               int
	User               string
	Password           string
	SSL                bool
	InsecureSkipVerify bool
}

type Graph struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

type DB struct {
	Driver string
	DSN    string
}

// Config is assembled once at startup and passed by value.
type Config struct {
	SenderName  string
	SenderEmail string
	Transport   string
	SMTP        SMTP
	Graph       Graph

	Delay        time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	DryRun bool
	Send   bool

	LogFile     string
	DB          DB
	NATSURL     string
	MetricsAddr string
}

// Load reads the configuration from the environment, applying defaults for
// unset values.
func Load() (Config, error) {
	cfg := Config{
		SenderName:  getenv("FROM_NAME", DefaultSenderName),
		SenderEmail: os.Getenv("FROM_EMAIL"),
		Transport:   getenv("TRANSPORT", TransportSMTP),
		SMTP: SMTP{
			Host:     getenv("SMTP_HOST", DefaultSMTPHost),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
		},
		Graph: Graph{
			TenantID:     os.Getenv("TENANT_ID"),
			ClientID:     os.Getenv("CLIENT_ID"),
			ClientSecret: os.Getenv("CLIENT_SECRET"),
		},
		LogFile: getenv("LOG_FILE", logging.DefaultLogFile),
		DB: DB{
			Driver: getenv("DB_DRIVER", "postgres"),
			DSN:    os.Getenv("DB_DSN"),
		},
		NATSURL:     os.Getenv("NATS_URL"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", DefaultSMTPPort); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.SSL, err = boolEnv("SMTP_SSL"); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.InsecureSkipVerify, err = boolEnv("SMTP_INSECURE_SKIP_VERIFY"); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", delivery.DefaultMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.Delay, err = secondsEnv("SEND_DELAY", DefaultDelay); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = secondsEnv("RETRY_BACKOFF", delivery.DefaultBackoff); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SendMode reports whether messages are delivered rather than previewed.
func (c Config) SendMode() bool {
	return c.Send && !c.DryRun
}

func (c Config) Mode() string {
	if c.SendMode() {
		return "send"
	}
	return "preview"
}

func (c Config) Sender() models.Sender {
	return models.Sender{Name: c.SenderName, Address: c.SenderEmail}
}

func (c Config) RetryPolicy() delivery.Policy {
	return delivery.Policy{MaxAttempts: c.MaxRetries, Backoff: c.RetryBackoff}
}

// Validate checks the settings a send run needs. Preview runs need none.
func (c Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("invalid delay %s: must not be negative", c.Delay)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("invalid max retries %d: must be positive", c.MaxRetries)
	}
	if !c.SendMode() {
		return nil
	}

	var missing []string
	if c.SenderEmail == "" {
		missing = append(missing, "FROM_EMAIL")
	}
	switch c.Transport {
	case TransportSMTP:
		if c.SMTP.Host == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if c.SMTP.User == "" {
			missing = append(missing, "SMTP_USER")
		}
		if c.SMTP.Password == "" {
			missing = append(missing, "SMTP_PASS")
		}
	case TransportGraph:
		if c.Graph.TenantID == "" {
			missing = append(missing, "TENANT_ID")
		}
		if c.Graph.ClientID == "" {
			missing = append(missing, "CLIENT_ID")
		}
		if c.Graph.ClientSecret == "" {
			missing = append(missing, "CLIENT_SECRET")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// secondsEnv parses a possibly fractional number of seconds.
func secondsEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return Seconds(v), nil
}

// Seconds converts fractional seconds to a Duration.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
