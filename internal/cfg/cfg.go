package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"time"
)

// Config holds the application settings registered alongside the
// go-core component configs.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	MongoURL              string
	MongoDatabase         string
	ContentFile           string
	SessionTTL            time.Duration
	SessionSweepInterval  time.Duration
	APIToken              string
	TwilioAuthToken       string
	PublicBaseURL         string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty with no mongo-url = in-memory store)")
	fs.StringVar(&c.MongoURL, "mongo-url", "", "MongoDB connection URI (alternative to database-url)")
	fs.StringVar(&c.MongoDatabase, "mongo-database", "ashabot", "MongoDB database name")
	fs.StringVar(&c.ContentFile, "content-file", "", "YAML message catalog overriding the built-in one")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 24*time.Hour, "evict dialog sessions idle for this long (0 = never)")
	fs.DurationVar(&c.SessionSweepInterval, "session-sweep-interval", 5*time.Minute, "how often idle sessions are swept")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token for the admin API (empty = admin API disabled)")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "auth token used to verify webhook signatures (empty = unverified)")
	fs.StringVar(&c.PublicBaseURL, "public-base-url", "", "externally visible base URL used for webhook signature checks")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for outbreak notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// at most one durable store
	if c.DatabaseURL != "" && c.MongoURL != "" {
		errs = append(errs, errors.New("DATABASE_URL and MONGO_URL are mutually exclusive"))
	}
	if c.MongoURL != "" && c.MongoDatabase == "" {
		errs = append(errs, errors.New("MONGO_DATABASE is required with MONGO_URL"))
	}

	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL %s (must be >= 0)", c.SessionTTL))
	}
	if c.SessionTTL > 0 && c.SessionSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL %s (must be > 0 when SESSION_TTL is set)", c.SessionSweepInterval))
	}

	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid PUBLIC_BASE_URL %q (must be an absolute http(s) URL)", c.PublicBaseURL))
		}
	}
	if c.SlackWebhookURL != "" {
		u, err := url.Parse(c.SlackWebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, errors.New("invalid SLACK_WEBHOOK_URL (must be an https URL)"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
