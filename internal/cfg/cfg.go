// Package cfg holds the application-level configuration for triageline.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	DBMaxConns            int
	DBSlowQueryMillis     int
	ClaudeAPIKey          string
	ClaudeModel           string
	SlackWebhookURL       string
	NotifyPriority        int
	KafkaBrokers          string
	KafkaTopic            string
	VocabularyFile        string
	SeedDemo              bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token(s) required on /api routes, comma-separated for rotation")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.DBMaxConns, "db-max-conns", 0, "maximum PostgreSQL pool connections (0 = pgx default)")
	fs.IntVar(&c.DBSlowQueryMillis, "db-slow-query-ms", 0, "only log successful queries slower than this (0 = log all)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for Claude advisory notes (empty = advisory disabled)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use for advisory notes")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for high-acuity notifications")
	fs.IntVar(&c.NotifyPriority, "notify-priority", 2, "least urgent priority (1..5) that still triggers a notification")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for lifecycle events (empty = disabled)")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", "triage-events", "Kafka topic for lifecycle events")
	fs.StringVar(&c.VocabularyFile, "vocabulary-file", "", "YAML file overriding the symptom vocabulary")
	fs.BoolVar(&c.SeedDemo, "seed-demo", false, "admit the built-in demo patients at start-up")
}

// APITokens returns the configured bearer tokens.
func (c *Config) APITokens() []string {
	return splitList(c.APIToken)
}

// Brokers returns the configured Kafka broker addresses.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// the API serves patient records, never run it open
	if len(c.APITokens()) == 0 {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// pgx takes an int32
	if c.DBMaxConns < 0 || c.DBMaxConns > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("invalid DB_MAX_CONNS %d (must be 0..%d)", c.DBMaxConns, math.MaxInt32))
	}
	if c.DBSlowQueryMillis < 0 {
		errs = append(errs, fmt.Errorf("invalid DB_SLOW_QUERY_MS %d (must be >= 0)", c.DBSlowQueryMillis))
	}

	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if c.NotifyPriority < 1 || c.NotifyPriority > 5 {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_PRIORITY %d (must be 1..5)", c.NotifyPriority))
	}

	if len(c.Brokers()) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
