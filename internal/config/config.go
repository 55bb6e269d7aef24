// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/emilythestrangee/reddit-clone/votes/internal/retry"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type Config struct {
	Port      string
	JWTSecret string
	Database  Database
	Votes     Votes
	Twilio    Twilio
}

type Database struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SlowThreshold time.Duration
	MaxOpenConns  int
	MaxIdleConns  int
}

// DSN renders the libpq-style connection string gorm's postgres driver takes.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type Votes struct {
	CastRetry        retry.Policy
	ReconcileRetry   retry.Policy
	Strategy         votes.Strategy
	ReconcileOnRead  bool
	NotifyTimeout    time.Duration
	SweepInterval    time.Duration
	SweepBatchSize   int
	SweepConcurrency int
}

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Enabled reports whether SMS notifications can be sent.
func (t Twilio) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Load builds a Config from the environment, applying defaults for anything
// unset.
func Load() (Config, error) {
	p := parser{}
	cfg := Config{
		Port:      p.str("PORT", "8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Database: Database{
			Host:          p.str("DB_HOST", "localhost"),
			Port:          p.str("DB_PORT", "5432"),
			User:          p.str("DB_USER", "postgres"),
			Password:      os.Getenv("DB_PASSWORD"),
			Name:          p.str("DB_NAME", "forum"),
			SSLMode:       p.str("DB_SSLMODE", "disable"),
			SlowThreshold: p.duration("DB_SLOW_THRESHOLD", time.Second),
			MaxOpenConns:  p.integer("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:  p.integer("DB_MAX_IDLE_CONNS", 10),
		},
		Votes: Votes{
			CastRetry: retry.Policy{
				MaxAttempts:    p.integer("CAST_RETRY_ATTEMPTS", 3),
				InitialBackoff: p.duration("CAST_RETRY_BACKOFF", 20*time.Millisecond),
				MaxBackoff:     p.duration("CAST_RETRY_MAX_BACKOFF", 200*time.Millisecond),
				AttemptTimeout: p.duration("RETRY_ATTEMPT_TIMEOUT", 2*time.Second),
			},
			ReconcileRetry: retry.Policy{
				MaxAttempts:    p.integer("RECONCILE_RETRY_ATTEMPTS", 3),
				InitialBackoff: p.duration("RECONCILE_RETRY_BACKOFF", 50*time.Millisecond),
				MaxBackoff:     p.duration("RECONCILE_RETRY_MAX_BACKOFF", 500*time.Millisecond),
				AttemptTimeout: p.duration("RETRY_ATTEMPT_TIMEOUT", 2*time.Second),
			},
			ReconcileOnRead:  p.boolean("RECONCILE_ON_READ", true),
			NotifyTimeout:    p.duration("NOTIFY_TIMEOUT", 5*time.Second),
			SweepInterval:    p.duration("SWEEP_INTERVAL", time.Minute),
			SweepBatchSize:   p.integer("SWEEP_BATCH_SIZE", 500),
			SweepConcurrency: p.integer("SWEEP_CONCURRENCY", 8),
		},
		Twilio: Twilio{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
	}

	strategy, err := votes.ParseStrategy(os.Getenv("RECONCILE_STRATEGY"))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("RECONCILE_STRATEGY: %w", err))
	}
	cfg.Votes.Strategy = strategy

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type parser struct {
	errs []error
}

func (p *parser) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (p *parser) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) boolean(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
