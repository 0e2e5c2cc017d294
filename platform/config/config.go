// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetExpireSweepInterval() time.Duration
	GetReconcileInterval() time.Duration
}

// ScoringPolicyConfig provides the qualification tier cut points.
// Cut points are business policy, not engine logic, so they are configurable.
type ScoringPolicyConfig interface {
	GetTierCutPoints() TierCutPoints
}

// OfferPolicyConfig provides lead offer lifecycle settings.
type OfferPolicyConfig interface {
	GetOfferTTL() time.Duration
}

// MatchPolicyConfig provides lead matcher policy settings.
type MatchPolicyConfig interface {
	GetMatchRadiusKm() float64
	GetMatchScoreFloor() float64
	GetMaxVendorsPerLead() int
	GetMinVendorsPerLead() int
}

// PricingPolicyConfig provides lead pricing bounds.
type PricingPolicyConfig interface {
	GetPriceFloorCents() int64
	GetPriceCeilingCents() int64
}

// RefundPolicyConfig provides the reason-code refund percentage table.
type RefundPolicyConfig interface {
	GetRefundPercentages() map[string]float64
}

// TierCutPoints holds the minimum overall score per quality tier.
// Everything below Standard is "basic".
type TierCutPoints struct {
	Elite     int
	Premium   int
	Qualified int
	Standard  int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	ExpireSweepInterval time.Duration
	ReconcileInterval   time.Duration
	OfferTTL            time.Duration

	TierCutPoints TierCutPoints

	MatchRadiusKm     float64
	MatchScoreFloor   float64
	MaxVendorsPerLead int
	MinVendorsPerLead int

	PriceFloorCents   int64
	PriceCeilingCents int64

	RefundPercentages map[string]float64
}

// defaultRefundPercentages is the policy table applied when no override is
// configured. Keys are refund reason codes, values are fractions of the
// original charge.
var defaultRefundPercentages = map[string]float64{
	"customer_unresponsive": 1.00,
	"invalid_contact":       1.00,
	"duplicate_lead":        1.00,
	"job_cancelled":         0.50,
	"customer_dispute":      0.75,
	"poor_quality":          0.50,
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string                    { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool              { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string              { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int               { return c.AsynqConcurrency }
func (c *Config) GetExpireSweepInterval() time.Duration  { return c.ExpireSweepInterval }
func (c *Config) GetReconcileInterval() time.Duration    { return c.ReconcileInterval }

func (c *Config) GetTierCutPoints() TierCutPoints { return c.TierCutPoints }
func (c *Config) GetOfferTTL() time.Duration      { return c.OfferTTL }

func (c *Config) GetMatchRadiusKm() float64   { return c.MatchRadiusKm }
func (c *Config) GetMatchScoreFloor() float64 { return c.MatchScoreFloor }
func (c *Config) GetMaxVendorsPerLead() int   { return c.MaxVendorsPerLead }
func (c *Config) GetMinVendorsPerLead() int   { return c.MinVendorsPerLead }

func (c *Config) GetPriceFloorCents() int64   { return c.PriceFloorCents }
func (c *Config) GetPriceCeilingCents() int64 { return c.PriceCeilingCents }

func (c *Config) GetRefundPercentages() map[string]float64 { return c.RefundPercentages }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		ExpireSweepInterval: mustDuration(getEnv("OFFER_EXPIRE_SWEEP_INTERVAL", "5m")),
		ReconcileInterval:   mustDuration(getEnv("LEDGER_RECONCILE_INTERVAL", "1h")),
		OfferTTL:            mustDuration(getEnv("OFFER_TTL", "24h")),

		TierCutPoints: TierCutPoints{
			Elite:     mustInt(getEnv("TIER_CUT_ELITE", "90")),
			Premium:   mustInt(getEnv("TIER_CUT_PREMIUM", "80")),
			Qualified: mustInt(getEnv("TIER_CUT_QUALIFIED", "65")),
			Standard:  mustInt(getEnv("TIER_CUT_STANDARD", "40")),
		},

		MatchRadiusKm:     mustFloat(getEnv("MATCH_RADIUS_KM", "50")),
		MatchScoreFloor:   mustFloat(getEnv("MATCH_SCORE_FLOOR", "40")),
		MaxVendorsPerLead: mustInt(getEnv("MAX_VENDORS_PER_LEAD", "5")),
		MinVendorsPerLead: mustInt(getEnv("MIN_VENDORS_PER_LEAD", "3")),

		PriceFloorCents:   mustInt64(getEnv("LEAD_PRICE_FLOOR_CENTS", "250")),
		PriceCeilingCents: mustInt64(getEnv("LEAD_PRICE_CEILING_CENTS", "2500")),

		RefundPercentages: parseRefundTable(getEnv("REFUND_POLICY", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.OfferTTL <= 0 {
		return nil, fmt.Errorf("OFFER_TTL must be a positive duration")
	}

	return cfg, nil
}

// parseRefundTable parses "reason:fraction,reason:fraction" overrides on top
// of the default policy table. Unknown reasons are added as-is so new policy
// codes can ship without a binary change.
func parseRefundTable(raw string) map[string]float64 {
	table := make(map[string]float64, len(defaultRefundPercentages))
	for reason, pct := range defaultRefundPercentages {
		table[reason] = pct
	}

	for _, pair := range splitCSV(raw) {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || pct < 0 || pct > 1 {
			continue
		}
		table[strings.TrimSpace(parts[0])] = pct
	}

	return table
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
