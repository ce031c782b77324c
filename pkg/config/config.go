package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceClass groups content sources by the payload size profile they are
// allowed. Chat messages are small; webhook payloads may be much larger.
type SourceClass string

const (
	SourceChat    SourceClass = "chat"
	SourceWebhook SourceClass = "webhook"
	SourceEmail   SourceClass = "email"
)

// AuditBackend selects where decision records are persisted.
type AuditBackend string

const (
	AuditFile     AuditBackend = "file"     // hash-chained JSONL (default)
	AuditSQLite   AuditBackend = "sqlite"   // embedded database
	AuditPostgres AuditBackend = "postgres" // shared database
	AuditRedis    AuditBackend = "redis"    // stream, for log shippers
	AuditWebhook  AuditBackend = "webhook"  // POST to an external collector
)

// Default payload caps. Exceeding a cap is a hard rejection, never a
// truncation.
const (
	DefaultChatMaxBytes    = 50 * 1024
	DefaultWebhookMaxBytes = 1024 * 1024
	DefaultEmailMaxBytes   = 256 * 1024
)

// Default score thresholds. Bands are inclusive on their lower bound:
// score < warn = allow, warn <= score <= block = warn, score > block = block.
const (
	DefaultWarnThreshold  = 30
	DefaultBlockThreshold = 70
)

// BlockFloorCeiling is the highest value the block threshold may reach via
// configuration or tier shifts. The block rule itself can never be disabled.
const BlockFloorCeiling = 90

// TierShift adjusts thresholds for one trust tier. Negative values tighten
// (lower thresholds); positive values relax, bounded by BlockFloorCeiling.
type TierShift struct {
	Warn  int `yaml:"warn"`
	Block int `yaml:"block"`
}

// Config holds all runtime settings for the Rampart pipeline. It is built
// once at startup and threaded into components; nothing reads the
// environment after construction.
type Config struct {
	// === Payload bounds ===
	MaxBytes map[SourceClass]int `yaml:"max_bytes"`

	// === Decoder bounds ===
	MaxDecodeDepth  int `yaml:"max_decode_depth"`
	MaxVariants     int `yaml:"max_variants"`      // total variant cap per unit
	MaxNestingDepth int `yaml:"max_nesting_depth"` // structured-format nesting before penalty

	// === Score thresholds (0-100) ===
	WarnThreshold  int `yaml:"warn_threshold"`
	BlockThreshold int `yaml:"block_threshold"`

	// === Per-tier threshold shifts ===
	// Keyed by trust tier name ("signed", "paired"). The unauthenticated
	// tier never gets a relaxing shift.
	TierShifts map[string]TierShift `yaml:"tier_shifts"`

	// === Signature registry ===
	RegistryPath  string `yaml:"registry_path"`  // YAML artifact; empty = builtin only
	WatchRegistry bool   `yaml:"watch_registry"` // reload snapshot on artifact change

	// === Audit sink ===
	AuditBackend     AuditBackend  `yaml:"audit_backend"`
	AuditLogPath     string        `yaml:"audit_log_path"`
	AuditSQLitePath  string        `yaml:"audit_sqlite_path"`
	AuditPostgresDSN string        `yaml:"audit_postgres_dsn"`
	AuditRedisAddr   string        `yaml:"audit_redis_addr"`
	AuditRedisStream string        `yaml:"audit_redis_stream"`
	AuditWebhookURL  string        `yaml:"audit_webhook_url"`
	AuditTimeout     time.Duration `yaml:"audit_timeout"`

	// === Gateway ===
	ListenAddr    string `yaml:"listen_addr"`
	MaxConcurrent int    `yaml:"max_concurrent"` // evaluation semaphore capacity
	ExcerptMaxLen int    `yaml:"excerpt_max_len"`
}

// New creates a Config with defaults, overridden by environment variables.
func New() *Config {
	cfg := &Config{
		MaxBytes: map[SourceClass]int{
			SourceChat:    GetEnvInt("RAMPART_MAX_BYTES_CHAT", DefaultChatMaxBytes),
			SourceWebhook: GetEnvInt("RAMPART_MAX_BYTES_WEBHOOK", DefaultWebhookMaxBytes),
			SourceEmail:   GetEnvInt("RAMPART_MAX_BYTES_EMAIL", DefaultEmailMaxBytes),
		},

		MaxDecodeDepth:  clampInt(GetEnvInt("RAMPART_MAX_DECODE_DEPTH", 10), 1, 32),
		MaxVariants:     clampInt(GetEnvInt("RAMPART_MAX_VARIANTS", 64), 1, 1024),
		MaxNestingDepth: clampInt(GetEnvInt("RAMPART_MAX_NESTING_DEPTH", 20), 1, 256),

		WarnThreshold:  GetEnvInt("RAMPART_WARN_THRESHOLD", DefaultWarnThreshold),
		BlockThreshold: GetEnvInt("RAMPART_BLOCK_THRESHOLD", DefaultBlockThreshold),

		TierShifts: map[string]TierShift{},

		RegistryPath:  GetEnv("RAMPART_REGISTRY_PATH", ""),
		WatchRegistry: GetEnvBool("RAMPART_WATCH_REGISTRY", false),

		AuditBackend:     AuditBackend(GetEnv("RAMPART_AUDIT_BACKEND", string(AuditFile))),
		AuditLogPath:     GetEnv("RAMPART_AUDIT_LOG", "decision_records.jsonl"),
		AuditSQLitePath:  GetEnv("RAMPART_AUDIT_SQLITE", "decision_records.db"),
		AuditPostgresDSN: GetEnv("RAMPART_AUDIT_POSTGRES_DSN", ""),
		AuditRedisAddr:   GetEnv("RAMPART_AUDIT_REDIS_ADDR", "localhost:6379"),
		AuditRedisStream: GetEnv("RAMPART_AUDIT_REDIS_STREAM", "rampart:decisions"),
		AuditWebhookURL:  GetEnv("RAMPART_AUDIT_WEBHOOK_URL", ""),
		AuditTimeout:     time.Duration(GetEnvInt("RAMPART_AUDIT_TIMEOUT_MS", 5000)) * time.Millisecond,

		ListenAddr:    GetEnv("RAMPART_LISTEN_ADDR", ":3000"),
		MaxConcurrent: clampInt(GetEnvInt("RAMPART_MAX_CONCURRENT", 256), 1, 65536),
		ExcerptMaxLen: clampInt(GetEnvInt("RAMPART_EXCERPT_MAX_LEN", 120), 16, 4096),
	}

	return cfg
}

// NewHighSecurity lowers thresholds for maximum strictness. Expect more
// false positives.
func NewHighSecurity() *Config {
	cfg := New()
	cfg.WarnThreshold = 15
	cfg.BlockThreshold = 50
	return cfg
}

// NewHighUsability raises thresholds to minimize false positives on
// paired/allowlisted deployments. The block floor ceiling still applies.
func NewHighUsability() *Config {
	cfg := New()
	cfg.WarnThreshold = 45
	cfg.BlockThreshold = 85
	return cfg
}

// LoadFile reads a YAML config file over a default Config. File values
// override environment values already applied by New.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that thresholds and bounds are coherent. Call once at
// startup before constructing the pipeline.
func (c *Config) Validate() error {
	var problems []string

	if c.WarnThreshold < 0 || c.WarnThreshold > 100 {
		problems = append(problems, fmt.Sprintf("warn_threshold %d outside 0-100", c.WarnThreshold))
	}
	if c.BlockThreshold < 0 || c.BlockThreshold > 100 {
		problems = append(problems, fmt.Sprintf("block_threshold %d outside 0-100", c.BlockThreshold))
	}
	if c.WarnThreshold > c.BlockThreshold {
		problems = append(problems, fmt.Sprintf("warn_threshold %d exceeds block_threshold %d", c.WarnThreshold, c.BlockThreshold))
	}
	if c.BlockThreshold > BlockFloorCeiling {
		problems = append(problems, fmt.Sprintf("block_threshold %d exceeds ceiling %d", c.BlockThreshold, BlockFloorCeiling))
	}
	for class, n := range c.MaxBytes {
		if n <= 0 {
			problems = append(problems, fmt.Sprintf("max_bytes[%s] must be positive, got %d", class, n))
		}
	}
	if c.MaxDecodeDepth < 1 {
		problems = append(problems, "max_decode_depth must be at least 1")
	}
	for tier, shift := range c.TierShifts {
		if c.BlockThreshold+shift.Block > BlockFloorCeiling {
			problems = append(problems, fmt.Sprintf("tier_shifts[%s].block pushes block threshold past ceiling %d", tier, BlockFloorCeiling))
		}
	}
	switch c.AuditBackend {
	case AuditFile, AuditSQLite, AuditPostgres, AuditRedis, AuditWebhook:
	default:
		problems = append(problems, fmt.Sprintf("unknown audit_backend %q", c.AuditBackend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Println("[STARTUP] Configuration validated")
}

// MaxBytesFor returns the payload cap for a source class, falling back to
// the chat cap for unknown classes (the most restrictive default).
func (c *Config) MaxBytesFor(class SourceClass) int {
	if n, ok := c.MaxBytes[class]; ok && n > 0 {
		return n
	}
	return c.MaxBytes[SourceChat]
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
