package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Audit sinks.
const (
	AuditSinkNone     = "none"
	AuditSinkMemory   = "memory"
	AuditSinkKafka    = "kafka"
	AuditSinkPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Store     StoreConfig
	Redis     RedisConfig
	Audit     AuditConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// VerifierJWTSecret enables bearer-token checks on project verification when set.
	VerifierJWTSecret   string
	VerifierJWTIssuer   string
	VerifierJWTAudience string
	// AdminToken enables the /admin endpoints when set.
	AdminToken string
}

type StoreConfig struct {
	Driver      string
	Namespace   string
	SQLitePath  string
	PostgresDSN string
	TxTimeout   time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuditConfig struct {
	Sink         string
	BufferSize   int
	KafkaBrokers []string
	KafkaTopic   string
}

// ReconcileConfig schedules the aggregate reconciliation job. A zero Interval disables it.
type ReconcileConfig struct {
	Interval time.Duration
	// Timeout bounds one reconcile scan.
	Timeout    time.Duration
	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the configuration from environment variables, after loading
// an optional dotenv file (ENV_FILE, default ".env"). Variables already set in
// the environment win over the file.
func FromEnv() (Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var p parser
	cfg := Config{
		Server: Server{
			Addr:                getEnv("REGISTRY_ADDR", ":8080"),
			ShutdownTimeout:     p.duration("REGISTRY_SHUTDOWN_TIMEOUT", 15*time.Second),
			VerifierJWTSecret:   os.Getenv("REGISTRY_VERIFIER_JWT_SECRET"),
			VerifierJWTIssuer:   getEnv("REGISTRY_VERIFIER_JWT_ISSUER", "charity"),
			VerifierJWTAudience: getEnv("REGISTRY_VERIFIER_JWT_AUDIENCE", "charity-verifiers"),
			AdminToken:          os.Getenv("REGISTRY_ADMIN_TOKEN"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("REGISTRY_STORE", DriverMemory)),
			Namespace:   getEnv("REGISTRY_NAMESPACE", "charity"),
			SQLitePath:  getEnv("REGISTRY_SQLITE_PATH", "data/charity.db"),
			PostgresDSN: os.Getenv("REGISTRY_POSTGRES_DSN"),
			TxTimeout:   p.duration("REGISTRY_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			Sink:         strings.ToLower(getEnv("AUDIT_SINK", AuditSinkMemory)),
			BufferSize:   p.int("AUDIT_BUFFER_SIZE", 1024),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   getEnv("AUDIT_KAFKA_TOPIC", "charity.audit"),
		},
		Reconcile: ReconcileConfig{
			Interval:   p.duration("RECONCILE_INTERVAL", 0),
			Timeout:    p.duration("RECONCILE_TIMEOUT", 2*time.Minute),
			S3Bucket:   os.Getenv("RECONCILE_S3_BUCKET"),
			S3Prefix:   getEnv("RECONCILE_S3_PREFIX", "reconcile"),
			S3Endpoint: os.Getenv("RECONCILE_S3_ENDPOINT"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected drivers have what they need.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("REGISTRY_POSTGRES_DSN is required for the postgres store")
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown REGISTRY_STORE %q", c.Store.Driver)
	}

	switch c.Audit.Sink {
	case AuditSinkNone, AuditSinkMemory:
	case AuditSinkKafka:
		if len(c.Audit.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka audit sink")
		}
	case AuditSinkPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("REGISTRY_POSTGRES_DSN is required for the postgres audit sink")
		}
	default:
		return fmt.Errorf("unknown AUDIT_SINK %q", c.Audit.Sink)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
