// Package config centralises configuration parsing for the fitness event generator.
package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration values for the generator.
// It is built once at startup and passed by value.
type Config struct {
	DBHost           string
	DBPort           int
	DBName           string
	DBUser           string
	DBPassword       string
	DBSSLMode        string
	DBConnectTimeout time.Duration
	DBRetryInterval  time.Duration // Flat wait between connection attempts.
	DBEnsureSchema   bool
	TickInterval     time.Duration
	Seed             uint64 // Zero selects a clock-derived seed.
	UserIDs          []int
	MetricsAddress   string // Empty disables the metrics endpoint.
	KafkaBrokers     []string
	KafkaTopic       string
}

// LookupFunc resolves an environment key, matching os.LookupEnv.
type LookupFunc func(string) (string, bool)

// Load reads an optional .env file and then the process environment, applying defaults for local dev.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from the supplied lookup function.
func FromLookup(lookup LookupFunc) Config {
	env := source{lookup: lookup}
	return Config{
		DBHost:           env.getString("DB_HOST", "localhost"),
		DBPort:           env.getInt("DB_PORT", 5432),
		DBName:           env.getString("DB_NAME", "fitness_db"),
		DBUser:           env.getString("DB_USER", "fitness"),
		DBPassword:       env.getString("DB_PASSWORD", "fitness123"),
		DBSSLMode:        env.getString("DB_SSLMODE", "prefer"),
		DBConnectTimeout: env.getDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		DBRetryInterval:  env.getDuration("DB_RETRY_INTERVAL", 2*time.Second),
		DBEnsureSchema:   env.getBool("DB_ENSURE_SCHEMA", false),
		TickInterval:     env.getDuration("GENERATOR_INTERVAL", time.Second),
		Seed:             env.getUint("GENERATOR_SEED", 0),
		UserIDs:          env.getInts("GENERATOR_USER_IDS", []int{1, 2, 3, 4, 5}),
		MetricsAddress:   env.getString("METRICS_ADDRESS", ""),
		KafkaBrokers:     splitAndTrim(env.getString("KAFKA_BROKERS", "")),
		KafkaTopic:       env.getString("KAFKA_TOPIC", "fitness_events"),
	}
}

// PostgresURL renders the connection string for pgx.
func (c Config) PostgresURL() string {
	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	if c.DBConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.DBConnectTimeout.Round(time.Second)/time.Second)))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Target is the credential-free host:port/db form used in log lines.
func (c Config) Target() string {
	return net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)) + "/" + c.DBName
}

// KafkaEnabled reports whether generated events should also be streamed.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

type source struct {
	lookup LookupFunc
}

func (s source) getString(key, fallback string) string {
	if value, ok := s.lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func (s source) getInt(key string, fallback int) int {
	if value, ok := s.lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func (s source) getUint(key string, fallback uint64) uint64 {
	if value, ok := s.lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func (s source) getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := s.lookup(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func (s source) getBool(key string, fallback bool) bool {
	value, ok := s.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getInts parses a comma separated id list; any malformed entry discards the whole value.
func (s source) getInts(key string, fallback []int) []int {
	value, ok := s.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	parts := splitAndTrim(value)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		parsed, err := strconv.Atoi(part)
		if err != nil {
			return fallback
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
