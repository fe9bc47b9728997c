// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. Every lifetime is a time.Duration;
// persisted rows store absolute expiry instants, never relative strings.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret     string        // process-wide signing secret for access credentials
	AccessTTL     time.Duration // access credential lifetime
	RenewalTTL    time.Duration // renewal credential lifetime
	RecoveryTTL   time.Duration // recovery token lifetime (short window)
	SweepInterval time.Duration // cadence of the expired-row purge
	BcryptCost    int           // bcrypt cost for password hashing
}

// Load reads the environment. Missing required variables are fatal; optional
// ones fall back to defaults sensible for development.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTL:     envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RenewalTTL:    envDur("RENEWAL_TOKEN_TTL", 7*24*time.Hour),
		RecoveryTTL:   envDur("RECOVERY_TOKEN_TTL", time.Hour),
		SweepInterval: envDur("CREDENTIAL_SWEEP_INTERVAL", time.Hour),
		BcryptCost:    envInt("BCRYPT_COST", 12),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	log.Fatalf("invalid duration for %s: %q", k, v)
	return d
}
