// Package config provides a minimal environment-backed configuration
// loader used by the daemon's bootstrap (cmd/auditstreamd/main.go).
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the runtime configuration values main.go needs to wire
// the vault, credential gateway, stores, immutable storage, and event
// bus together.
type Config struct {
	ListenAddr string // LISTEN_ADDR (default :8080)

	VaultKeyID        string // VAULT_KEY_ID
	AssertionMethodID string // ASSERTION_METHOD_ID

	DefaultImmutableInterval int // DEFAULT_IMMUTABLE_INTERVAL

	RequireKMS  bool   // REQUIRE_KMS
	KMSEndpoint string // KMS_ENDPOINT
	KMSBearerToken string // KMS_BEARER_TOKEN

	DatabaseURL string // DATABASE_URL

	ImmutableBucket string // IMMUTABLE_BUCKET
	ImmutablePrefix string // IMMUTABLE_PREFIX
	ImmutableDir    string // IMMUTABLE_DIR (local-file fallback)

	KafkaBrokers []string // KAFKA_BROKERS (comma separated)
	KafkaTopic   string   // KAFKA_TOPIC

	TLSCertPath string // TLS_CERT_PATH
	TLSKeyPath  string // TLS_KEY_PATH
	TLSCAPath   string // TLS_CLIENT_CA_PATH
}

// LoadFromEnv reads config values from environment variables and
// returns a populated Config.
func LoadFromEnv() *Config {
	cfg := &Config{
		ListenAddr: os.Getenv("LISTEN_ADDR"),

		VaultKeyID:        os.Getenv("VAULT_KEY_ID"),
		AssertionMethodID: os.Getenv("ASSERTION_METHOD_ID"),

		KMSEndpoint:    os.Getenv("KMS_ENDPOINT"),
		KMSBearerToken: os.Getenv("KMS_BEARER_TOKEN"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		ImmutableBucket: os.Getenv("IMMUTABLE_BUCKET"),
		ImmutablePrefix: os.Getenv("IMMUTABLE_PREFIX"),
		ImmutableDir:    os.Getenv("IMMUTABLE_DIR"),

		KafkaTopic: os.Getenv("KAFKA_TOPIC"),

		TLSCertPath: os.Getenv("TLS_CERT_PATH"),
		TLSKeyPath:  os.Getenv("TLS_KEY_PATH"),
		TLSCAPath:   os.Getenv("TLS_CLIENT_CA_PATH"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.VaultKeyID == "" {
		cfg.VaultKeyID = "auditable-item-stream"
	}
	if cfg.AssertionMethodID == "" {
		cfg.AssertionMethodID = "auditable-item-stream"
	}
	if cfg.ImmutableDir == "" {
		cfg.ImmutableDir = "./data/immutable"
	}

	cfg.DefaultImmutableInterval = 10
	if v := os.Getenv("DEFAULT_IMMUTABLE_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultImmutableInterval = n
		}
	}

	if v := os.Getenv("REQUIRE_KMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RequireKMS = b
		}
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}
