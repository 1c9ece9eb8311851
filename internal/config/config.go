package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	IPFSAPIAddr    string
	IPFSGatewayURL string

	LedgerBackend string

	ConsensusAPIURL     string
	ConsensusTopicID    string
	ConsensusTokenID    string
	ConsensusOperatorID string

	RegistryRPCURL       string
	RegistryContractAddr string
	RegistrySignerAddr   string

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	PolicyModulePath string

	CacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AdminAPIKey string
}

const (
	BackendConsensus = "consensus"
	BackendRegistry  = "registry"
)

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:             addr,
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		LogLevel:             envDefault("LOG_LEVEL", "info"),
		IPFSAPIAddr:          os.Getenv("IPFS_API_ADDR"),
		IPFSGatewayURL:       envDefault("IPFS_GATEWAY_URL", "https://ipfs.io"),
		LedgerBackend:        envDefault("LEDGER_BACKEND", BackendConsensus),
		ConsensusAPIURL:      os.Getenv("CONSENSUS_API_URL"),
		ConsensusTopicID:     os.Getenv("CONSENSUS_TOPIC_ID"),
		ConsensusTokenID:     os.Getenv("CONSENSUS_TOKEN_ID"),
		ConsensusOperatorID:  os.Getenv("CONSENSUS_OPERATOR_ID"),
		RegistryRPCURL:       os.Getenv("REGISTRY_RPC_URL"),
		RegistryContractAddr: os.Getenv("REGISTRY_CONTRACT_ADDRESS"),
		RegistrySignerAddr:   os.Getenv("REGISTRY_SIGNER_ADDRESS"),
		RetryMaxAttempts:     envIntDefault("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:       time.Duration(envIntDefault("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		RetryMaxDelay:        time.Duration(envIntDefault("RETRY_MAX_DELAY_MS", 10000)) * time.Millisecond,
		PolicyModulePath:     os.Getenv("POLICY_MODULE_PATH"),
		CacheTTL:             time.Duration(envIntDefault("CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envIntDefault("REDIS_DB", 0),
		AdminAPIKey:          os.Getenv("ADMIN_API_KEY"),
	}
}

// LedgerConfigured reports whether the selected backend has enough
// configuration to even attempt a live connection.
func (c Config) LedgerConfigured() bool {
	switch c.LedgerBackend {
	case BackendRegistry:
		return c.RegistryRPCURL != "" && c.RegistryContractAddr != "" && c.RegistrySignerAddr != ""
	default:
		return c.ConsensusAPIURL != "" && c.ConsensusTopicID != "" && c.ConsensusTokenID != ""
	}
}

func (c Config) StorageConfigured() bool {
	return c.IPFSAPIAddr != ""
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
