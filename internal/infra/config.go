package infra

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Draft store backends.
const (
	DraftStoreFile     = "file"
	DraftStorePostgres = "postgres"
	DraftStoreRedis    = "redis"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	JWTSecret        string
	GeoIPDBPath      string
	DefaultLocale    string
	CORSOrigins      []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	LedgerRPCURL          string
	LedgerChainID         uint64
	LedgerContractAddress string
	LedgerDeadlineUnit    string
	LedgerNetworks        map[uint64]string
	LedgerTxTimeout       time.Duration

	WalletPrivateKey   string
	WalletKeystorePath string
	WalletPassphrase   string

	DraftStore            string
	DraftDir              string
	DraftAutosaveInterval time.Duration
	DatabaseURL           string
	RedisURL              string

	ProfileViewsMax int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LedgerRPCURL:          getEnv("LEDGER_RPC_URL", "https://rpc.sepolia.org"),
		LedgerContractAddress: strings.TrimSpace(os.Getenv("LEDGER_CONTRACT_ADDRESS")),
		LedgerDeadlineUnit:    getEnv("LEDGER_DEADLINE_UNIT", "ms"),
		LedgerTxTimeout:       time.Second * time.Duration(getEnvInt("LEDGER_TX_TIMEOUT_SECONDS", 0)),

		WalletPrivateKey:   strings.TrimSpace(os.Getenv("WALLET_PRIVATE_KEY")),
		WalletKeystorePath: strings.TrimSpace(os.Getenv("WALLET_KEYSTORE_PATH")),
		WalletPassphrase:   os.Getenv("WALLET_PASSPHRASE"),

		DraftStore:            strings.ToLower(getEnv("DRAFT_STORE", DraftStoreFile)),
		DraftDir:              getEnv("DRAFT_DIR", "./data/drafts"),
		DraftAutosaveInterval: time.Second * time.Duration(getEnvInt("DRAFT_AUTOSAVE_INTERVAL_SECONDS", 30)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),

		ProfileViewsMax: getEnvInt("PROFILE_VIEWS_MAX", 256),
	}

	chainID, err := strconv.ParseUint(getEnv("LEDGER_CHAIN_ID", "11155111"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_CHAIN_ID: %w", err)
	}
	cfg.LedgerChainID = chainID

	networks, err := parseNetworks(os.Getenv("LEDGER_NETWORKS"))
	if err != nil {
		return nil, err
	}
	cfg.LedgerNetworks = networks

	switch cfg.DraftStore {
	case DraftStoreFile:
	case DraftStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DRAFT_STORE=postgres")
		}
	case DraftStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when DRAFT_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("DRAFT_STORE must be one of file, postgres, redis (got %q)", cfg.DraftStore)
	}

	if cfg.DraftAutosaveInterval <= 0 {
		cfg.DraftAutosaveInterval = 30 * time.Second
	}

	return cfg, nil
}

// MutationsEnabled reports whether mutating routes can authenticate callers.
func (c *Config) MutationsEnabled() bool {
	return c != nil && c.JWTSecret != ""
}

// parseNetworks reads "chainID=url" pairs separated by commas.
func parseNetworks(raw string) (map[uint64]string, error) {
	out := map[uint64]string{}
	for _, item := range splitList(raw) {
		id, url, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("LEDGER_NETWORKS: entry %q must be chainID=url", item)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("LEDGER_NETWORKS: chain id %q: %w", id, err)
		}
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("LEDGER_NETWORKS: empty url for chain %d", chainID)
		}
		out[chainID] = url
	}
	return out, nil
}

func splitList(raw string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	sort.Strings(out)
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
