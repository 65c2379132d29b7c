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

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Chain    ChainIdentity  `yaml:"chain"`   // identity of this ledger instance
	Vault    VaultSeed      `yaml:"vault"`   // first-boot vault parameters
	Tiers    []TierSeed     `yaml:"tiers"`   // first-boot tier table
	Peers    []PeerSeed     `yaml:"peers"`   // first-boot counterparty chain table
	Auth     AuthConfig     `yaml:"auth"`    // JWT signing configuration
	Admin    AdminConfig    `yaml:"admin"`   // Admin API access control configuration
	CORS     CORSConfig     `yaml:"cors"`    // CORS configuration
	Accrual  AccrualConfig  `yaml:"accrual"` // background accrual loop
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// ChainIdentity identifies which ledger instance this process serves.
type ChainIdentity struct {
	ChainID uint32 `yaml:"chainId"`
	Name    string `yaml:"name"`
}

// VaultSeed first-boot vault parameters. Only applied when the VaultParams
// row does not exist yet; afterwards the admin API is the write path.
type VaultSeed struct {
	KinkBps       uint32 `yaml:"kinkBps"`
	RateAtZeroBps uint32 `yaml:"rateAtZeroBps"`
	RateAtKinkBps uint32 `yaml:"rateAtKinkBps"`
	RateAtMaxBps  uint32 `yaml:"rateAtMaxBps"`

	MinDeposit  string `yaml:"minDeposit"`
	MaxDeposits string `yaml:"maxDeposits"`

	AccrualPeriodSeconds int64  `yaml:"accrualPeriodSeconds"`
	DailyAccrualCap      string `yaml:"dailyAccrualCap"`

	TargetRateBps uint32 `yaml:"targetRateBps"`
	FeeShareBps   uint32 `yaml:"feeShareBps"`
	FeeRecipient  string `yaml:"feeRecipient"`

	MinLockSeconds  int64  `yaml:"minLockSeconds"`
	MaxLockSeconds  int64  `yaml:"maxLockSeconds"`
	MaxLockBonusBps uint32 `yaml:"maxLockBonusBps"`
}

// TierSeed one row of the first-boot tier table.
type TierSeed struct {
	Threshold string `yaml:"threshold"`
	BonusBps  uint32 `yaml:"bonusBps"`
}

// PeerSeed one row of the first-boot counterparty chain table.
type PeerSeed struct {
	ChainID            uint32 `yaml:"chainId"`
	Name               string `yaml:"name"`
	Enabled            bool   `yaml:"enabled"`
	Allowlisted        bool   `yaml:"allowlisted"`
	MinTransfer        string `yaml:"minTransfer"`
	MaxTransfer        string `yaml:"maxTransfer"`
	BucketCapacity     string `yaml:"bucketCapacity"`
	BucketRefillPerSec string `yaml:"bucketRefillPerSec"`
}

// AuthConfig JWT signing configuration
type AuthConfig struct {
	JWTSecret     string `yaml:"jwtSecret"`
	TokenTTLHours int    `yaml:"tokenTtlHours"`
}

// AdminConfig Admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // List of allowed IP addresses or CIDR ranges
	TOTPSecret string   `yaml:"totpSecret"` // Base32 TOTP seed for admin login
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AccrualConfig background accrual loop configuration
type AccrualConfig struct {
	Enabled              bool `yaml:"enabled"`
	CheckIntervalSeconds int  `yaml:"checkIntervalSeconds"`
}

var AppConfig *Config

// LoadConfig Load configuration file
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	fmt.Printf("✅ [%s] Loading configuration from config file: %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)

	overrideFromEnv(&config)

	if err := validate(&config); err != nil {
		return err
	}

	fmt.Printf("📋 [Config] Chain identity: id=%d name=%s\n", config.Chain.ChainID, config.Chain.Name)
	if len(config.Admin.AllowedIPs) > 0 {
		fmt.Printf("📋 [Config] Admin IP whitelist loaded: %d IPs/CIDRs configured\n", len(config.Admin.AllowedIPs))
	} else {
		fmt.Printf("📋 [Config] Admin IP whitelist: not configured (localhost-only mode)\n")
	}
	if len(config.CORS.AllowedOrigins) > 0 {
		fmt.Printf("📋 [Config] CORS allowed origins loaded: %d origins configured\n", len(config.CORS.AllowedOrigins))
	} else {
		fmt.Printf("📋 [Config] CORS: not configured (will allow all origins *)\n")
	}
	fmt.Printf("📋 [Config] Counterparty chains seeded: %d\n", len(config.Peers))

	AppConfig = &config
	return nil
}

// overrideFromEnv Override configuration from environment variables
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseUint(chainID, 10, 32); err == nil {
			config.Chain.ChainID = uint32(id)
		}
	}
	if chainName := os.Getenv("CHAIN_NAME"); chainName != "" {
		config.Chain.Name = chainName
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.Auth.JWTSecret = jwtSecret
	}
	if totpSecret := os.Getenv("ADMIN_TOTP_SECRET"); totpSecret != "" {
		config.Admin.TOTPSecret = totpSecret
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// validate rejects configurations that would boot an unusable instance.
func validate(config *Config) error {
	if config.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chainId must be set and non-zero")
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret must be set (or JWT_SECRET env)")
	}
	if config.Auth.TokenTTLHours <= 0 {
		config.Auth.TokenTTLHours = 24
	}
	if config.Accrual.CheckIntervalSeconds <= 0 {
		config.Accrual.CheckIntervalSeconds = 60
	}
	return nil
}

// GetPeerByChainID looks up a seeded counterparty chain by id.
func GetPeerByChainID(chainID uint32) (*PeerSeed, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	for i := range AppConfig.Peers {
		if AppConfig.Peers[i].ChainID == chainID {
			return &AppConfig.Peers[i], nil
		}
	}
	return nil, fmt.Errorf("chain %d not found in config", chainID)
}
