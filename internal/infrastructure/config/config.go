package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment  string             `mapstructure:"environment"`
	LogLevel     string             `mapstructure:"log_level"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Blockchain   BlockchainConfig   `mapstructure:"blockchain"`
	Verification VerificationConfig `mapstructure:"verification"`
	Rates        RatesConfig        `mapstructure:"rates"`
	Plans        PlansConfig        `mapstructure:"plans"`
	Email        EmailConfig        `mapstructure:"email"`
	Workers      WorkerConfig       `mapstructure:"workers"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	AccessTTL  int    `mapstructure:"access_token_ttl"`
	RefreshTTL int    `mapstructure:"refresh_token_ttl"`
	Issuer     string `mapstructure:"issuer"`
}

// BlockchainConfig holds per-network oracle configuration
type BlockchainConfig struct {
	Bitcoin  BitcoinConfig  `mapstructure:"bitcoin"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
}

type BitcoinConfig struct {
	RPCHost          string `mapstructure:"rpc_host"`
	RPCUser          string `mapstructure:"rpc_user"`
	RPCPassword      string `mapstructure:"rpc_password"`
	MinConfirmations int64  `mapstructure:"min_confirmations"`
	Testnet          bool   `mapstructure:"testnet"`
}

type EthereumConfig struct {
	RPCURL           string `mapstructure:"rpc_url"`
	USDTAddress      string `mapstructure:"usdt_address"`
	USDTDecimals     int32  `mapstructure:"usdt_decimals"`
	LookbackBlocks   uint64 `mapstructure:"lookback_blocks"`
	MinConfirmations uint64 `mapstructure:"min_confirmations"`
}

// VerificationConfig controls intent tracking timing
type VerificationConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	DeadlineMinutes     int `mapstructure:"deadline_minutes"`
	ReapIntervalMinutes int `mapstructure:"reap_interval_minutes"`
}

// RatesConfig holds static USD conversion rates for portfolio valuation
type RatesConfig struct {
	BTCUSD  string `mapstructure:"btc_usd"`
	USDTUSD string `mapstructure:"usdt_usd"`
}

// BTCUSDRate parses the configured BTC/USD rate
func (r RatesConfig) BTCUSDRate() (decimal.Decimal, error) {
	return decimal.NewFromString(r.BTCUSD)
}

// USDTUSDRate parses the configured USDT/USD rate
func (r RatesConfig) USDTUSDRate() (decimal.Decimal, error) {
	return decimal.NewFromString(r.USDTUSD)
}

// PlanConfig defines a single investment plan
type PlanConfig struct {
	Name         string  `mapstructure:"name"`
	ROIPercent   float64 `mapstructure:"roi_percent"`
	DurationDays int     `mapstructure:"duration_days"`
	MinAmountUSD float64 `mapstructure:"min_amount_usd"`
	MaxAmountUSD float64 `mapstructure:"max_amount_usd"`
}

// PlansConfig holds the investment plan catalog
type PlansConfig struct {
	Catalog []PlanConfig `mapstructure:"catalog"`
}

type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	FromEmail   string `mapstructure:"from_email"`
	FromName    string `mapstructure:"from_name"`
	OpsEmail    string `mapstructure:"ops_email"`
	Environment string `mapstructure:"environment"`
}

// WorkerConfig contains background worker configuration
type WorkerConfig struct {
	SweepCronSpec    string `mapstructure:"sweep_cron_spec"`
	SweepConcurrency int    `mapstructure:"sweep_concurrency"`
	SnapshotHistory  int    `mapstructure:"snapshot_history_days"`
	JobTimeout       int    `mapstructure:"job_timeout"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Insecure     bool    `mapstructure:"insecure"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "chainvest_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.max_idle_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", 3600)
	viper.SetDefault("database.query_timeout", 30)
	viper.SetDefault("database.max_retries", 3)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 900)
	viper.SetDefault("jwt.refresh_token_ttl", 604800)
	viper.SetDefault("jwt.issuer", "chainvest_service")

	// Blockchain defaults
	viper.SetDefault("blockchain.bitcoin.rpc_host", "localhost:8332")
	viper.SetDefault("blockchain.bitcoin.min_confirmations", 1)
	viper.SetDefault("blockchain.bitcoin.testnet", false)
	viper.SetDefault("blockchain.ethereum.usdt_address", "0xdAC17F958D2ee523a2206206994597C13D831ec7")
	viper.SetDefault("blockchain.ethereum.usdt_decimals", 6)
	viper.SetDefault("blockchain.ethereum.lookback_blocks", 10000)
	viper.SetDefault("blockchain.ethereum.min_confirmations", 6)

	// Verification defaults
	viper.SetDefault("verification.poll_interval_seconds", 30)
	viper.SetDefault("verification.deadline_minutes", 30)
	viper.SetDefault("verification.reap_interval_minutes", 5)

	// Rates defaults (static valuation rates, overridable per deployment)
	viper.SetDefault("rates.btc_usd", "65000")
	viper.SetDefault("rates.usdt_usd", "1")

	// Plan catalog defaults
	viper.SetDefault("plans.catalog", []map[string]interface{}{
		{"name": "starter", "roi_percent": 12, "duration_days": 30, "min_amount_usd": 100, "max_amount_usd": 5000},
		{"name": "growth", "roi_percent": 25, "duration_days": 90, "min_amount_usd": 1000, "max_amount_usd": 50000},
		{"name": "premium", "roi_percent": 60, "duration_days": 180, "min_amount_usd": 10000, "max_amount_usd": 500000},
	})

	// Email defaults
	viper.SetDefault("email.provider", "")
	viper.SetDefault("email.from_email", "no-reply@chainvest.io")
	viper.SetDefault("email.from_name", "ChainVest")
	viper.SetDefault("email.ops_email", "")
	viper.SetDefault("email.environment", "development")

	// Worker defaults
	viper.SetDefault("workers.sweep_cron_spec", "0 * * * *")
	viper.SetDefault("workers.sweep_concurrency", 8)
	viper.SetDefault("workers.snapshot_history_days", 30)
	viper.SetDefault("workers.job_timeout", 300)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collector_url", "localhost:4317")
	viper.SetDefault("tracing.sample_rate", 0.1)
	viper.SetDefault("tracing.insecure", true)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("redis.host", redisHost)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}

	// Bitcoin node
	if btcHost := os.Getenv("BTC_RPC_HOST"); btcHost != "" {
		viper.Set("blockchain.bitcoin.rpc_host", btcHost)
	}
	if btcUser := os.Getenv("BTC_RPC_USER"); btcUser != "" {
		viper.Set("blockchain.bitcoin.rpc_user", btcUser)
	}
	if btcPass := os.Getenv("BTC_RPC_PASSWORD"); btcPass != "" {
		viper.Set("blockchain.bitcoin.rpc_password", btcPass)
	}

	// Ethereum node
	if ethRPC := os.Getenv("ETH_RPC_URL"); ethRPC != "" {
		viper.Set("blockchain.ethereum.rpc_url", ethRPC)
	}
	if usdtAddr := os.Getenv("USDT_CONTRACT_ADDRESS"); usdtAddr != "" {
		viper.Set("blockchain.ethereum.usdt_address", usdtAddr)
	}

	// Valuation rates
	if btcUSD := os.Getenv("RATE_BTC_USD"); btcUSD != "" {
		viper.Set("rates.btc_usd", btcUSD)
	}
	if usdtUSD := os.Getenv("RATE_USDT_USD"); usdtUSD != "" {
		viper.Set("rates.usdt_usd", usdtUSD)
	}

	// Email
	if emailAPIKey := os.Getenv("EMAIL_API_KEY"); emailAPIKey != "" {
		viper.Set("email.api_key", emailAPIKey)
	}
	if sendgridKey := os.Getenv("SENDGRID_API_KEY"); sendgridKey != "" {
		viper.Set("email.api_key", sendgridKey)
		viper.Set("email.provider", "sendgrid")
	}

	// Tracing
	if otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); otlpEndpoint != "" {
		viper.Set("tracing.collector_url", otlpEndpoint)
		viper.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Verification.PollIntervalSeconds <= 0 {
		return fmt.Errorf("verification poll interval must be positive")
	}
	if config.Verification.DeadlineMinutes <= 0 {
		return fmt.Errorf("verification deadline must be positive")
	}

	if _, err := config.Rates.BTCUSDRate(); err != nil {
		return fmt.Errorf("invalid BTC/USD rate: %w", err)
	}
	if _, err := config.Rates.USDTUSDRate(); err != nil {
		return fmt.Errorf("invalid USDT/USD rate: %w", err)
	}

	if len(config.Plans.Catalog) == 0 {
		return fmt.Errorf("investment plan catalog is required")
	}
	for _, plan := range config.Plans.Catalog {
		if plan.Name == "" {
			return fmt.Errorf("investment plan missing name")
		}
		if plan.DurationDays <= 0 {
			return fmt.Errorf("investment plan %s has non-positive duration", plan.Name)
		}
		if plan.ROIPercent < 0 {
			return fmt.Errorf("investment plan %s has negative ROI", plan.Name)
		}
	}

	return nil
}
