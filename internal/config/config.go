package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// WALLETS_MONITOR_POSTGRES_DSN for postgres.dsn.
const EnvPrefix = "WALLETS_MONITOR"

// Config represents the application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	ClickHouse  ClickHouseConfig  `mapstructure:"clickhouse"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Helius      HeliusConfig      `mapstructure:"helius"`
	Shyft       ShyftConfig       `mapstructure:"shyft"`
	Solana      SolanaConfig      `mapstructure:"solana"`
	DexScreener DexScreenerConfig `mapstructure:"dexscreener"`
	SolPrice    SolPriceConfig    `mapstructure:"solprice"`
	Oracle      OracleConfig      `mapstructure:"oracle"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
	Cohort      CohortConfig      `mapstructure:"cohort"`
	Filter      FilterConfig      `mapstructure:"filter"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Twitter     TwitterConfig     `mapstructure:"twitter"`
}

// AppConfig represents process-wide settings.
type AppConfig struct {
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`
}

// HTTPConfig configures the webhook listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	// AllowUnauthenticated accepts webhook deliveries without an auth header.
	// Local development only.
	AllowUnauthenticated bool `mapstructure:"allow_unauthenticated"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	UseMemory bool `mapstructure:"use_memory"`
}

// PostgresConfig configures the primary store.
type PostgresConfig struct {
	DSN           string `mapstructure:"dsn"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

// ClickHouseConfig configures the signal archive. Empty DSN disables it.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig configures the shared trigger coalescer. Empty Addr selects the
// in-process coalescer.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NATSConfig configures the signal publisher. Disabled by default.
type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

// HeliusConfig holds the webhook credentials. An empty AuthHeader defaults to
// "Bearer <APIKey>".
type HeliusConfig struct {
	APIKey     string `mapstructure:"api_key"`
	AuthHeader string `mapstructure:"auth_header"`
	APIBaseURL string `mapstructure:"api_base_url"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// ShyftConfig configures the pull-style parser client.
type ShyftConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Network    string        `mapstructure:"network"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// SolanaConfig configures the JSON-RPC client.
type SolanaConfig struct {
	RPCEndpoint string        `mapstructure:"rpc_endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// DexScreenerConfig configures the market data client.
type DexScreenerConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// SolPriceConfig configures the SOL/USD price cache.
type SolPriceConfig struct {
	StreamURL       string        `mapstructure:"stream_url"`
	StreamEnabled   bool          `mapstructure:"stream_enabled"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
}

// OracleConfig bounds every price and supply lookup.
type OracleConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// CohortConfig tunes the detector.
type CohortConfig struct {
	Lookback        time.Duration `mapstructure:"lookback"`
	DebounceWindow  time.Duration `mapstructure:"debounce_window"`
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
	ReconnectMin    time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax    time.Duration `mapstructure:"reconnect_max"`
}

// FilterConfig gates analysis on market data. Disabled keeps every trigger.
type FilterConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxPairAge   time.Duration `mapstructure:"max_pair_age"`
	MinMarketCap float64       `mapstructure:"min_market_cap"`
}

// TelegramConfig configures the Telegram sink. Empty token disables it.
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TwitterConfig configures the social digest posted as a reply to Telegram
// alerts. It needs both an API key and the Telegram sink.
type TwitterConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Host       string        `mapstructure:"host"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	MaxTweets  int           `mapstructure:"max_tweets"`
}

// Load reads configuration from an optional YAML file, environment variables
// and defaults, in that order of precedence (env wins over file).
// An empty path searches ./config.yaml and ./config/config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Helius.AuthHeader == "" && cfg.Helius.APIKey != "" {
		cfg.Helius.AuthHeader = "Bearer " + cfg.Helius.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	if !c.Storage.UseMemory && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required unless storage.use_memory is set"))
	}
	if c.Cohort.Lookback <= 0 {
		errs = append(errs, errors.New("cohort.lookback must be positive"))
	}
	if c.Cohort.Workers <= 0 {
		errs = append(errs, errors.New("cohort.workers must be positive"))
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, errors.New("oracle.timeout must be positive"))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats.enabled is set"))
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		errs = append(errs, errors.New("telegram.chat_id is required with telegram.bot_token"))
	}
	if c.Helius.AuthHeader == "" && !c.HTTP.AllowUnauthenticated {
		errs = append(errs, errors.New("helius.auth_header or helius.api_key is required unless http.allow_unauthenticated is set"))
	}
	if c.Twitter.Enabled && c.Twitter.APIKey == "" {
		errs = append(errs, errors.New("twitter.api_key is required when twitter.enabled is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_encoding", "json")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.allow_unauthenticated", false)

	v.SetDefault("storage.use_memory", false)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.run_migrations", true)

	v.SetDefault("clickhouse.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "wallets-monitor:cohort:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "wallets")
	v.SetDefault("nats.connect_timeout", "10s")
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.max_reconnects", 60)

	v.SetDefault("helius.api_key", "")
	v.SetDefault("helius.auth_header", "")
	v.SetDefault("helius.api_base_url", "https://api.helius.xyz")
	v.SetDefault("helius.webhook_url", "")

	v.SetDefault("shyft.api_key", "")
	v.SetDefault("shyft.base_url", "https://api.shyft.to/sol/v1")
	v.SetDefault("shyft.network", "mainnet-beta")
	v.SetDefault("shyft.timeout", "10s")
	v.SetDefault("shyft.max_retries", 3)

	v.SetDefault("solana.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.timeout", "10s")
	v.SetDefault("solana.max_retries", 3)

	v.SetDefault("dexscreener.base_url", "https://api.dexscreener.com")
	v.SetDefault("dexscreener.timeout", "10s")
	v.SetDefault("dexscreener.max_retries", 3)

	v.SetDefault("solprice.stream_url", "wss://stream.binance.com:9443/ws/solusdt@trade")
	v.SetDefault("solprice.stream_enabled", true)
	v.SetDefault("solprice.refresh_schedule", "*/30 * * * * *")
	v.SetDefault("solprice.stale_after", "1m")

	v.SetDefault("oracle.timeout", "5s")

	v.SetDefault("ingest.store_timeout", "5s")

	v.SetDefault("cohort.lookback", "6h")
	v.SetDefault("cohort.debounce_window", "1m")
	v.SetDefault("cohort.workers", 4)
	v.SetDefault("cohort.queue_size", 256)
	v.SetDefault("cohort.query_timeout", "5s")
	v.SetDefault("cohort.analysis_timeout", "2m")
	v.SetDefault("cohort.reconnect_min", "500ms")
	v.SetDefault("cohort.reconnect_max", "30s")

	v.SetDefault("filter.enabled", true)
	v.SetDefault("filter.max_pair_age", "168h")
	v.SetDefault("filter.min_market_cap", 100000)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("twitter.enabled", false)
	v.SetDefault("twitter.api_key", "")
	v.SetDefault("twitter.base_url", "https://twitter-api45.p.rapidapi.com")
	v.SetDefault("twitter.host", "twitter-api45.p.rapidapi.com")
	v.SetDefault("twitter.timeout", "10s")
	v.SetDefault("twitter.max_retries", 3)
	v.SetDefault("twitter.max_tweets", 3)
}
