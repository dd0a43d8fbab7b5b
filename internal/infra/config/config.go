package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Strategy names accepted by tracker.strategy.
const (
	StrategyScan      = "scan"
	StrategyReconcile = "reconcile"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Etherscan EtherscanConfig `mapstructure:"etherscan"`
	Bitquery  BitqueryConfig  `mapstructure:"bitquery"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	App       AppConfig       `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

type EtherscanConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds
}

type BitqueryConfig struct {
	APIKey         string `mapstructure:"api_key"`
	URL            string `mapstructure:"url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds
}

type TrackerConfig struct {
	Strategy        string `mapstructure:"strategy"`          // "scan" or "reconcile"
	CycleInterval   int    `mapstructure:"cycle_interval"`    // seconds between sweeps
	WalletDelay     int    `mapstructure:"wallet_delay"`      // seconds between wallets
	DeliveryDelayMs int    `mapstructure:"delivery_delay_ms"` // ms between notifications
	ErrorDelay      int    `mapstructure:"error_delay"`       // seconds after a failed sweep
}

type AppConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoadConfig merges, lowest priority first: defaults, config.yaml, .env
// file, environment, command-line flags.
func LoadConfig() (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig() // optional file, error ignored

	v.AutomaticEnv()
	setupEnvAliases(v)
	setupFlags(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setupEnvAliases(v *viper.Viper) {
	// Variable names mirror the historical deployment (.env) layout.
	v.BindEnv("telegram.bot_token", "BOT_TOKEN")
	v.BindEnv("etherscan.api_key", "ETHERSCAN_API_KEY")
	v.BindEnv("etherscan.base_url", "ETHERSCAN_BASE_URL")
	v.BindEnv("bitquery.api_key", "BITQUERY_API_KEY")
	v.BindEnv("bitquery.url", "BITQUERY_URL")
	v.BindEnv("tracker.strategy", "TRACKER_STRATEGY")
	v.BindEnv("tracker.cycle_interval", "TRACKER_CYCLE_INTERVAL")
	v.BindEnv("tracker.wallet_delay", "TRACKER_WALLET_DELAY")
	v.BindEnv("tracker.delivery_delay_ms", "TRACKER_DELIVERY_DELAY_MS")
	v.BindEnv("tracker.error_delay", "TRACKER_ERROR_DELAY")
	v.BindEnv("app.db_path", "DB_PATH")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")

	v.SetDefault("etherscan.api_key", "")
	v.SetDefault("etherscan.base_url", "https://api.etherscan.io/api")
	v.SetDefault("etherscan.request_timeout", 30)

	v.SetDefault("bitquery.api_key", "")
	v.SetDefault("bitquery.url", "https://graphql.bitquery.io/")
	v.SetDefault("bitquery.request_timeout", 30)

	v.SetDefault("tracker.strategy", StrategyScan)
	v.SetDefault("tracker.cycle_interval", 5)
	v.SetDefault("tracker.wallet_delay", 2)
	v.SetDefault("tracker.delivery_delay_ms", 500)
	v.SetDefault("tracker.error_delay", 2)

	v.SetDefault("app.db_path", "wallets.db")
}

func setupFlags(v *viper.Viper) {
	if pflag.Lookup("tracker.strategy") == nil {
		pflag.String("telegram.bot_token", "", "Telegram bot token (env: BOT_TOKEN)")
		pflag.String("etherscan.api_key", "", "Etherscan API key (env: ETHERSCAN_API_KEY)")
		pflag.String("etherscan.base_url", "https://api.etherscan.io/api", "Etherscan API base URL (env: ETHERSCAN_BASE_URL)")
		pflag.Int("etherscan.request_timeout", 30, "Etherscan request timeout in seconds")
		pflag.String("bitquery.api_key", "", "Bitquery API key (env: BITQUERY_API_KEY)")
		pflag.String("bitquery.url", "https://graphql.bitquery.io/", "Bitquery GraphQL endpoint (env: BITQUERY_URL)")
		pflag.Int("bitquery.request_timeout", 30, "Bitquery request timeout in seconds")
		pflag.String("tracker.strategy", StrategyScan, "Fetch strategy: scan or reconcile (env: TRACKER_STRATEGY)")
		pflag.Int("tracker.cycle_interval", 5, "Seconds to sleep between sweeps (env: TRACKER_CYCLE_INTERVAL)")
		pflag.Int("tracker.wallet_delay", 2, "Seconds to pause between wallets (env: TRACKER_WALLET_DELAY)")
		pflag.Int("tracker.delivery_delay_ms", 500, "Milliseconds to pause between notifications (env: TRACKER_DELIVERY_DELAY_MS)")
		pflag.Int("tracker.error_delay", 2, "Seconds to pause after a failed sweep (env: TRACKER_ERROR_DELAY)")
		pflag.String("app.db_path", "wallets.db", "Path to the sqlite wallet database (env: DB_PATH)")
	}
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)
}

func validateConfig(cfg *Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (BOT_TOKEN)")
	}

	switch cfg.Tracker.Strategy {
	case StrategyScan:
		if cfg.Etherscan.APIKey == "" {
			return fmt.Errorf("etherscan.api_key is required for the scan strategy (ETHERSCAN_API_KEY)")
		}
		if cfg.Bitquery.APIKey == "" {
			return fmt.Errorf("bitquery.api_key is required for the scan strategy fee lookups (BITQUERY_API_KEY)")
		}
	case StrategyReconcile:
		if cfg.Bitquery.APIKey == "" {
			return fmt.Errorf("bitquery.api_key is required for the reconcile strategy (BITQUERY_API_KEY)")
		}
		if cfg.Etherscan.APIKey == "" {
			// Head lookup and address validation still go through the explorer.
			return fmt.Errorf("etherscan.api_key is required for address validation (ETHERSCAN_API_KEY)")
		}
	default:
		return fmt.Errorf("tracker.strategy must be %q or %q, got %q", StrategyScan, StrategyReconcile, cfg.Tracker.Strategy)
	}

	return nil
}
