package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"backmybuild/pkg/bungee"
	"backmybuild/pkg/chain"
	"backmybuild/pkg/profile"
)

// USDCBase is the settlement token: USDC on Base.
const USDCBase = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"

// Config holds the application configuration.
type Config struct {
	// Aggregator and profile APIs.
	BungeeBaseURL  string
	Web3BioBaseURL string

	// Settlement target and platform fee.
	DestinationChainID int64
	OutputToken        string
	FeeTakerAddress    string
	FeeBps             int

	// Donor-side signing.
	PrivateKey   string
	RPCEndpoints map[int64]string

	// Bounded waits. The aggregator and confirmation waits are deliberately
	// configurable rather than hardcoded.
	RequestTimeout     time.Duration
	ConfirmTimeout     time.Duration
	SettleTimeout      time.Duration
	SettlePollInterval time.Duration

	// Backend service.
	DatabaseURL string
	ServerPort  string
	CORSEnabled bool
}

// Load reads configuration from environment variables and an optional
// .back.yaml config file in $HOME or the working directory.
func Load() (*Config, error) {
	viper.SetConfigName(".back")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetDefault("bungee_base_url", bungee.DefaultBaseURL)
	viper.SetDefault("web3bio_base_url", profile.DefaultBaseURL)
	viper.SetDefault("destination_chain_id", chain.ChainBase)
	viper.SetDefault("output_token", USDCBase)
	viper.SetDefault("fee_bps", 0)
	viper.SetDefault("request_timeout", "30s")
	viper.SetDefault("confirm_timeout", "3m")
	viper.SetDefault("settle_timeout", "10m")
	viper.SetDefault("settle_poll_interval", "5s")
	viper.SetDefault("server_port", "8080")
	viper.SetDefault("cors_enabled", false)
	viper.SetDefault("rpc_endpoints", defaultRPCEndpoints())

	viper.SetEnvPrefix("BACK")
	viper.AutomaticEnv()

	// Config file is optional.
	_ = viper.ReadInConfig()

	endpoints, err := parseRPCEndpoints(viper.GetStringMapString("rpc_endpoints"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BungeeBaseURL:      viper.GetString("bungee_base_url"),
		Web3BioBaseURL:     viper.GetString("web3bio_base_url"),
		DestinationChainID: viper.GetInt64("destination_chain_id"),
		OutputToken:        viper.GetString("output_token"),
		FeeTakerAddress:    viper.GetString("fee_taker_address"),
		FeeBps:             viper.GetInt("fee_bps"),
		PrivateKey:         viper.GetString("private_key"),
		RPCEndpoints:       endpoints,
		RequestTimeout:     viper.GetDuration("request_timeout"),
		ConfirmTimeout:     viper.GetDuration("confirm_timeout"),
		SettleTimeout:      viper.GetDuration("settle_timeout"),
		SettlePollInterval: viper.GetDuration("settle_poll_interval"),
		DatabaseURL:        viper.GetString("database_url"),
		ServerPort:         viper.GetString("server_port"),
		CORSEnabled:        viper.GetBool("cors_enabled"),
	}

	return cfg, nil
}

func parseRPCEndpoints(raw map[string]string) (map[int64]string, error) {
	endpoints := make(map[int64]string, len(raw))
	for key, url := range raw {
		chainID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in rpc_endpoints", key)
		}
		endpoints[chainID] = url
	}
	return endpoints, nil
}

func defaultRPCEndpoints() map[string]string {
	return map[string]string{
		"1":      "https://eth.llamarpc.com",
		"10":     "https://mainnet.optimism.io",
		"56":     "https://bsc-dataseed.binance.org",
		"137":    "https://polygon-rpc.com",
		"324":    "https://mainnet.era.zksync.io",
		"8453":   "https://mainnet.base.org",
		"42161":  "https://arb1.arbitrum.io/rpc",
		"59144":  "https://rpc.linea.build",
		"534352": "https://rpc.scroll.io",
	}
}
