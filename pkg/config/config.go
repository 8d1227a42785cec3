package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Address string
	}
	Log struct {
		Debug bool
	}
	Indexer struct {
		BaseURL string
		APIKey  string
		Pace    time.Duration
	}
	Node struct {
		Providers []string
		ScanPace  time.Duration
		Cache     struct {
			MaxEntries int
			TTL        time.Duration
		}
	}
	Fetch struct {
		Timeout    time.Duration
		MaxRetries int
		Backoff    time.Duration
	}
	Report struct {
		OutputDir string
	}
	Sampling struct {
		SamplesPerFork int
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile("config.json")
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("INDEXER_BASE_URL", "https://beaconcha.in")
	v.SetDefault("INDEXER_API_KEY", "")
	// Free tier allows roughly one call per second; stay under it.
	v.SetDefault("INDEXER_PACE", "1100ms")
	v.SetDefault("RPC_PROVIDERS", []string{
		"https://eth-beacon-chain.drpc.org",
		"https://ethereum-beacon-api.publicnode.com",
	})
	v.SetDefault("SCAN_PACE", "150ms")
	v.SetDefault("CACHE_BLOCK_MAX_ENTRIES", 2048)
	v.SetDefault("CACHE_BLOCK_TTL", "60m")
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("FETCH_MAX_RETRIES", 3)
	v.SetDefault("FETCH_BACKOFF", "2s")
	v.SetDefault("REPORT_DIR", "./investigations")
	v.SetDefault("SAMPLES_PER_FORK", 2)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Server.Address = v.GetString("SERVER_ADDRESS")
	cfg.Log.Debug = v.GetBool("LOG_DEBUG")

	cfg.Indexer.BaseURL = v.GetString("INDEXER_BASE_URL")
	cfg.Indexer.APIKey = v.GetString("INDEXER_API_KEY")
	cfg.Indexer.Pace = v.GetDuration("INDEXER_PACE")

	cfg.Node.Providers = v.GetStringSlice("RPC_PROVIDERS")
	cfg.Node.ScanPace = v.GetDuration("SCAN_PACE")
	cfg.Node.Cache.MaxEntries = v.GetInt("CACHE_BLOCK_MAX_ENTRIES")
	cfg.Node.Cache.TTL = v.GetDuration("CACHE_BLOCK_TTL")

	cfg.Fetch.Timeout = v.GetDuration("FETCH_TIMEOUT")
	cfg.Fetch.MaxRetries = v.GetInt("FETCH_MAX_RETRIES")
	cfg.Fetch.Backoff = v.GetDuration("FETCH_BACKOFF")

	cfg.Report.OutputDir = v.GetString("REPORT_DIR")
	cfg.Sampling.SamplesPerFork = v.GetInt("SAMPLES_PER_FORK")

	if cfg.Server.Address == "" {
		return nil, fmt.Errorf("SERVER_ADDRESS must not be empty")
	}
	if cfg.Indexer.BaseURL == "" {
		return nil, fmt.Errorf("INDEXER_BASE_URL must not be empty")
	}
	if cfg.Indexer.APIKey == "" {
		return nil, fmt.Errorf("INDEXER_API_KEY must not be empty")
	}
	if len(cfg.Node.Providers) == 0 {
		return nil, fmt.Errorf("RPC_PROVIDERS must not be empty")
	}
	if cfg.Fetch.MaxRetries < 1 {
		return nil, fmt.Errorf("FETCH_MAX_RETRIES must be ≥ 1")
	}
	if cfg.Sampling.SamplesPerFork < 1 {
		return nil, fmt.Errorf("SAMPLES_PER_FORK must be ≥ 1")
	}

	return cfg, nil
}
