package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	PgDSN            string
	Listen           string
	MarketplaceAddrs []string
	TickInterval     time.Duration
	FailureBudget    int
	LogLevel         string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"listen":         ":8085",
		"tick-interval":  5 * time.Second,
		"failure-budget": 3,
		"log-level":      "info",
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		PgDSN:            v.GetString("pg-dsn"),
		Listen:           v.GetString("listen"),
		MarketplaceAddrs: getStringSlice(v, "marketplace"),
		TickInterval:     v.GetDuration("tick-interval"),
		FailureBudget:    v.GetInt("failure-budget"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}

// IngestConfig holds configuration for the ingest command.
type IngestConfig struct {
	PgDSN            string
	In               string
	MarketplaceAddrs []string
	LogLevel         string
}

// LoadIngest merges config file, environment variables, and flags into IngestConfig.
func LoadIngest(cfgFile string, flags *pflag.FlagSet) (IngestConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return IngestConfig{}, err
	}

	return IngestConfig{
		PgDSN:            v.GetString("pg-dsn"),
		In:               v.GetString("in"),
		MarketplaceAddrs: getStringSlice(v, "marketplace"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	PgDSN         string
	ResetFailures bool
	LogLevel      string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"reset-failures": false,
		"log-level":      "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		PgDSN:         v.GetString("pg-dsn"),
		ResetFailures: v.GetBool("reset-failures"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	PgDSN    string
	Out      string
	LogLevel string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/ledger.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return ExportConfig{}, err
	}

	return ExportConfig{
		PgDSN:    v.GetString("pg-dsn"),
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
