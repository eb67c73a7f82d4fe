package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/setheum-labs/evmkit/ethproviders"
	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/setheum-labs/evmkit/util"
)

type config struct {
	LogLevel string              `mapstructure:"log_level"`
	Network  string              `mapstructure:"network"`
	RPCURL   string              `mapstructure:"rpc_url"`
	Networks ethproviders.Config `mapstructure:"networks"`
}

// loadConfig merges, from lowest to highest precedence, the defaults, the config
// file, EVMKIT_* environment variables and the command line flags.
func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("EVMKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"log_level": "log-level",
		"network":   "network",
		"rpc_url":   "rpc-url",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("evmkit")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c *config) logger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := util.ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return util.NewLogger(level, cmd.ErrOrStderr()), nil
}

// provider returns the node selected by --rpc-url, or else by --network.
func (c *config) provider(log *slog.Logger) (*ethrpc.Provider, error) {
	if c.RPCURL != "" {
		return ethrpc.NewProvider(c.RPCURL, ethrpc.WithLogger(log))
	}
	if c.Network == "" {
		return nil, errors.New("no node configured, set --rpc-url or --network")
	}

	providers, err := ethproviders.NewProviders(c.Networks, ethrpc.WithLogger(log))
	if err != nil {
		return nil, err
	}
	p := providers.Get(c.Network)
	if p == nil {
		return nil, fmt.Errorf("network %q is not configured", c.Network)
	}
	return p, nil
}

// setup loads the config and connects to the node.
func setup(cmd *cobra.Command) (*config, *slog.Logger, *ethrpc.Provider, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := cfg.logger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	provider, err := cfg.provider(log)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debug("using node", slog.String("url", provider.NodeURL()))
	return cfg, log, provider, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
