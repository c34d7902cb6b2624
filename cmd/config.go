package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/rpc"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var (
	configChainID  int64
	configRPCs     []string
	configExplorer string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Show and change ~/.w3send/config.yaml.

Every setting can also be overridden with a W3SEND_* environment variable,
e.g. W3SEND_NETWORK=mainnet or W3SEND_CONFIRMATIONS=3. Overrides are not
saved by the commands below unless the setting itself is changed. The Vault
token and the Infura key are never written; values already in config.yaml
are kept.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxWait := "none"
		if cfg.MaxWait > 0 {
			maxWait = cfg.MaxWait.String()
		}
		pairs := []ui.KV{
			{Key: "Config File", Value: cfg.Path()},
			{Key: "Network", Value: ui.Network(cfg.Network)},
			{Key: "RPC Algorithm", Value: cfg.RPCAlgorithm},
			{Key: "Confirmations", Value: fmt.Sprintf("%d", cfg.Confirmations)},
			{Key: "Poll Interval", Value: cfg.PollInterval.String()},
			{Key: "Inclusion Poll", Value: cfg.InclusionPollInterval.String()},
			{Key: "Max Wait", Value: maxWait},
			{Key: "Broadcast Tries", Value: fmt.Sprintf("%d", cfg.BroadcastAttempts)},
			{Key: "Fee Reserve Check", Value: fmt.Sprintf("%t", cfg.FeeReserveCheck)},
			{Key: "Default Wallet", Value: orDash(cfg.DefaultWallet)},
			{Key: "Log", Value: cfg.Log.Level + " / " + cfg.Log.Format},
			{Key: "OTLP Endpoint", Value: orDash(cfg.OtelEndpoint)},
			{Key: "Infura Key", Value: setOrNot(cfg.InfuraAPIKey)},
			{Key: "Vault", Value: orDash(cfg.Vault.Address)},
			{Key: "Vault Token", Value: setOrNot(cfg.Vault.Token)},
		}
		if cfg.Vault.Path != "" {
			pairs = append(pairs, ui.KV{Key: "Vault Secret", Value: cfg.Vault.Mount + "/" + cfg.Vault.Path + "#" + cfg.Vault.Field})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Configuration", pairs))
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network <name>",
	Short: "Set the default network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cfg.Resolve(args[0]); err != nil {
			return err
		}
		cfg.Network = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default network set to %s", ui.Network(args[0]))))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a wait or RPC setting",
	Long: `Set one of: confirmations, poll_interval, inclusion_poll_interval,
max_wait, rpc_algorithm, broadcast_attempts, fee_reserve_check.

Examples:
  w3send config set confirmations 3
  w3send config set max_wait 10m
  w3send config set rpc_algorithm failover`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := applySetting(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %s", key, value)))
		return nil
	},
}

func applySetting(key, value string) error {
	var err error
	switch strings.ReplaceAll(key, "-", "_") {
	case "confirmations":
		_, err = fmt.Sscanf(value, "%d", &cfg.Confirmations)
	case "poll_interval":
		cfg.PollInterval, err = time.ParseDuration(value)
	case "inclusion_poll_interval":
		cfg.InclusionPollInterval, err = time.ParseDuration(value)
	case "max_wait":
		cfg.MaxWait, err = time.ParseDuration(value)
	case "rpc_algorithm":
		var a rpc.Algorithm
		if a, err = rpc.ParseAlgorithm(value); err == nil {
			cfg.RPCAlgorithm = string(a)
		}
	case "broadcast_attempts":
		_, err = fmt.Sscanf(value, "%d", &cfg.BroadcastAttempts)
	case "fee_reserve_check":
		switch value {
		case "true", "on", "yes":
			cfg.FeeReserveCheck = true
		case "false", "off", "no":
			cfg.FeeReserveCheck = false
		default:
			err = errors.New("expected true or false")
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: invalid value %q: %w", key, value, err)
	}
	return nil
}

var configAddNetworkCmd = &cobra.Command{
	Use:   "add-network <name>",
	Short: "Add a custom network",
	Long: `Register a network that is not built in, e.g. a local devnet.

Examples:
  w3send config add-network anvil --chain-id 31337 --endpoint http://127.0.0.1:8545`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, ok := chain.BuiltinNetworks()[name]; ok {
			return fmt.Errorf("%s is built in; use `w3send rpc add` to add endpoints", name)
		}
		if err := cfg.AddNetwork(name, configChainID, configRPCs...); err != nil {
			return err
		}
		if configExplorer != "" {
			nc := cfg.Networks[name]
			nc.Explorer = configExplorer
			cfg.Networks[name] = nc
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Network %s (chain %d) added", ui.Network(name), configChainID)))
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func setOrNot(s string) string {
	if s == "" {
		return ui.Meta("not set")
	}
	return ui.Success("set")
}

func init() {
	configAddNetworkCmd.Flags().Int64Var(&configChainID, "chain-id", 0, "chain id")
	configAddNetworkCmd.Flags().StringSliceVar(&configRPCs, "endpoint", nil, "RPC URL (repeatable)")
	configAddNetworkCmd.Flags().StringVar(&configExplorer, "explorer", "", "block explorer base URL")
	_ = configAddNetworkCmd.MarkFlagRequired("chain-id")
	_ = configAddNetworkCmd.MarkFlagRequired("endpoint")

	configCmd.AddCommand(configShowCmd, configSetNetworkCmd, configSetCmd, configAddNetworkCmd)
}
