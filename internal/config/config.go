package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/devMonkRahul/w3send/internal/chain"
)

const (
	defaultNetwork   = "sepolia"
	defaultAlgorithm = "fastest"

	configName  = "config"
	configType  = "yaml"
	walletsFile = "wallets.json"

	// EnvPrefix is prepended to every environment override, e.g. W3SEND_NETWORK.
	EnvPrefix = "W3SEND"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultDir is ~/.w3send, or W3SEND_CONFIG_DIR when set.
func DefaultDir() (string, error) {
	if d := os.Getenv(EnvPrefix + "_CONFIG_DIR"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".w3send"), nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads config.yaml from dir (created if missing), applies W3SEND_*
// environment overrides and validates the result.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{dir: dir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Networks == nil {
		cfg.Networks = make(map[string]NetworkConfig)
	}
	if cfg.Vault.Token == "" {
		cfg.Vault.Token = os.Getenv("VAULT_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.loaded = cfg.settings()
	cfg.fromEnv = make(map[string]bool)
	for key := range cfg.loaded {
		if os.Getenv(envName(key)) != "" {
			cfg.fromEnv[key] = true
		}
	}
	return cfg, nil
}

// envName is the variable viper consults for key, e.g. log.level -> W3SEND_LOG_LEVEL.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", defaultNetwork)
	v.SetDefault("infura_api_key", "")
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("confirmations", DefaultConfirmations)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("inclusion_poll_interval", DefaultInclusionPollInterval)
	v.SetDefault("max_wait", time.Duration(0))
	v.SetDefault("broadcast_attempts", DefaultBroadcastAttempts)
	v.SetDefault("fee_reserve_check", false)
	v.SetDefault("default_wallet", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.path", "")
	v.SetDefault("vault.field", "private_key")
}

// Validate checks field constraints and that the selected network exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Resolve(c.Network); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.dir }

// Path is the config file location.
func (c *Config) Path() string { return filepath.Join(c.dir, configName+"."+configType) }

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string { return filepath.Join(c.dir, walletsFile) }

// AllNetworks returns the built-in networks with configured entries merged on top.
// Configured RPCs come before built-in ones.
func (c *Config) AllNetworks() map[string]chain.Network {
	all := chain.BuiltinNetworks()
	for name, nc := range c.Networks {
		n, ok := all[name]
		if !ok {
			n = chain.Network{Name: name}
		}
		if nc.ChainID != 0 {
			n.ChainID = nc.ChainID
		}
		if nc.Explorer != "" {
			n.Explorer = nc.Explorer
		}
		rpcs := slices.Clone(nc.RPCs)
		for _, u := range n.RPCs {
			if !slices.Contains(rpcs, u) {
				rpcs = append(rpcs, u)
			}
		}
		n.RPCs = rpcs
		all[name] = n
	}
	return all
}

// Resolve returns the named network, or the configured default for "".
func (c *Config) Resolve(name string) (chain.Network, error) {
	if name == "" {
		name = c.Network
	}
	n, ok := c.AllNetworks()[name]
	if !ok {
		return chain.Network{}, fmt.Errorf("%w: %q", chain.ErrNetworkNotFound, name)
	}
	if n.ChainID <= 0 {
		return chain.Network{}, fmt.Errorf("network %q has no chain_id", name)
	}
	if u := n.InfuraURL(c.InfuraAPIKey); u != "" {
		n.RPCs = append([]string{u}, n.RPCs...)
	}
	return n, nil
}

// AddRPC adds a custom RPC URL for a known network.
func (c *Config) AddRPC(network, url string) error {
	if _, ok := c.AllNetworks()[network]; !ok {
		return fmt.Errorf("%w: %q", chain.ErrNetworkNotFound, network)
	}
	if err := validate.Var(url, "url"); err != nil {
		return fmt.Errorf("invalid RPC URL %q", url)
	}
	nc := c.Networks[network]
	if slices.Contains(nc.RPCs, url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	nc.RPCs = append(nc.RPCs, url)
	c.Networks[network] = nc
	return nil
}

// RemoveRPC removes a custom RPC URL. Built-in URLs cannot be removed.
func (c *Config) RemoveRPC(network, url string) error {
	nc := c.Networks[network]
	idx := slices.Index(nc.RPCs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	nc.RPCs = slices.Delete(nc.RPCs, idx, idx+1)
	c.Networks[network] = nc
	return nil
}

// AddNetwork registers a custom network.
func (c *Config) AddNetwork(name string, chainID int64, rpcs ...string) error {
	nc := NetworkConfig{ChainID: chainID, RPCs: rpcs}
	if err := validate.Struct(nc); err != nil {
		return fmt.Errorf("invalid network %q: %w", name, err)
	}
	if chainID <= 0 {
		return fmt.Errorf("invalid network %q: chain id must be positive", name)
	}
	c.Networks[name] = nc
	return nil
}

// settings returns the values Save owns, keyed as in config.yaml.
func (c *Config) settings() map[string]any {
	m := map[string]any{
		"network":                 c.Network,
		"rpc_algorithm":           c.RPCAlgorithm,
		"confirmations":           c.Confirmations,
		"poll_interval":           c.PollInterval.String(),
		"inclusion_poll_interval": c.InclusionPollInterval.String(),
		"max_wait":                c.MaxWait.String(),
		"broadcast_attempts":      c.BroadcastAttempts,
		"fee_reserve_check":       c.FeeReserveCheck,
		"default_wallet":          c.DefaultWallet,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
	}
	if c.OtelEndpoint != "" {
		m["otel_endpoint"] = c.OtelEndpoint
	}
	if c.Vault.Address != "" {
		m["vault.address"] = c.Vault.Address
		m["vault.mount"] = c.Vault.Mount
		m["vault.path"] = c.Vault.Path
		m["vault.field"] = c.Vault.Field
	}
	return m
}

// Save writes the current settings to config.yaml on top of what the file
// already holds. Secrets (the Vault token, the Infura key) are never taken
// from memory, so a key stored in the file stays and one from the environment
// is not persisted. A value that came from a W3SEND_* variable and was not
// changed since Load keeps its value from the file.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	out := viper.New()
	out.SetConfigFile(c.Path())
	out.SetConfigType(configType)
	if err := out.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	for key, val := range c.settings() {
		if c.fromEnv[key] && reflect.DeepEqual(val, c.loaded[key]) {
			continue
		}
		out.Set(key, val)
	}
	if len(c.Networks) > 0 {
		nets := make(map[string]any, len(c.Networks))
		for name, nc := range c.Networks {
			entry := map[string]any{"rpcs": nc.RPCs}
			if nc.ChainID != 0 {
				entry["chain_id"] = nc.ChainID
			}
			if nc.Explorer != "" {
				entry["explorer"] = nc.Explorer
			}
			nets[name] = entry
		}
		out.Set("networks", nets)
	}
	if err := out.WriteConfigAs(c.Path()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	c.loaded = c.settings()
	return os.Chmod(c.Path(), 0o600)
}
