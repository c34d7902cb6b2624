package config

import "time"

// Config holds all w3send configuration. Private keys never live here.
type Config struct {
	Network  string                   `mapstructure:"network"  validate:"required"`
	Networks map[string]NetworkConfig `mapstructure:"networks" validate:"dive"`
	// InfuraAPIKey puts an Infura endpoint first for networks Infura serves.
	InfuraAPIKey string `mapstructure:"infura_api_key"`
	RPCAlgorithm string `mapstructure:"rpc_algorithm" validate:"oneof=fastest round-robin failover"`

	Confirmations         uint64        `mapstructure:"confirmations"           validate:"gte=1"`
	PollInterval          time.Duration `mapstructure:"poll_interval"           validate:"gt=0"`
	InclusionPollInterval time.Duration `mapstructure:"inclusion_poll_interval" validate:"gt=0"`
	MaxWait               time.Duration `mapstructure:"max_wait"                validate:"gte=0"`
	BroadcastAttempts     int           `mapstructure:"broadcast_attempts"      validate:"gte=1,lte=10"`
	FeeReserveCheck       bool          `mapstructure:"fee_reserve_check"`

	DefaultWallet string      `mapstructure:"default_wallet"`
	Log           LogConfig   `mapstructure:"log"`
	OtelEndpoint  string      `mapstructure:"otel_endpoint"`
	Vault         VaultConfig `mapstructure:"vault"`

	dir string
	// loaded is settings() as of Load or the last Save.
	loaded map[string]any
	// fromEnv marks settings keys a W3SEND_* variable supplied.
	fromEnv map[string]bool
}

// NetworkConfig is a user-defined network or an override of a built-in one.
type NetworkConfig struct {
	ChainID  int64    `mapstructure:"chain_id" validate:"gte=0"`
	RPCs     []string `mapstructure:"rpcs"     validate:"dive,url"`
	Explorer string   `mapstructure:"explorer" validate:"omitempty,url"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// VaultConfig locates a private key in a HashiCorp Vault KV v2 engine.
// Token is only ever read from the environment (W3SEND_VAULT_TOKEN or VAULT_TOKEN).
type VaultConfig struct {
	Address string `mapstructure:"address" validate:"omitempty,url"`
	Token   string `mapstructure:"token"`
	Mount   string `mapstructure:"mount"`
	Path    string `mapstructure:"path"`
	Field   string `mapstructure:"field"`
}
