package keysource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// DefaultVaultField is the KV field holding the hex key.
const DefaultVaultField = "private_key"

// VaultConfig locates a key in a KV v2 secrets engine.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Path    string
	Field   string
}

// Vault reads a key from HashiCorp Vault on every call.
type Vault struct {
	client *vault.Client
	mount  string
	path   string
	field  string
}

// NewVault builds a Vault client for cfg. No request is made until PrivateKey.
func NewVault(cfg VaultConfig) (*Vault, error) {
	if cfg.Path == "" {
		return nil, errors.New("vault source: secret path is required")
	}
	vc := vault.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("vault source: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return NewVaultWithClient(client, cfg.Mount, cfg.Path, cfg.Field), nil
}

// NewVaultWithClient uses an existing client. Empty mount and field default to
// "secret" and DefaultVaultField.
func NewVaultWithClient(client *vault.Client, mount, path, field string) *Vault {
	if mount == "" {
		mount = "secret"
	}
	if field == "" {
		field = DefaultVaultField
	}
	return &Vault{client: client, mount: mount, path: strings.Trim(path, "/"), field: field}
}

func (v *Vault) PrivateKey(ctx context.Context) (string, error) {
	secret, err := v.client.KVv2(v.mount).Get(ctx, v.path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", fmt.Errorf("%w: no secret at %s", ErrNoKey, v)
	}
	if err != nil {
		return "", fmt.Errorf("vault source %s: %w", v, err)
	}
	raw, ok := secret.Data[v.field]
	if !ok {
		return "", fmt.Errorf("%w: field %q missing at %s", ErrNoKey, v.field, v)
	}
	key, ok := raw.(string)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: field %q at %s is not a string", ErrNoKey, v.field, v)
	}
	return key, nil
}

func (v *Vault) String() string {
	return fmt.Sprintf("vault %s/%s#%s", v.mount, v.path, v.field)
}
