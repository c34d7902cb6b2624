package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/keysource"
	"github.com/devMonkRahul/w3send/internal/rpc"
	"github.com/devMonkRahul/w3send/internal/submitter"
	"github.com/devMonkRahul/w3send/internal/wallet"
)

// openKeystore is replaced in tests to avoid touching the OS keychain.
var openKeystore = func(dir string) (wallet.KeystoreBackend, error) {
	return wallet.OpenKeystore(dir)
}

// selectors holds one Selector per algorithm for the life of the process.
var (
	selectorsMu sync.Mutex
	selectors   = map[rpc.Algorithm]*rpc.Selector{}
)

func selectorFor(algo rpc.Algorithm) *rpc.Selector {
	selectorsMu.Lock()
	defer selectorsMu.Unlock()
	s, ok := selectors[algo]
	if !ok {
		s = rpc.NewSelector(algo, logger)
		selectors[algo] = s
	}
	return s.WithLogger(logger)
}

// currentNetwork resolves --network, falling back to the configured default.
func currentNetwork() (chain.Network, error) {
	return cfg.Resolve(networkFlag)
}

// connect dials the best RPC of the current network, or --rpc when given.
// The caller closes the client.
func connect(ctx context.Context) (*chain.EVMClient, chain.Network, error) {
	n, err := currentNetwork()
	if err != nil {
		return nil, chain.Network{}, err
	}
	urls := n.RPCs
	if rpcFlag != "" {
		urls = []string{rpcFlag}
	}
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, chain.Network{}, err
	}

	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	client, err := selectorFor(algo).Connect(selectCtx, urls)
	if err != nil {
		return nil, chain.Network{}, fmt.Errorf("%s: %w", n.Name, err)
	}
	logger.Debug().Str("network", n.Name).Str("rpc", displayURL(client.URL())).Msg("connected")
	return client, n, nil
}

// displayURL hides the Infura API key in RPC URLs shown to the user.
func displayURL(u string) string {
	if cfg == nil || cfg.InfuraAPIKey == "" {
		return u
	}
	return strings.ReplaceAll(u, cfg.InfuraAPIKey, "<key>")
}

// walletManager opens wallets.json. withKeys also opens the keystore, which
// may prompt for a passphrase on the file backend.
func walletManager(withKeys bool) (*wallet.Manager, error) {
	opts := []wallet.Option{wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))}
	if withKeys {
		ks, err := openKeystore(cfg.Dir())
		if err != nil {
			return nil, err
		}
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...), nil
}

// defaultWallet returns the wallet named by name, the configured default, or
// the manager's implicit default, in that order.
func defaultWallet(mgr *wallet.Manager, name string) (*wallet.Wallet, error) {
	if name == "" {
		name = cfg.DefaultWallet
	}
	if name != "" {
		return mgr.Get(name)
	}
	if w := mgr.Default(); w != nil {
		return w, nil
	}
	return nil, errors.New("no wallet selected: pass --wallet or run `w3send wallet use <name>`")
}

// keyFlags selects where a signing key comes from. At most one of keyEnv and
// vaultPath may be set; with neither, the wallet's keychain entry is used.
type keyFlags struct {
	wallet    string
	keyEnv    string
	vaultPath string
}

func (f keyFlags) validate() error {
	if f.keyEnv != "" && f.vaultPath != "" {
		return errors.New("--key-env and --vault-path are mutually exclusive")
	}
	return nil
}

// resolveKey returns the key source and the address it signs for.
func (f keyFlags) resolveKey(ctx context.Context) (keysource.Source, common.Address, string, error) {
	if err := f.validate(); err != nil {
		return nil, common.Address{}, "", err
	}

	var src keysource.Source
	switch {
	case f.keyEnv != "":
		src = keysource.FromEnv(f.keyEnv)
	case f.vaultPath != "":
		v, err := keysource.NewVault(keysource.VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Path:    f.vaultPath,
			Field:   cfg.Vault.Field,
		})
		if err != nil {
			return nil, common.Address{}, "", err
		}
		src = v
	default:
		mgr, err := walletManager(true)
		if err != nil {
			return nil, common.Address{}, "", err
		}
		w, err := defaultWallet(mgr, f.wallet)
		if err != nil {
			return nil, common.Address{}, "", err
		}
		if !w.CanSign() {
			return nil, common.Address{}, "", fmt.Errorf("%w: %s", wallet.ErrWatchOnly, w.Name)
		}
		src = keysource.Keyring{Store: mgr.Keystore(), Ref: w.KeyRef}
	}

	key, err := src.PrivateKey(ctx)
	if err != nil {
		return nil, common.Address{}, "", fmt.Errorf("%s: %w", src, err)
	}
	from, err := chain.AddressFromKey(key)
	if err != nil {
		return nil, common.Address{}, "", fmt.Errorf("%s: %w", src, err)
	}
	return src, from, key, nil
}

// resolveAddress accepts a hex address or a wallet name.
func resolveAddress(nameOrAddress string) (common.Address, error) {
	if common.IsHexAddress(nameOrAddress) {
		return common.HexToAddress(nameOrAddress), nil
	}
	mgr, err := walletManager(false)
	if err != nil {
		return common.Address{}, err
	}
	return mgr.Lookup(nameOrAddress)
}

// newSubmitter builds a Submitter from the loaded config.
func newSubmitter(client submitter.ChainClient) *submitter.Submitter {
	return submitter.New(client,
		submitter.WithLogger(logger),
		submitter.WithBroadcastAttempts(cfg.BroadcastAttempts),
		submitter.WithFeeReserveCheck(cfg.FeeReserveCheck),
		submitter.WithWaitDefaults(submitter.WaitOptions{
			Confirmations:     cfg.Confirmations,
			PendingInterval:   cfg.PollInterval,
			InclusionInterval: cfg.InclusionPollInterval,
			MaxWait:           cfg.MaxWait,
		}),
	)
}

// parseBlockArg parses "latest", "" or a decimal/0x block number. nil means latest.
func parseBlockArg(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "latest" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid block number %q", s)
	}
	return n, nil
}

func formatWei(wei *big.Int, unit string) string {
	if wei == nil {
		return "-"
	}
	decimals, err := chain.UnitDecimals(unit)
	if err != nil {
		decimals = chain.EtherDecimals
		unit = "ether"
	}
	return chain.FormatUnits(wei, decimals) + " " + unitSymbol(unit)
}

func unitSymbol(unit string) string {
	switch unit {
	case "ether", "eth", "":
		return "ETH"
	default:
		return unit
	}
}
