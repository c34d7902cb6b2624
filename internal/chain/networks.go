package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network name is not known.
var ErrNetworkNotFound = errors.New("network not found")

// Network is a named EVM network: a chain id plus the endpoints that serve it.
type Network struct {
	Name     string
	ChainID  int64
	RPCs     []string
	Explorer string
	// InfuraSlug is the subdomain Infura serves this network on, e.g. "sepolia".
	InfuraSlug string
}

// TxURL links to hash on the network's block explorer, or "" without one.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

// AddressURL links to addr on the block explorer.
func (n *Network) AddressURL(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/address/" + addr
}

// InfuraURL builds the Infura HTTPS endpoint for this network.
func (n *Network) InfuraURL(apiKey string) string {
	if n.InfuraSlug == "" || apiKey == "" {
		return ""
	}
	return "https://" + n.InfuraSlug + ".infura.io/v3/" + apiKey
}

// BuiltinNetworks returns the networks available without any configuration.
func BuiltinNetworks() map[string]Network {
	return map[string]Network{
		"mainnet": {
			Name:    "mainnet",
			ChainID: 1,
			RPCs: []string{
				"https://ethereum-rpc.publicnode.com",
				"https://eth.llamarpc.com",
			},
			Explorer:   "https://etherscan.io",
			InfuraSlug: "mainnet",
		},
		"sepolia": {
			Name:    "sepolia",
			ChainID: 11155111,
			RPCs: []string{
				"https://ethereum-sepolia-rpc.publicnode.com",
				"https://rpc.sepolia.org",
				"https://sepolia.gateway.tenderly.co",
			},
			Explorer:   "https://sepolia.etherscan.io",
			InfuraSlug: "sepolia",
		},
		"holesky": {
			Name:    "holesky",
			ChainID: 17000,
			RPCs: []string{
				"https://ethereum-holesky-rpc.publicnode.com",
			},
			Explorer:   "https://holesky.etherscan.io",
			InfuraSlug: "holesky",
		},
	}
}

// SortedNames returns the keys of networks in lexical order.
func SortedNames(networks map[string]Network) []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
