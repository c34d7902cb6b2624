package contract

// The admin-upgradeable proxy in front of tokens such as USDC on mainnet.
// Its events are not indexed, so both addresses sit in the log data.
func init() {
	RegisterBuiltin(Builtin{
		ID:          "proxy",
		Name:        "Admin Upgradeable Proxy",
		Description: "upgradeTo/changeAdmin plus AdminChanged and Upgraded events",
		JSON:        proxyABI,
	})
}

const proxyABI = `[
  {"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]},
  {"type":"function","name":"upgradeToAndCall","stateMutability":"payable","inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"implementation","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"changeAdmin","stateMutability":"nonpayable","inputs":[{"name":"newAdmin","type":"address"}],"outputs":[]},
  {"type":"function","name":"admin","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"_implementation","type":"address"}]},
  {"type":"fallback","stateMutability":"payable"},
  {"type":"event","name":"AdminChanged","anonymous":false,"inputs":[{"indexed":false,"name":"previousAdmin","type":"address"},{"indexed":false,"name":"newAdmin","type":"address"}]},
  {"type":"event","name":"Upgraded","anonymous":false,"inputs":[{"indexed":false,"name":"implementation","type":"address"}]}
]`
