package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/ui"
	"github.com/devMonkRahul/w3send/internal/wallet"
)

var balanceUnit string

var balanceCmd = &cobra.Command{
	Use:   "balance [address|wallet]...",
	Short: "Show native balances",
	Long: `Show the native balance of one or more addresses or wallet names.
With no arguments the default wallet is used.

Examples:
  w3send balance
  w3send balance alice bob 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  w3send balance --network mainnet --unit gwei`,
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, addrs, err := balanceTargets(args)
		if err != nil {
			return err
		}

		client, n, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		balances := make([]*big.Int, len(addrs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for i, a := range addrs {
			g.Go(func() error {
				b, err := client.GetBalance(gctx, a)
				if err != nil {
					return fmt.Errorf("%s: %w", a.Hex(), err)
				}
				balances[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		t := ui.NewTable(
			ui.Column{Title: "Name"},
			ui.Column{Title: "Address"},
			ui.Column{Title: "Balance"},
		)
		for i, a := range addrs {
			t.AddRow(ui.Val(labels[i]), ui.Addr(a.Hex()), formatWei(balances[i], balanceUnit))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Network(n.Name))
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

// balanceTargets resolves args to addresses; with none, the default wallet.
func balanceTargets(args []string) ([]string, []common.Address, error) {
	mgr, err := walletManager(false)
	if err != nil {
		return nil, nil, err
	}
	if len(args) == 0 {
		w, err := defaultWallet(mgr, "")
		if err != nil {
			return nil, nil, err
		}
		return []string{w.Name}, []common.Address{common.HexToAddress(w.Address)}, nil
	}

	labels := make([]string, 0, len(args))
	addrs := make([]common.Address, 0, len(args))
	for _, a := range args {
		addr, err := mgr.Lookup(a)
		if err != nil {
			return nil, nil, err
		}
		label := "-"
		if !common.IsHexAddress(a) {
			label = a
		} else if w := walletFor(mgr, addr); w != nil {
			label = w.Name
		}
		labels = append(labels, label)
		addrs = append(addrs, addr)
	}
	return labels, addrs, nil
}

func walletFor(mgr *wallet.Manager, addr common.Address) *wallet.Wallet {
	ws, err := mgr.List()
	if err != nil {
		return nil
	}
	for _, w := range ws {
		if common.HexToAddress(w.Address) == addr {
			return w
		}
	}
	return nil
}

func init() {
	balanceCmd.Flags().StringVar(&balanceUnit, "unit", "ether", "display unit: eth, gwei or wei")
}
