package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect networks",
}

var networkInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chain id, head block and current fees",
	Long: `Query the selected network's chain id, head block, legacy gas price and
EIP-1559 fee suggestion in parallel.

Examples:
  w3send network info
  w3send network info --network mainnet`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, n, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		var (
			chainID  *big.Int
			head     *chain.BlockInfo
			gasPrice *big.Int
			fees     *chain.FeeEstimate
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			chainID, err = client.GetChainID(gctx)
			return err
		})
		g.Go(func() (err error) {
			head, err = client.GetLatestBlockInfo(gctx)
			return err
		})
		g.Go(func() (err error) {
			gasPrice, err = client.GasPrice(gctx)
			return err
		})
		g.Go(func() (err error) {
			fees, err = client.GetFeeEstimate(gctx)
			if errors.Is(err, chain.ErrNoBaseFee) {
				return nil
			}
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		pairs := []ui.KV{
			{Key: "Network", Value: ui.Network(n.Name)},
			{Key: "RPC", Value: displayURL(client.URL())},
			{Key: "Chain ID", Value: chainID.String()},
			{Key: "Head", Value: fmt.Sprintf("%d %s", head.Number, ui.Meta("("+head.Age()+")"))},
			{Key: "Gas Price", Value: formatWei(gasPrice, "gwei")},
		}
		if fees != nil {
			pairs = append(pairs,
				ui.KV{Key: "Base Fee", Value: formatWei(fees.BaseFee, "gwei")},
				ui.KV{Key: "Max Fee", Value: formatWei(fees.MaxFeePerGas, "gwei")},
				ui.KV{Key: "Priority Fee", Value: formatWei(fees.MaxPriorityFeePerGas, "gwei")},
			)
		} else {
			pairs = append(pairs, ui.KV{Key: "EIP-1559", Value: ui.Warn("not supported")})
		}
		if chainID.Int64() != n.ChainID {
			pairs = append(pairs, ui.KV{
				Key:   "Warning",
				Value: ui.Warn(fmt.Sprintf("configured chain id is %d", n.ChainID)),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Network", pairs))
		return nil
	},
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := cfg.AllNetworks()
		t := ui.NewTable(
			ui.Column{Title: "Name"},
			ui.Column{Title: "Chain ID"},
			ui.Column{Title: "RPCs"},
			ui.Column{Title: "Explorer"},
			ui.Column{Title: ""},
		)
		for _, name := range chain.SortedNames(all) {
			n := all[name]
			mark := ""
			if name == cfg.Network {
				mark = ui.StyleSuccess.Render("default")
			}
			t.AddRow(ui.Network(name), fmt.Sprintf("%d", n.ChainID), fmt.Sprintf("%d", len(n.RPCs)), ui.Meta(n.Explorer), mark)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		if cfg.InfuraAPIKey != "" {
			var slugs []string
			for _, name := range chain.SortedNames(all) {
				if all[name].InfuraSlug != "" {
					slugs = append(slugs, name)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Infura endpoint used first for: "+strings.Join(slugs, ", ")))
		}
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkInfoCmd, networkListCmd)
}
