package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var nonceCmd = &cobra.Command{
	Use:   "nonce [address|wallet]",
	Short: "Show confirmed and pending nonce",
	Long: `Query the confirmed and pending transaction count (nonce) for an address.

If confirmed and pending nonces differ, transactions are pending or stuck in
the mempool.

Examples:
  w3send nonce
  w3send nonce alice --network mainnet`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, addrs, err := balanceTargets(args)
		if err != nil {
			return err
		}
		addr := addrs[0]

		client, n, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		var confirmed, pending uint64
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			confirmed, err = client.GetTransactionCount(gctx, addr, false)
			return err
		})
		g.Go(func() error {
			var err error
			pending, err = client.GetTransactionCount(gctx, addr, true)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		pairs := []ui.KV{
			{Key: "Address", Value: ui.Addr(addr.Hex())},
			{Key: "Network", Value: ui.Network(n.Name)},
			{Key: "Confirmed", Value: fmt.Sprintf("%d", confirmed)},
			{Key: "Pending", Value: fmt.Sprintf("%d", pending)},
		}
		if pending > confirmed {
			pairs = append(pairs, ui.KV{Key: "Status", Value: ui.Warn(fmt.Sprintf("%d tx(s) in mempool", pending-confirmed))})
		} else {
			pairs = append(pairs, ui.KV{Key: "Status", Value: ui.Success("no pending transactions")})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Nonce", pairs))
		return nil
	},
}
