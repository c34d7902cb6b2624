package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/rpc"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage and benchmark RPC endpoints",
}

var rpcBenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Ping every RPC of the network and show which one would be picked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Benchmarking %d %s RPC(s)...", len(n.RPCs), n.Name))
		spin.Start()
		results := rpc.Benchmark(ctx, n.RPCs)
		spin.Stop()

		t := ui.NewTable(
			ui.Column{Title: "RPC URL", Width: 48},
			ui.Column{Title: "Latency"},
			ui.Column{Title: "Block #"},
			ui.Column{Title: "Status"},
		)
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			head := fmt.Sprintf("%d", r.Head)
			if r.Err != nil {
				status = ui.Err("down")
				latency, head = "-", "-"
				logger.Debug().Err(r.Err).Str("rpc", r.URL).Msg("ping failed")
			}
			t.AddRow(displayURL(r.URL), latency, head, status)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())

		best, err := rpc.NewPicker(algo).Pick(rpc.Endpoints(results))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%s would use: ", algo))+ui.Val(displayURL(best.URL)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the network's RPCs in the order they are tried",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render("RPCs for "+n.Name))
		custom := cfg.Networks[n.Name].RPCs
		for _, u := range n.RPCs {
			label := ""
			switch {
			case cfg.InfuraAPIKey != "" && u == n.InfuraURL(cfg.InfuraAPIKey):
				label = "(infura)"
			case slices.Contains(custom, u):
				label = "(custom)"
			}
			fmt.Fprintf(out, "  %s %s\n", displayURL(u), ui.Meta(label))
		}
		return nil
	},
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a custom RPC URL to the network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		if err := cfg.AddRPC(n.Name, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.Network(n.Name), args[0])))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove a custom RPC URL from the network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		if err := cfg.RemoveRPC(n.Name, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", ui.Network(n.Name), args[0])))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcBenchCmd, rpcListCmd, rpcAddCmd, rpcRemoveCmd)
}
