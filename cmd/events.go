package cmd

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/contract"
	"github.com/devMonkRahul/w3send/internal/ui"
)

// defaultEventRange is how far back events looks without --from.
const defaultEventRange = 1000

var (
	eventsABI   string
	eventsFrom  string
	eventsTo    string
	eventsCount bool
)

var eventsCmd = &cobra.Command{
	Use:   "events <contract>",
	Short: "Query and decode a contract's event logs",
	Long: `Fetch the logs a contract emitted in a block range and decode them with
an ABI: a built-in one (erc20, proxy) or a JSON file (a bare ABI array or a
build artifact with an "abi" field). Logs matching no ABI event are listed
as "unknown".

By default the last 1000 blocks are queried.

Examples:
  w3send events 0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238 --network sepolia
  w3send events 0xProxy --abi proxy --from 0 --to latest
  w3send events 0xMyContract --abi ./out/MyContract.json --count`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid contract address %q", args[0])
		}
		addr := common.HexToAddress(args[0])
		contractABI, err := contract.Load(eventsABI)
		if err != nil {
			return err
		}
		from, err := parseBlockArg(eventsFrom)
		if err != nil {
			return err
		}
		to, err := parseBlockArg(eventsTo)
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

		if from == nil {
			head, err := client.GetBlockNumber(ctx)
			if err != nil {
				return err
			}
			from = new(big.Int)
			if head > defaultEventRange {
				from.SetUint64(head - defaultEventRange)
			}
		}

		events, err := client.GetPastEvents(ctx, addr, contractABI, from, to)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if eventsCount {
			fmt.Fprintln(out, len(events))
			return nil
		}
		if len(events) == 0 {
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("No events from %s on %s since block %s.", addr.Hex(), n.Name, from)))
			return nil
		}

		t := ui.NewTable(
			ui.Column{Title: "Block"},
			ui.Column{Title: "Tx"},
			ui.Column{Title: "Event"},
			ui.Column{Title: "Fields", Width: 80},
		)
		for _, ev := range events {
			t.AddRow(
				fmt.Sprintf("%d", ev.BlockNumber),
				ui.Addr(ui.TruncateAddr(ev.TxHash.Hex())),
				ui.Val(ev.Name),
				formatFields(ev),
			)
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d event(s)", len(events))))
		return nil
	},
}

// formatFields renders decoded fields as sorted key=value pairs.
func formatFields(ev chain.Event) string {
	if ev.DecodeErr != nil {
		return fmt.Sprintf("%d topic(s), does not match the ABI", len(ev.Topics))
	}
	if ev.Name == chain.UnknownEvent {
		return fmt.Sprintf("%d topic(s)", len(ev.Topics))
	}
	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ev.Fields[k]))
	}
	return strings.Join(parts, " ")
}

func init() {
	eventsCmd.Flags().StringVar(&eventsABI, "abi", "erc20", "built-in ABI id (erc20, proxy) or path to an ABI JSON file")
	eventsCmd.Flags().StringVar(&eventsFrom, "from", "", "first block (default: latest - 1000)")
	eventsCmd.Flags().StringVar(&eventsTo, "to", "latest", "last block")
	eventsCmd.Flags().BoolVar(&eventsCount, "count", false, "print only the number of events")
}
