package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var blockTxIndex int

var blockCmd = &cobra.Command{
	Use:   "block [number|latest]",
	Short: "Show a block header, or one of its transactions",
	Long: `Show block details. With --tx-index, show the transaction at that
position in the block instead.

Examples:
  w3send block
  w3send block 19000000 --network mainnet
  w3send block latest --tx-index 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) > 0 {
			arg = args[0]
		}
		number, err := parseBlockArg(arg)
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

		info, err := client.GetBlockInfo(ctx, number)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if blockTxIndex < 0 {
			fmt.Fprintln(out, blockBlock(n, info))
			return nil
		}
		if uint(blockTxIndex) >= info.TxCount {
			return fmt.Errorf("block %d has %d transactions, index %d is out of range", info.Number, info.TxCount, blockTxIndex)
		}
		tx, err := client.GetTransactionFromBlock(ctx, info.Hash, uint(blockTxIndex))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, txBlock(n, info.Number, tx))
		return nil
	},
}

func blockBlock(n chain.Network, b *chain.BlockInfo) string {
	baseFee := "-"
	if b.BaseFee != nil {
		baseFee = formatWei(b.BaseFee, "gwei")
	}
	return ui.KeyValueBlock(fmt.Sprintf("Block %d", b.Number), []ui.KV{
		{Key: "Network", Value: ui.Network(n.Name)},
		{Key: "Hash", Value: b.Hash.Hex()},
		{Key: "Time", Value: time.Unix(int64(b.Timestamp), 0).UTC().Format(time.RFC3339) + ui.Meta(" ("+b.Age()+")")},
		{Key: "Transactions", Value: fmt.Sprintf("%d", b.TxCount)},
		{Key: "Gas Used", Value: fmt.Sprintf("%d / %d (%s)", b.GasUsed, b.GasLimit, b.GasUsedPct())},
		{Key: "Base Fee", Value: baseFee},
		{Key: "Fee Recipient", Value: ui.Addr(b.Miner.Hex())},
	})
}

func txBlock(n chain.Network, blockNumber uint64, tx *chain.TxSummary) string {
	to := "contract creation"
	if tx.To != nil {
		to = ui.Addr(tx.To.Hex())
	}
	pairs := []ui.KV{
		{Key: "Hash", Value: tx.Hash.Hex()},
		{Key: "Block", Value: fmt.Sprintf("%d", blockNumber)},
		{Key: "Type", Value: fmt.Sprintf("%d", tx.Type)},
		{Key: "From", Value: ui.Addr(tx.From.Hex())},
		{Key: "To", Value: to},
		{Key: "Value", Value: formatWei(tx.Value, "ether")},
		{Key: "Nonce", Value: fmt.Sprintf("%d", tx.Nonce)},
		{Key: "Gas Limit", Value: fmt.Sprintf("%d", tx.Gas)},
	}
	if tx.GasPrice != nil {
		pairs = append(pairs, ui.KV{Key: "Gas Price", Value: formatWei(tx.GasPrice, "gwei")})
	} else {
		pairs = append(pairs,
			ui.KV{Key: "Max Fee", Value: formatWei(tx.MaxFeePerGas, "gwei")},
			ui.KV{Key: "Priority Fee", Value: formatWei(tx.MaxPriorityFeePerGas, "gwei")},
		)
	}
	if u := n.TxURL(tx.Hash.Hex()); u != "" {
		pairs = append(pairs, ui.KV{Key: "Explorer", Value: u})
	}
	return ui.KeyValueBlock("Transaction", pairs)
}

func init() {
	blockCmd.Flags().IntVar(&blockTxIndex, "tx-index", -1, "show the transaction at this index")
}
