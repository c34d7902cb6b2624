package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/submitter"
	"github.com/devMonkRahul/w3send/internal/ui"
)

// waitFlags are shared by `wait` and `send --wait`.
type waitFlags struct {
	confirmations uint64
	maxWait       time.Duration
	live          bool
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.confirmations, "confirmations", 0, "blocks required on top of inclusion, counting the inclusion block (default from config)")
	cmd.Flags().DurationVar(&f.maxWait, "max-wait", 0, "give up after this long, e.g. 10m (default from config, 0 = no limit)")
	cmd.Flags().BoolVar(&f.live, "live", false, "show a live tracker; press q to stop waiting")
}

var waitOpts waitFlags

var waitCmd = &cobra.Command{
	Use:   "wait <tx-hash>",
	Short: "Wait until a transaction has enough confirmations",
	Long: `Poll for the receipt of a transaction and wait until it is buried under the
requested number of blocks.

The first poll happens immediately. While pending the receipt is polled at
poll_interval; once included, the head is polled at inclusion_poll_interval.

Examples:
  w3send wait 0xabc...
  w3send wait 0xabc... --confirmations 3 --max-wait 10m --live`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := parseTxHash(args[0])
		if err != nil {
			return err
		}
		client, n, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		receipt, err := trackReceipt(cmd, newSubmitter(client), n, hash, waitOpts)
		if err != nil {
			return explainWaitError(cmd.ErrOrStderr(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), receiptBlock(n, receipt))
		return nil
	},
}

func parseTxHash(s string) (common.Hash, error) {
	b, err := hexBytes(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	return common.BytesToHash(b), nil
}

// trackReceipt waits on hash, either with the live tracker or with one log
// line per status change on stderr.
func trackReceipt(cmd *cobra.Command, s *submitter.Submitter, n chain.Network, hash common.Hash, f waitFlags) (*chain.Receipt, error) {
	opts := submitter.WaitOptions{Confirmations: f.confirmations, MaxWait: f.maxWait}
	target := f.confirmations
	if target == 0 {
		target = cfg.Confirmations
	}

	if f.live {
		tc := ui.TrackerConfig{
			Hash:        hash,
			Network:     n.Name,
			ExplorerURL: n.TxURL(hash.Hex()),
			Target:      target,
		}
		return ui.RunTracker(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), tc,
			func(ctx context.Context, onProgress func(submitter.ConfirmationState)) (*chain.Receipt, error) {
				opts.OnProgress = onProgress
				return s.WaitForReceipt(ctx, hash, opts)
			})
	}

	errOut := cmd.ErrOrStderr()
	var (
		last submitter.ConfirmationState
		seen bool
	)
	opts.OnProgress = func(st submitter.ConfirmationState) {
		if seen && st.Status == last.Status && st.Confirmations == last.Confirmations {
			return
		}
		seen, last = true, st
		fmt.Fprintln(errOut, ui.Meta(progressLine(st)))
	}
	return s.WaitForReceipt(cmd.Context(), hash, opts)
}

func progressLine(st submitter.ConfirmationState) string {
	line := fmt.Sprintf("%-9s %d/%d confirmations  poll %d", st.Status, st.Confirmations, st.Target, st.Polls)
	if st.InclusionBlock > 0 {
		line += fmt.Sprintf("  included in block %d", st.InclusionBlock)
	}
	return line
}

// explainWaitError prints a resume hint for waits that ended without an answer.
func explainWaitError(w io.Writer, err error) error {
	hash, ok := submitter.TxHashOf(err)
	switch {
	case !ok:
	case errors.Is(err, submitter.ErrConfirmationTimeout):
		fmt.Fprintln(w, ui.Warn("Still not confirmed. The transaction may yet be mined."))
		fmt.Fprintln(w, ui.Meta("Resume with: w3send wait "+hash.Hex()))
	case errors.Is(err, submitter.ErrCancelled):
		fmt.Fprintln(w, ui.Meta("Stopped waiting. Resume with: w3send wait "+hash.Hex()))
	}
	return err
}

func receiptBlock(n chain.Network, r *chain.Receipt) string {
	status := ui.Success("success")
	if !r.Succeeded() {
		status = ui.Err("reverted")
	}
	pairs := []ui.KV{
		{Key: "Status", Value: status},
		{Key: "Tx Hash", Value: r.TxHash.Hex()},
		{Key: "Block", Value: fmt.Sprintf("%d", r.BlockNumber)},
		{Key: "Gas Used", Value: fmt.Sprintf("%d", r.GasUsed)},
	}
	if r.EffectiveGasPrice != nil {
		pairs = append(pairs, ui.KV{Key: "Gas Price", Value: formatWei(r.EffectiveGasPrice, "gwei")})
	}
	if fee := r.Fee(); fee != nil {
		pairs = append(pairs, ui.KV{Key: "Fee", Value: formatWei(fee, "ether")})
	}
	if u := n.TxURL(r.TxHash.Hex()); u != "" {
		pairs = append(pairs, ui.KV{Key: "Explorer", Value: u})
	}
	return ui.KeyValueBlock("Receipt", pairs)
}

func init() {
	waitOpts.register(waitCmd)
}
