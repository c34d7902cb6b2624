package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/submitter"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var (
	sendTo          string
	sendValue       string
	sendUnit        string
	sendKeys        keyFlags
	sendMaxFee      string
	sendPriorityFee string
	sendGasLimit    uint64
	sendEstimateGas bool
	sendWait        bool
	sendYes         bool
	sendWaitOpts    waitFlags
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send native currency with an EIP-1559 transaction",
	Long: `Build, sign and broadcast a type-2 transfer, then optionally wait for it
to be confirmed.

The signing key comes from the selected wallet's keychain entry, from an
environment variable (--key-env) or from HashiCorp Vault (--vault-path).
Fees default to 2 x base fee + the node's suggested tip.

Examples:
  w3send send --to 0xRecipient --value 0.001
  w3send send --to bob --value 0.001 --wallet alice --wait --live
  w3send send --to 0xRecipient --value 0.001 --key-env SIGNER_PRIVATE_KEY --yes
  w3send send --to 0xRecipient --value 500 --unit gwei --max-fee 40 --priority-fee 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		decimals, err := chain.UnitDecimals(sendUnit)
		if err != nil {
			return err
		}
		amount, err := chain.ParseUnits(sendValue, decimals)
		if err != nil {
			return err
		}
		overrides, err := parseFeeOverrides(sendMaxFee, sendPriorityFee)
		if err != nil {
			return err
		}
		to, err := resolveAddress(sendTo)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		src, from, key, err := sendKeys.resolveKey(ctx)
		if err != nil {
			return err
		}

		client, n, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Fetching balance and fees on %s...", n.Name))
		spin.Start()
		balance, fees, err := previewState(ctx, client, from)
		spin.Stop()
		if err != nil {
			return err
		}

		maxFee, tip := fees.MaxFeePerGas, fees.MaxPriorityFeePerGas
		if overrides != nil {
			if overrides.MaxFeePerGas != nil {
				maxFee = overrides.MaxFeePerGas
			}
			if overrides.MaxPriorityFeePerGas != nil {
				tip = overrides.MaxPriorityFeePerGas
			}
		}
		gasLabel := fmt.Sprintf("%d", chain.GasLimitTransfer)
		switch {
		case sendEstimateGas:
			gasLabel = "estimate"
		case sendGasLimit > 0:
			gasLabel = fmt.Sprintf("%d", sendGasLimit)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Send Transaction", []ui.KV{
			{Key: "Network", Value: ui.Network(n.Name) + ui.Meta(fmt.Sprintf(" (chain %d)", n.ChainID))},
			{Key: "From", Value: ui.Addr(from.Hex())},
			{Key: "To", Value: ui.Addr(to.Hex())},
			{Key: "Value", Value: formatWei(amount, sendUnit)},
			{Key: "Balance", Value: formatWei(balance, "ether")},
			{Key: "Base Fee", Value: formatWei(fees.BaseFee, "gwei")},
			{Key: "Max Fee", Value: formatWei(maxFee, "gwei")},
			{Key: "Priority Fee", Value: formatWei(tip, "gwei")},
			{Key: "Gas Limit", Value: gasLabel},
			{Key: "Key", Value: src.String()},
		}))
		if balance.Cmp(amount) < 0 {
			fmt.Fprintln(out, ui.Warn("Balance is below the amount; the node will reject this."))
		}

		if !sendYes && !ui.Confirm(cmd.InOrStdin(), out, "Broadcast this transaction?") {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		s := newSubmitter(client)
		submitCtx, cancel := context.WithTimeout(ctx, config.SubmitTimeout)
		sub, err := s.Submit(submitCtx, submitter.SubmitParams{
			From:        from.Hex(),
			To:          to.Hex(),
			Amount:      amount,
			PrivateKey:  key,
			ChainID:     big.NewInt(n.ChainID),
			GasLimit:    sendGasLimit,
			Fees:        overrides,
			EstimateGas: sendEstimateGas,
		})
		cancel()
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success("Transaction sent"))
		fmt.Fprintf(out, "  %s %s\n", ui.Meta("Hash: "), ui.Addr(sub.Hash.Hex()))
		fmt.Fprintf(out, "  %s %d\n", ui.Meta("Nonce:"), sub.Nonce)
		if u := n.TxURL(sub.Hash.Hex()); u != "" {
			fmt.Fprintf(out, "  %s %s\n", ui.Meta("View: "), u)
		}

		if !sendWait && !sendWaitOpts.live {
			fmt.Fprintln(out, ui.Meta("Track it with: w3send wait "+sub.Hash.Hex()))
			return nil
		}

		receipt, err := trackReceipt(cmd, s, n, sub.Hash, sendWaitOpts)
		if err != nil {
			return explainWaitError(cmd.ErrOrStderr(), err)
		}
		fmt.Fprintln(out, receiptBlock(n, receipt))

		after, err := client.GetBalance(ctx, from)
		if err != nil {
			logger.Warn().Err(err).Msg("fetching balance after send")
			return nil
		}
		fmt.Fprintf(out, "%s %s → %s\n", ui.Meta("Balance:"), formatWei(balance, "ether"), formatWei(after, "ether"))
		return nil
	},
}

// previewState fetches the sender's balance and the current fee estimate in parallel.
func previewState(ctx context.Context, client *chain.EVMClient, from common.Address) (*big.Int, *chain.FeeEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, config.QueryTimeout)
	defer cancel()

	var (
		balance *big.Int
		fees    *chain.FeeEstimate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = client.GetBalance(gctx, from)
		return err
	})
	g.Go(func() error {
		var err error
		fees, err = client.GetFeeEstimate(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return balance, fees, nil
}

// parseFeeOverrides reads gwei amounts. Both empty means no override.
func parseFeeOverrides(maxFee, priorityFee string) (*submitter.FeeOverrides, error) {
	if maxFee == "" && priorityFee == "" {
		return nil, nil
	}
	o := &submitter.FeeOverrides{}
	if maxFee != "" {
		v, err := chain.ParseGwei(maxFee)
		if err != nil {
			return nil, fmt.Errorf("--max-fee: %w", err)
		}
		o.MaxFeePerGas = v
	}
	if priorityFee != "" {
		v, err := chain.ParseGwei(priorityFee)
		if err != nil {
			return nil, fmt.Errorf("--priority-fee: %w", err)
		}
		o.MaxPriorityFeePerGas = v
	}
	return o, nil
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendTo, "to", "", "recipient address or wallet name")
	f.StringVar(&sendValue, "value", "", "amount to send")
	f.StringVar(&sendUnit, "unit", "ether", "unit of --value: eth, gwei or wei")
	f.StringVar(&sendKeys.wallet, "wallet", "", "signing wallet (default from config)")
	f.StringVar(&sendKeys.keyEnv, "key-env", "", "read the private key from this environment variable")
	f.StringVar(&sendKeys.vaultPath, "vault-path", "", "read the private key from this Vault KV v2 path")
	f.StringVar(&sendMaxFee, "max-fee", "", "max fee per gas in gwei (default 2 x base fee + tip)")
	f.StringVar(&sendPriorityFee, "priority-fee", "", "max priority fee per gas in gwei (default node suggestion)")
	f.Uint64Var(&sendGasLimit, "gas-limit", 0, "gas limit (default 21000)")
	f.BoolVar(&sendEstimateGas, "estimate-gas", false, "ask the node for the gas limit")
	f.BoolVar(&sendWait, "wait", false, "wait for confirmations after broadcasting")
	f.BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation prompt")
	sendWaitOpts.register(sendCmd)

	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("value")
	sendCmd.MarkFlagsMutuallyExclusive("key-env", "vault-path")
	sendCmd.MarkFlagsMutuallyExclusive("gas-limit", "estimate-gas")
}
