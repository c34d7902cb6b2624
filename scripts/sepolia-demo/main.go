// sepolia-demo: sends a small transfer on Sepolia from the key in
// $SEPOLIA_PRIVATE_KEY to $DEMO_RECIPIENT and waits for one confirmation,
// printing progress as it goes. A .env file in the working directory is
// loaded first.
//
// Run from the module root:
//
//	go run ./scripts/sepolia-demo
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"time"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/keysource"
	"github.com/devMonkRahul/w3send/internal/rpc"
	"github.com/devMonkRahul/w3send/internal/submitter"
	"github.com/devMonkRahul/w3send/internal/telemetry"
)

// ── config ────────────────────────────────────────────────────────────────────

const (
	keyVar       = "SEPOLIA_PRIVATE_KEY"
	recipientVar = "DEMO_RECIPIENT"
	amountEther  = "0.0001"
	maxWait      = 5 * time.Minute
)

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	log := telemetry.NewLogger(os.Stderr, cfg.Log.Level, "console")

	to := os.Getenv(recipientVar)
	if to == "" {
		return fmt.Errorf("$%s is not set", recipientVar)
	}
	src := keysource.FromEnv(keyVar)
	key, err := src.PrivateKey(ctx)
	if err != nil {
		return err
	}
	from, err := chain.AddressFromKey(key)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	amount, err := chain.ParseUnits(amountEther, chain.EtherDecimals)
	if err != nil {
		return err
	}

	n, err := cfg.Resolve("sepolia")
	if err != nil {
		return err
	}
	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	client, err := rpc.NewSelector(rpc.AlgorithmFastest, log).Connect(selectCtx, n.RPCs)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	s := submitter.New(client, submitter.WithLogger(log))
	sub, rcpt, err := s.SubmitAndWait(ctx, submitter.SubmitParams{
		From:       from.Hex(),
		To:         to,
		Amount:     amount,
		PrivateKey: key,
		ChainID:    chainID(n),
	}, submitter.WaitOptions{
		Confirmations: 1,
		MaxWait:       maxWait,
		OnProgress: func(st submitter.ConfirmationState) {
			fmt.Printf("  %-9s poll %d\n", st.Status, st.Polls)
		},
	})
	if sub != nil {
		fmt.Printf("sent %s ETH from %s\n  hash: %s\n  view: %s\n", amountEther, from.Hex(), sub.Hash.Hex(), n.TxURL(sub.Hash.Hex()))
	}
	if err != nil {
		return err
	}
	if !rcpt.Succeeded() {
		return fmt.Errorf("transaction reverted in block %d", rcpt.BlockNumber)
	}
	fmt.Printf("confirmed in block %d, gas used %d\n", rcpt.BlockNumber, rcpt.GasUsed)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func chainID(n chain.Network) *big.Int { return big.NewInt(n.ChainID) }
