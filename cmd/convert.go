package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/ui"
)

// maxHexAmountBits keeps hex input within what chain.FormatUnits can render.
const maxHexAmountBits = 190

var (
	convertFrom string
	convertTo   string
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount>",
	Short: "Convert between ETH, Gwei and Wei",
	Long: `Convert an amount between ether denominations without rounding.

An amount starting with 0x is read as a hex wei value. Without --to every
unit is shown, plus the wei value in hex.

Examples:
  w3send convert 1.5                 # ETH → gwei, wei, hex
  w3send convert 50 --from gwei --to eth
  w3send convert 0xde0b6b3a7640000   # hex wei`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wei, err := toWei(args[0], convertFrom)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if convertTo != "" {
			s, err := fromWei(wei, convertTo)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
			return nil
		}

		eth, _ := fromWei(wei, "ether")
		gwei, _ := fromWei(wei, "gwei")
		fmt.Fprintln(out, ui.KeyValueBlock("Unit Conversion", []ui.KV{
			{Key: "Input", Value: args[0]},
			{Key: "ETH", Value: eth},
			{Key: "Gwei", Value: gwei},
			{Key: "Wei", Value: wei.String()},
			{Key: "Hex", Value: "0x" + wei.Text(16)},
		}))
		return nil
	},
}

// toWei parses amount in unit. Hex amounts are always wei.
func toWei(amount, unit string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if has0x(amount) {
		n, ok := new(big.Int).SetString(amount[2:], 16)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid hex amount %q", amount)
		}
		if n.BitLen() > maxHexAmountBits {
			return nil, fmt.Errorf("hex amount %q is too large", amount)
		}
		return n, nil
	}
	decimals, err := chain.UnitDecimals(unit)
	if err != nil {
		return nil, err
	}
	return chain.ParseUnits(amount, decimals)
}

func fromWei(wei *big.Int, unit string) (string, error) {
	decimals, err := chain.UnitDecimals(unit)
	if err != nil {
		return "", err
	}
	return chain.FormatUnits(wei, decimals), nil
}

func init() {
	convertCmd.Flags().StringVar(&convertFrom, "from", "ether", "unit of the input: eth, gwei or wei")
	convertCmd.Flags().StringVar(&convertTo, "to", "", "print only this unit: eth, gwei or wei")
}
