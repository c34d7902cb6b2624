package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"github.com/devMonkRahul/w3send/internal/ui"
)

var keccakCmd = &cobra.Command{
	Use:   "keccak <input>",
	Short: "Compute the Keccak-256 hash of text or hex input",
	Long: `Compute the Keccak-256 hash of the given input.

If the input starts with 0x, it's treated as raw hex bytes.
Otherwise, it's treated as a UTF-8 string.

Also shows the 4-byte selector for quick function selector lookups.

Examples:
  w3send keccak "transfer(address,uint256)"
  w3send keccak "Hello, world!"
  w3send keccak 0xdeadbeef`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		data, inputType, err := keccakInput(input)
		if err != nil {
			return err
		}
		hash := keccak256(data)

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Keccak-256", []ui.KV{
			{Key: "Input", Value: input},
			{Key: "Type", Value: inputType},
			{Key: "Keccak-256", Value: "0x" + hex.EncodeToString(hash)},
			{Key: "Selector", Value: "0x" + hex.EncodeToString(hash[:4])},
		}))
		return nil
	},
}

// keccakInput decodes 0x-prefixed input as bytes and anything else as text.
func keccakInput(input string) ([]byte, string, error) {
	if !has0x(input) {
		return []byte(input), "text", nil
	}
	raw, err := hexBytes(input)
	if err != nil {
		return nil, "", fmt.Errorf("invalid hex input: %w", err)
	}
	return raw, "hex", nil
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func has0x(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// hexBytes decodes hex with an optional 0x prefix.
func hexBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if has0x(s) {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
