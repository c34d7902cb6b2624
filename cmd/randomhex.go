package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const maxRandomBytes = 1024

var randomHexCmd = &cobra.Command{
	Use:   "randomhex [bytes]",
	Short: "Print cryptographically random bytes as 0x-prefixed hex",
	Long: `Print n random bytes (default 32) from the OS CSPRNG, e.g. for salts
or test identifiers.

Examples:
  w3send randomhex
  w3send randomhex 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 32
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid byte count %q", args[0])
			}
			n = v
		}
		s, err := randomHex(n)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

func randomHex(n int) (string, error) {
	if n < 1 || n > maxRandomBytes {
		return "", fmt.Errorf("byte count must be between 1 and %d", maxRandomBytes)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}
