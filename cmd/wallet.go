package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devMonkRahul/w3send/internal/keysource"
	"github.com/devMonkRahul/w3send/internal/ui"
)

var (
	walletKeyEnv   string
	walletKeyStdin bool
	walletYes      bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a watch-only or signing wallet",
	Long: `Add a wallet. With an address it is watch-only. With --key-env or
--key-stdin the private key is imported into the OS keychain (or the
encrypted file store when no keychain is available) and only its address
and keychain reference are written to wallets.json.

Examples:
  w3send wallet add vitalik 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  w3send wallet add alice --key-env SIGNER_PRIVATE_KEY
  w3send wallet add alice --key-stdin < key.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()

		if walletKeyEnv == "" && !walletKeyStdin {
			if len(args) < 2 {
				return errors.New("address required for a watch-only wallet; use --key-env or --key-stdin for a signing wallet")
			}
			mgr, err := walletManager(false)
			if err != nil {
				return err
			}
			if err := mgr.AddWatchOnly(name, args[1]); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
			return nil
		}

		key, err := readImportKey(cmd)
		if err != nil {
			return err
		}
		mgr, err := walletManager(true)
		if err != nil {
			return err
		}
		w, err := mgr.AddWithKey(name, key)
		if err != nil {
			return err
		}
		if len(args) == 2 && !strings.EqualFold(args[1], w.Address) {
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Key controls %s, not %s.", w.Address, args[1])))
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		fmt.Fprintln(out, ui.Meta("Set as default with: w3send wallet use "+name))
		return nil
	},
}

// readImportKey reads the key for `wallet add` from the named variable or stdin.
func readImportKey(cmd *cobra.Command) (string, error) {
	if walletKeyEnv != "" {
		return keysource.FromEnv(walletKeyEnv).PrivateKey(cmd.Context())
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Private key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading key: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return "", keysource.ErrNoKey
	}
	return strings.TrimSpace(line), nil
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := walletManager(false)
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Meta("Add one with: w3send wallet add myWallet 0xYourAddress"))
			return nil
		}

		def := mgr.Default()
		if cfg.DefaultWallet != "" {
			def, _ = mgr.Get(cfg.DefaultWallet)
		}
		t := ui.NewTable(
			ui.Column{Title: "Name"},
			ui.Column{Title: "Address"},
			ui.Column{Title: "Type"},
			ui.Column{Title: "Default"},
		)
		for _, w := range wallets {
			mark := ""
			if def != nil && def.Name == w.Name {
				mark = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Val(w.Name), ui.Addr(w.Address), ui.Meta(w.Type), mark)
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		if !walletYes && !ui.Confirm(cmd.InOrStdin(), out, fmt.Sprintf("Remove wallet %q and its key?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := walletManager(true)
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := walletManager(false)
		if err != nil {
			return err
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new keypair in the keychain",
	Long: `Generate a new secp256k1 keypair and store the private key in the OS
keychain. Only the address is printed; the key is never displayed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := walletManager(true)
		if err != nil {
			return err
		}
		w, err := mgr.Generate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("New Wallet", []ui.KV{
			{Key: "Name", Value: w.Name},
			{Key: "Address", Value: ui.Addr(w.Address)},
			{Key: "Key", Value: "keyring " + w.KeyRef},
		}))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyEnv, "key-env", "", "import the private key from this environment variable")
	walletAddCmd.Flags().BoolVar(&walletKeyStdin, "key-stdin", false, "read the private key from stdin")
	walletAddCmd.MarkFlagsMutuallyExclusive("key-env", "key-stdin")
	walletRemoveCmd.Flags().BoolVarP(&walletYes, "yes", "y", false, "skip the confirmation prompt")

	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletGenerateCmd)
}
