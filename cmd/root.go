package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/devMonkRahul/w3send/internal/config"
	"github.com/devMonkRahul/w3send/internal/telemetry"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgDir      string
	networkFlag string
	rpcFlag     string
	verbose     bool
	logFormat   string

	cfg    *config.Config
	logger = zerolog.Nop()

	shutdownTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "w3send",
	Short: "Send EIP-1559 transfers and follow them to confirmation",
	Long: `w3send signs and broadcasts native-currency transfers on EVM chains and
tracks them until they reach the requested number of confirmations.

Keys come from the OS keychain, an environment variable or HashiCorp Vault.
They are never written to config files and never logged.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		format := cfg.Log.Format
		if logFormat != "" {
			format = logFormat
		}
		logger = telemetry.NewLogger(cmd.ErrOrStderr(), level, format)

		shutdownTracing, err = telemetry.InitTracer(cmd.Context(), "w3send", Version, cfg.OtelEndpoint)
		if err != nil {
			return fmt.Errorf("starting tracer: %w", err)
		}
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushTracing()
	if err != nil {
		os.Exit(1)
	}
}

func flushTracing() {
	if shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn().Err(err).Msg("flushing traces")
	}
	shutdownTracing = nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", "", "config directory (default ~/.w3send)")
	pf.StringVarP(&networkFlag, "network", "n", "", "network to use (default from config)")
	pf.StringVar(&rpcFlag, "rpc", "", "use this RPC URL instead of the network's list")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(
		sendCmd,
		waitCmd,
		balanceCmd,
		nonceCmd,
		blockCmd,
		eventsCmd,
		networkCmd,
		walletCmd,
		convertCmd,
		keccakCmd,
		randomHexCmd,
		rpcCmd,
		configCmd,
	)
}
