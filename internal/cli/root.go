// Package cli implements the cashgate command-line interface.
//
// Command state lives in package globals set up in PersistentPreRunE, the
// usual cobra layout.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/cashgate/internal/config"
	"github.com/mrz1836/cashgate/internal/output"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

var (
	homeDir      string
	outputFormat string
	networkName  string
	verbose      bool

	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

var rootCmd = &cobra.Command{
	Use:   "cashgate",
	Short: "REST gateway for Bitcoin Cash infrastructure",
	Long: `cashgate serves a versioned REST API in front of a Bitcoin Cash full node,
an Insight explorer, Blockbook, a CashAccounts lookup server and SLPDB.

Example:
  cashgate serve --port 3000
  cashgate address 1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu
  cashgate config show -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
	}
	return err
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	return gateerr.ExitCode(err)
}

// initGlobals loads the config file, then the environment, then flags.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	loaded, err := config.Load(config.Path(home))
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Defaults()
	default:
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if networkName != "" {
		cfg.Network = networkName
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		logger = config.NullLogger()
	}

	w := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.DetectFormat(w, output.ParseFormat(cfg.Output.DefaultFormat)), w)
	return nil
}

func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&homeDir, "home", "", "cashgate data directory (default: ~/.cashgate)")
	flags.StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	flags.StringVarP(&networkName, "network", "n", "", "network: mainnet, testnet, regtest")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
