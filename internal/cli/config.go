package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/cashgate/internal/config"
	"github.com/mrz1836/cashgate/internal/output"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View, create and validate the cashgate configuration file.`,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Create ~/.cashgate/config.yaml with default settings. An existing file is
kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after the file, the environment and flags are
applied. Credentials are masked.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}

	configGetCmd = &cobra.Command{
		Use:   "get <path>",
		Short: "Print one configuration value",
		Long: `Print one value by its dotted path.

Examples:
  cashgate config get network
  cashgate config get upstreams.rpc.url
  cashgate config get limits.free_per_window`,
		Args: cobra.ExactArgs(1),
		RunE: runConfigGet,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check that the server can start with this configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	}

	configForce bool
)

const masked = "********"

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configValidateCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := config.Path(cfg.Home)
	if _, err := os.Stat(path); err == nil && !configForce {
		return gateerr.WithSuggestion(
			gateerr.WithDetails(gateerr.ErrConfigInvalid, map[string]string{"path": path}),
			"configuration already exists, use --force to overwrite",
		)
	}

	defaults := config.Defaults()
	defaults.Home = cfg.Home
	if err := config.Save(defaults, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	msg := output.Messenger{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	msg.Success("configuration written to %s", path)
	msg.Info("set upstreams.rpc.url and the rpc credentials before running cashgate serve")
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	return formatter.Print(flatten(cfg))
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, ok := flatten(cfg)[args[0]]
	if !ok {
		return gateerr.WithDetails(gateerr.ErrUnknownConfigKey, map[string]string{"path": args[0]})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
	return err
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	output.Messenger{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}.Success("configuration is valid")
	return nil
}

// flatten lists every setting by its dotted YAML path, with secrets masked.
func flatten(c *config.Config) map[string]string {
	password := ""
	if c.Upstreams.RPC.Password != "" {
		password = masked
	}
	itoa := strconv.Itoa
	btoa := strconv.FormatBool

	return map[string]string{
		"home":                           c.Home,
		"network":                        c.Network,
		"server.port":                    itoa(c.Server.Port),
		"server.timeout_seconds":         itoa(c.Server.TimeoutSeconds),
		"server.gzip":                    btoa(c.Server.Gzip),
		"server.debug":                   btoa(c.Server.Debug),
		"server.body_limit":              c.Server.BodyLimit,
		"upstreams.rpc.url":              c.Upstreams.RPC.URL,
		"upstreams.rpc.username":         c.Upstreams.RPC.Username,
		"upstreams.rpc.password":         password,
		"upstreams.insight":              c.Upstreams.Insight,
		"upstreams.blockbook":            c.Upstreams.Blockbook,
		"upstreams.cashaccounts":         c.Upstreams.CashAccounts,
		"upstreams.slpdb":                c.Upstreams.SLPDB,
		"upstreams.timeout_seconds":      itoa(c.Upstreams.TimeoutSeconds),
		"upstreams.rate_per_second":      strconv.FormatFloat(c.Upstreams.RatePerSecond, 'f', -1, 64),
		"upstreams.burst":                itoa(c.Upstreams.Burst),
		"limits.window_seconds":          itoa(c.Limits.WindowSeconds),
		"limits.free_per_window":         itoa(c.Limits.FreePerWindow),
		"limits.pro_per_window":          itoa(c.Limits.ProPerWindow),
		"limits.per_client":              btoa(c.Limits.PerClient),
		"limits.free_array_size":         itoa(c.Limits.FreeArraySize),
		"limits.pro_array_size":          itoa(c.Limits.ProArraySize),
		"auth.pro_keys":                  itoa(len(c.Auth.ProKeys)),
		"cache.cashaccounts_ttl_seconds": itoa(c.Cache.CashAccountsTTLSeconds),
		"cache.capacity":                 itoa(c.Cache.Capacity),
		"feed.enabled":                   btoa(c.Feed.Enabled),
		"feed.poll_seconds":              itoa(c.Feed.PollSeconds),
		"output.default_format":          c.Output.DefaultFormat,
		"output.color":                   c.Output.Color,
		"logging.level":                  c.Logging.Level,
		"logging.file":                   strings.TrimSpace(c.Logging.File),
	}
}
