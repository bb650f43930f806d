package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/cashgate/internal/output"
	"github.com/mrz1836/cashgate/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Long: `Print the build version. With --check the latest GitHub release is
fetched and compared.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoglobals // Swapped in tests
var (
	versionCheck bool
	newChecker   = func() *version.Checker { return version.NewChecker() }
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}

type versionReport struct {
	version.Info

	Update *version.Update `json:"update,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	report := versionReport{Info: version.Current()}
	if versionCheck {
		up, err := newChecker().Check(cmd.Context(), report.Version)
		if err != nil {
			return err
		}
		report.Update = &up
	}

	if formatter.IsJSON() {
		return formatter.Print(report)
	}

	msg := output.Messenger{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	msg.Info("cashgate %s", report.Info)
	if u := report.Update; u != nil {
		if u.Newer {
			msg.Warn("%s is available: %s", u.Latest, u.URL)
		} else {
			msg.Success("up to date (latest %s)", u.Latest)
		}
	}
	return nil
}
