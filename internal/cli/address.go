package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/output"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressCmd = &cobra.Command{
	Use:   "address <address>...",
	Short: "Decode and convert addresses offline",
	Long: `Decode legacy, cashaddr and SLP addresses and print every encoding.
No upstream is contacted. With --network the address must belong to that
network.

Example:
  cashgate address 1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu
  cashgate address -n testnet bchtest:qzjtnzcvzxx7s0na88yrg3zl28wwvfp97538sgrrmr -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAddress,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(addressCmd)
}

// addressInfo is every rendering of one decoded address.
type addressInfo struct {
	Input        string `json:"input"`
	Format       string `json:"format"`
	Network      string `json:"network"`
	Type         string `json:"type"`
	Legacy       string `json:"legacyAddress"`
	Cash         string `json:"cashAddress"`
	SLP          string `json:"slpAddress"`
	TokenAddress string `json:"tokenAddress"`
}

func describeAddress(raw string) (addressInfo, error) {
	addr, err := address.Decode(raw)
	if err != nil {
		return addressInfo{}, err
	}
	if networkName != "" && !address.NetworkMatches(raw, cfg.GetNetwork()) {
		return addressInfo{}, gateerr.WithDetails(gateerr.ErrInvalidNetwork, map[string]string{
			"address": raw,
			"network": cfg.Network,
		})
	}

	return addressInfo{
		Input:        raw,
		Format:       string(addr.Format),
		Network:      string(addr.Network),
		Type:         addr.Type.String(),
		Legacy:       addr.Legacy(),
		Cash:         addr.CashAddress(),
		SLP:          addr.SLPAddress(),
		TokenAddress: addr.TokenAddress(),
	}, nil
}

func runAddress(_ *cobra.Command, args []string) error {
	infos := make([]addressInfo, 0, len(args))
	for _, raw := range args {
		info, err := describeAddress(raw)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	if formatter.IsJSON() {
		if len(infos) == 1 {
			return formatter.Print(infos[0])
		}
		return formatter.Print(infos)
	}

	table := output.NewTable("INPUT", "NETWORK", "TYPE", "LEGACY", "CASHADDR", "SLP")
	for _, i := range infos {
		table.AddRow(i.Input, i.Network, i.Type, i.Legacy, i.Cash, i.SLP)
	}
	return formatter.Print(table)
}
