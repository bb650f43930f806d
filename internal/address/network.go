package address

import (
	"strings"
	"sync/atomic"
)

// Network is the chain an address or server belongs to.
type Network string

// Supported networks.
const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

// ParseNetwork normalizes a network name. Unknown names return "" and false.
func ParseNetwork(s string) (Network, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main", "livenet":
		return Mainnet, true
	case "testnet", "test", "testnet3", "testnet4":
		return Testnet, true
	case "regtest", "reg":
		return Regtest, true
	default:
		return "", false
	}
}

// CashPrefix returns the cashaddr prefix for the network.
func (n Network) CashPrefix() string {
	switch n {
	case Testnet:
		return "bchtest"
	case Regtest:
		return "bchreg"
	default:
		return "bitcoincash"
	}
}

// SLPPrefix returns the SLP address prefix for the network.
func (n Network) SLPPrefix() string {
	switch n {
	case Testnet:
		return "slptest"
	case Regtest:
		return "slpreg"
	default:
		return "simpleledger"
	}
}

func knownPrefixes() []string {
	return []string{"bitcoincash", "bchtest", "bchreg", "simpleledger", "slptest", "slpreg"}
}

func networkForPrefix(prefix string) (Network, Format, bool) {
	switch prefix {
	case "bitcoincash":
		return Mainnet, FormatCash, true
	case "bchtest":
		return Testnet, FormatCash, true
	case "bchreg":
		return Regtest, FormatCash, true
	case "simpleledger":
		return Mainnet, FormatSLP, true
	case "slptest":
		return Testnet, FormatSLP, true
	case "slpreg":
		return Regtest, FormatSLP, true
	default:
		return "", "", false
	}
}

// WarnFunc receives warnings raised while checking networks.
type WarnFunc func(format string, args ...any)

//nolint:gochecknoglobals // Process-wide warning hook, set once at startup
var warnHook atomic.Pointer[WarnFunc]

// SetWarnFunc installs the function used to report configuration warnings.
func SetWarnFunc(fn WarnFunc) {
	if fn == nil {
		warnHook.Store(nil)
		return
	}
	warnHook.Store(&fn)
}

func warn(format string, args ...any) {
	if fn := warnHook.Load(); fn != nil {
		(*fn)(format, args...)
	}
}

// NetworkMatches reports whether input belongs to the configured network.
// It fails closed: an undecodable address, a mismatch, or an unset network
// all return false. Legacy testnet addresses are accepted on regtest since
// both share version bytes.
func NetworkMatches(input string, configured Network) bool {
	if configured == "" {
		warn("NETWORK is not configured, rejecting address %s", input)
		return false
	}

	addr, err := Decode(input)
	if err != nil {
		return false
	}

	if addr.Network == configured {
		return true
	}

	return addr.Format == FormatLegacy && addr.Network == Testnet && configured == Regtest
}
