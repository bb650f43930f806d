// Package address decodes, validates and converts Bitcoin Cash addresses.
//
// Three textual encodings are accepted: legacy base58check, cashaddr (with
// or without its network prefix) and the SLP flavor of cashaddr. Token-aware
// cashaddr types are recognized as well.
package address

import (
	"errors"
	"fmt"
	"strings"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

// MaxInputLength bounds an address string. The longest valid form is an
// SLP address for a 64-byte hash.
const MaxInputLength = 128

// ErrInputTooLong indicates an address string longer than MaxInputLength.
var ErrInputTooLong = errors.New("address too long")

// ErrNoLegacyForm indicates a hash that legacy addresses cannot carry.
var ErrNoLegacyForm = errors.New("address has no legacy form")

// Legacy version bytes.
const (
	versionMainP2PKH = 0x00
	versionMainP2SH  = 0x05
	versionTestP2PKH = 0x6f
	versionTestP2SH  = 0xc4
)

// Format identifies the textual encoding an address arrived in.
type Format string

// Supported formats.
const (
	FormatLegacy Format = "legacy"
	FormatCash   Format = "cashaddr"
	FormatSLP    Format = "slpaddr"
)

// Type is the cashaddr address type.
type Type byte

// Address types. The token-aware variants come from the CashTokens upgrade.
const (
	P2PKH           Type = 0
	P2SH            Type = 1
	P2PKHWithTokens Type = 2
	P2SHWithTokens  Type = 3
)

// String returns a readable type name.
func (t Type) String() string {
	switch t {
	case P2PKH:
		return "p2pkh"
	case P2SH:
		return "p2sh"
	case P2PKHWithTokens:
		return "p2pkh-tokens"
	case P2SHWithTokens:
		return "p2sh-tokens"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// IsScriptHash reports whether the type pays to a script hash.
func (t Type) IsScriptHash() bool {
	return t == P2SH || t == P2SHWithTokens
}

// Address is a decoded address.
type Address struct {
	Network Network
	Type    Type
	Hash    []byte
	Format  Format
}

// Decode parses an address in any supported encoding.
func Decode(input string) (*Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, gateerr.Input(gateerr.ErrInvalidAddress, "address can not be empty")
	}
	if len(input) > MaxInputLength {
		return nil, invalidAddress(input[:MaxInputLength]+"...", ErrInputTooLong)
	}

	if addr, err := decodeLegacy(input); err == nil {
		return addr, nil
	}

	if strings.Contains(input, ":") {
		return decodeCash(input)
	}

	lower := strings.ToLower(input)
	if lower != input && strings.ToUpper(input) != input {
		return nil, invalidAddress(input, ErrMixedCase)
	}

	// Prefix-less cashaddr: the checksum commits to the prefix, so only the
	// right one verifies.
	for _, prefix := range knownPrefixes() {
		if addr, err := decodeCash(prefix + ":" + lower); err == nil {
			return addr, nil
		}
	}

	return nil, invalidAddress(input, ErrInvalidCashAddr)
}

// Validate decodes an address and returns its legacy form.
func Validate(input string) (string, error) {
	addr, err := Decode(input)
	if err != nil {
		return "", err
	}
	legacy := addr.Legacy()
	if legacy == "" {
		return "", invalidAddress(input, ErrNoLegacyForm)
	}
	return legacy, nil
}

func decodeLegacy(input string) (*Address, error) {
	version, hash, err := decodeBase58Check(input)
	if err != nil {
		return nil, err
	}

	addr := &Address{Hash: hash, Format: FormatLegacy}
	switch version {
	case versionMainP2PKH:
		addr.Network, addr.Type = Mainnet, P2PKH
	case versionMainP2SH:
		addr.Network, addr.Type = Mainnet, P2SH
	case versionTestP2PKH:
		addr.Network, addr.Type = Testnet, P2PKH
	case versionTestP2SH:
		addr.Network, addr.Type = Testnet, P2SH
	default:
		return nil, gateerr.WithDetails(gateerr.ErrUnsupportedVersion, map[string]string{
			"version": fmt.Sprintf("0x%02x", version),
		})
	}
	return addr, nil
}

func decodeCash(input string) (*Address, error) {
	payload, err := decodeCashAddr(input)
	if err != nil {
		return nil, invalidAddress(input, err)
	}

	network, format, ok := networkForPrefix(payload.prefix)
	if !ok {
		return nil, invalidAddress(input, fmt.Errorf("%w: unknown prefix %q", ErrInvalidCashAddr, payload.prefix))
	}

	if payload.typeBits > byte(P2SHWithTokens) {
		return nil, invalidAddress(input, fmt.Errorf("%w: unknown type %d", ErrInvalidCashAddr, payload.typeBits))
	}

	return &Address{
		Network: network,
		Type:    Type(payload.typeBits),
		Hash:    payload.hash,
		Format:  format,
	}, nil
}

func invalidAddress(input string, cause error) error {
	return &gateerr.GateError{
		Code:     gateerr.ErrInvalidAddress.Code,
		Message:  "Invalid BCH address. Double check your address is valid: " + input,
		Cause:    cause,
		Status:   gateerr.ErrInvalidAddress.Status,
		ExitCode: gateerr.ErrInvalidAddress.ExitCode,
	}
}

// Legacy renders the base58check form. Token-aware types map to their plain
// counterparts since legacy addresses cannot signal token support. Hashes
// other than 20 bytes have no legacy form and render as "".
func (a *Address) Legacy() string {
	if len(a.Hash) != hash160Len {
		return ""
	}

	var version byte
	switch {
	case a.Network == Mainnet && a.Type.IsScriptHash():
		version = versionMainP2SH
	case a.Network == Mainnet:
		version = versionMainP2PKH
	case a.Type.IsScriptHash():
		version = versionTestP2SH
	default:
		version = versionTestP2PKH
	}
	return encodeBase58Check(version, a.Hash)
}

// CashAddress renders the prefixed cashaddr form without token support.
func (a *Address) CashAddress() string {
	return a.render(a.Network.CashPrefix(), a.plainType())
}

// SLPAddress renders the prefixed SLP form.
func (a *Address) SLPAddress() string {
	return a.render(a.Network.SLPPrefix(), a.plainType())
}

// TokenAddress renders the token-aware cashaddr form.
func (a *Address) TokenAddress() string {
	t := a.plainType()
	if t == P2SH {
		t = P2SHWithTokens
	} else {
		t = P2PKHWithTokens
	}
	return a.render(a.Network.CashPrefix(), t)
}

// IsTestnet reports whether the address belongs to testnet or regtest.
func (a *Address) IsTestnet() bool {
	return a.Network == Testnet || a.Network == Regtest
}

// IsMainnet reports whether the address belongs to mainnet.
func (a *Address) IsMainnet() bool {
	return a.Network == Mainnet
}

func (a *Address) plainType() Type {
	if a.Type.IsScriptHash() {
		return P2SH
	}
	return P2PKH
}

func (a *Address) render(prefix string, t Type) string {
	s, err := encodeCashAddr(prefix, byte(t), a.Hash)
	if err != nil {
		// Hash length was checked on decode.
		return ""
	}
	return s
}

// ToLegacy converts any supported address into legacy form.
func ToLegacy(input string) (string, error) {
	return Validate(input)
}

// ToCash converts any supported address into prefixed cashaddr form.
func ToCash(input string) (string, error) {
	addr, err := Decode(input)
	if err != nil {
		return "", err
	}
	return addr.CashAddress(), nil
}

// ToSLP converts any supported address into prefixed SLP form.
func ToSLP(input string) (string, error) {
	addr, err := Decode(input)
	if err != nil {
		return "", err
	}
	return addr.SLPAddress(), nil
}

// IsInvalidAddress reports whether err came from a failed decode.
func IsInvalidAddress(err error) bool {
	return errors.Is(err, gateerr.ErrInvalidAddress) || errors.Is(err, gateerr.ErrUnsupportedVersion)
}
