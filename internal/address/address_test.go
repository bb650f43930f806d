package address_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/address"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

const (
	mainLegacy  = "1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu"
	mainCash    = "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"
	mainCash2   = "bitcoincash:qqqvv56zepke5k0xeaehlmjtmkv9ly2uzgkxpajdx3"
	testCash    = "bchtest:qzjtnzcvzxx7s0na88yrg3zl28wwvfp97538sgrrmr"
	testSLPP2SH = "slptest:pz0qcslrqn7hr44hsszwl4lw5r6udkg6zqv7sq3kk7"
	mainP2SH32  = "bitcoincash:pvqqzqsrqszsvpcgpy9qkrqdpc83qygjzv2p29shrqv35xcur50p7h2c7ctj5"
)

func TestDecode_KnownVectors(t *testing.T) {
	t.Parallel()

	fromLegacy, err := address.Decode(mainLegacy)
	require.NoError(t, err)
	assert.Equal(t, address.FormatLegacy, fromLegacy.Format)
	assert.Equal(t, address.Mainnet, fromLegacy.Network)
	assert.Equal(t, address.P2PKH, fromLegacy.Type)
	assert.Equal(t, mainCash, fromLegacy.CashAddress())

	fromCash, err := address.Decode(mainCash)
	require.NoError(t, err)
	assert.Equal(t, address.FormatCash, fromCash.Format)
	assert.Equal(t, mainLegacy, fromCash.Legacy())
	assert.Equal(t, fromLegacy.Hash, fromCash.Hash)
}

func TestDecode_AcceptedForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		network address.Network
		typ     address.Type
		format  address.Format
	}{
		{"mainnet cashaddr", mainCash2, address.Mainnet, address.P2PKH, address.FormatCash},
		{"testnet cashaddr", testCash, address.Testnet, address.P2PKH, address.FormatCash},
		{"testnet slp p2sh", testSLPP2SH, address.Testnet, address.P2SH, address.FormatSLP},
		{"no prefix", strings.TrimPrefix(mainCash, "bitcoincash:"), address.Mainnet, address.P2PKH, address.FormatCash},
		{"no prefix testnet", strings.TrimPrefix(testCash, "bchtest:"), address.Testnet, address.P2PKH, address.FormatCash},
		{"upper case", strings.ToUpper(mainCash), address.Mainnet, address.P2PKH, address.FormatCash},
		{"surrounding space", "  " + mainLegacy + "\n", address.Mainnet, address.P2PKH, address.FormatLegacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			addr, err := address.Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.network, addr.Network)
			assert.Equal(t, tt.typ, addr.Type)
			assert.Equal(t, tt.format, addr.Format)
			assert.Len(t, addr.Hash, 20)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not-an-address"},
		{"bad checksum cashaddr", mainCash[:len(mainCash)-1] + "q"},
		{"bad checksum legacy", mainLegacy[:len(mainLegacy)-1] + "v"},
		{"mixed case", "bitcoincash:QPM2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
		{"wrong prefix", "bchtest:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
		{"unknown prefix", "dogecoin:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
		{"invalid char", "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := address.Decode(tt.input)
			require.Error(t, err)
			assert.True(t, address.IsInvalidAddress(err), "expected invalid address error, got %v", err)
			assert.Equal(t, 400, gateerr.HTTPStatus(err))
		})
	}
}

func TestDecode_OversizedInputFailsFast(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		strings.Repeat("2", 200_000),
		"bitcoincash:" + strings.Repeat("q", 200_000),
	} {
		start := time.Now()
		_, err := address.Decode(input)
		elapsed := time.Since(start)

		require.Error(t, err)
		require.ErrorIs(t, err, address.ErrInputTooLong)
		assert.True(t, address.IsInvalidAddress(err))
		assert.Less(t, elapsed, 50*time.Millisecond)
	}

	_, err := address.Decode(strings.Repeat("2", 40))
	require.Error(t, err)
	assert.NotErrorIs(t, err, address.ErrInputTooLong)
}

func TestLegacy_WideHashHasNoLegacyForm(t *testing.T) {
	t.Parallel()

	addr, err := address.Decode(mainP2SH32)
	require.NoError(t, err)
	assert.Len(t, addr.Hash, 32)
	assert.Equal(t, address.P2SH, addr.Type)
	assert.Empty(t, addr.Legacy())
	assert.Equal(t, mainP2SH32, addr.CashAddress())

	_, err = address.ToLegacy(mainP2SH32)
	require.ErrorIs(t, err, address.ErrNoLegacyForm)
	assert.True(t, address.IsInvalidAddress(err))
}

func TestDecode_InvalidMessageNamesInput(t *testing.T) {
	t.Parallel()
	_, err := address.Decode("bitcoincash:nope")
	require.Error(t, err)

	var ge *gateerr.GateError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "Invalid BCH address. Double check your address is valid: bitcoincash:nope", ge.Message)
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()

	for _, input := range []string{mainLegacy, mainCash, mainCash2, testCash, testSLPP2SH} {
		first, err := address.Validate(input)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := address.Validate(input)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}

		// The legacy form decodes back to the same hash.
		orig, err := address.Decode(input)
		require.NoError(t, err)
		back, err := address.Decode(first)
		require.NoError(t, err)
		assert.Equal(t, orig.Hash, back.Hash)
		assert.Equal(t, orig.Type.IsScriptHash(), back.Type.IsScriptHash())
	}
}

func TestConversions_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, input := range []string{mainCash, mainCash2, testCash, testSLPP2SH} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			addr, err := address.Decode(input)
			require.NoError(t, err)

			for _, rendered := range []string{addr.Legacy(), addr.CashAddress(), addr.SLPAddress(), addr.TokenAddress()} {
				again, err := address.Decode(rendered)
				require.NoError(t, err, rendered)
				assert.Equal(t, addr.Hash, again.Hash)
			}
		})
	}
}

func TestTokenAddress(t *testing.T) {
	t.Parallel()

	addr, err := address.Decode(mainCash)
	require.NoError(t, err)

	token := addr.TokenAddress()
	assert.True(t, strings.HasPrefix(token, "bitcoincash:z"), token)

	decoded, err := address.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, address.P2PKHWithTokens, decoded.Type)
	assert.Equal(t, mainCash, decoded.CashAddress())
	assert.Equal(t, mainLegacy, decoded.Legacy())

	p2sh, err := address.Decode(testSLPP2SH)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p2sh.TokenAddress(), "bchtest:r"), p2sh.TokenAddress())
}

func TestSLPConversion(t *testing.T) {
	t.Parallel()

	slp, err := address.ToSLP(testCash)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(slp, "slptest:q"))

	cash, err := address.ToCash(slp)
	require.NoError(t, err)
	assert.Equal(t, testCash, cash)

	legacy, err := address.ToLegacy(slp)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(legacy, "m") || strings.HasPrefix(legacy, "n"), legacy)
}

func TestNetworkMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		configured address.Network
		expected   bool
	}{
		{"mainnet on mainnet", mainCash2, address.Mainnet, true},
		{"mainnet on testnet", mainCash2, address.Testnet, false},
		{"testnet on testnet", testCash, address.Testnet, true},
		{"testnet on mainnet", testCash, address.Mainnet, false},
		{"legacy mainnet", mainLegacy, address.Mainnet, true},
		{"slp testnet", testSLPP2SH, address.Testnet, true},
		{"legacy testnet on regtest", mustLegacy(t, testCash), address.Regtest, true},
		{"cashaddr testnet on regtest", testCash, address.Regtest, false},
		{"invalid address", "garbage", address.Mainnet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, address.NetworkMatches(tt.input, tt.configured))
		})
	}
}

func TestNetworkMatches_UnsetNetworkFailsClosed(t *testing.T) { //nolint:paralleltest // mutates the warn hook
	var warnings []string
	address.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	t.Cleanup(func() { address.SetWarnFunc(nil) })

	assert.False(t, address.NetworkMatches(mainCash2, ""))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "NETWORK is not configured")
}

func TestParseNetwork(t *testing.T) {
	t.Parallel()

	for input, expected := range map[string]address.Network{
		"mainnet": address.Mainnet,
		"MAIN":    address.Mainnet,
		"testnet": address.Testnet,
		"test":    address.Testnet,
		"regtest": address.Regtest,
	} {
		got, ok := address.ParseNetwork(input)
		assert.True(t, ok, input)
		assert.Equal(t, expected, got, input)
	}

	_, ok := address.ParseNetwork("dogenet")
	assert.False(t, ok)
}

func mustLegacy(t *testing.T, input string) string {
	t.Helper()
	legacy, err := address.ToLegacy(input)
	require.NoError(t, err)
	return legacy
}
