package slpdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEncode_TokenList(t *testing.T) {
	t.Parallel()

	encoded, err := query{V: 3, Q: q{
		DB:      []string{"t"},
		Find:    findQuery{Query: map[string]any{}},
		Project: tokenFields,
		Limit:   100,
	}}.encode()
	require.NoError(t, err)
	assert.Equal(t,
		"eyJ2IjozLCJxIjp7ImRiIjpbInQiXSwiZmluZCI6eyIkcXVlcnkiOnt9fSwicHJvamVjdCI6eyJ0b2tlbkRldGFpbHMiOjEsInRva2VuU3RhdHMiOjEsIl9pZCI6MH0sImxpbWl0IjoxMDB9fQ==",
		encoded)
}

func TestDecimal_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		text  string
		value float64
	}{
		{"string", `"21000000.5"`, "21000000.5", 21000000.5},
		{"number", `42`, "42", 42},
		{"wrapped", `{"$numberDecimal":"0.00000001"}`, "0.00000001", 0.00000001},
		{"null", `null`, "0", 0},
		{"garbage", `"abc"`, "abc", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var d Decimal
			require.NoError(t, json.Unmarshal([]byte(tc.input), &d))
			assert.Equal(t, tc.text, d.String())
			assert.InDelta(t, tc.value, d.Float(), 1e-12)
		})
	}
}

func TestTokenDoc_Flatten(t *testing.T) {
	t.Parallel()

	var doc tokenDoc
	require.NoError(t, json.Unmarshal([]byte(`{
		"tokenDetails": {"tokenIdHex":"abcd","decimals":8,"symbol":"TT","name":"Test","documentSha256Hex":"ff","genesisOrMintQuantity":"1000","timestamp_unix":1550000000,"versionType":1},
		"tokenStats": {"block_created":570000,"block_last_active_mint":null,"minting_baton_status":"ALIVE","qty_token_burned":"1.5","qty_token_minted":"2000","qty_token_circulating_supply":"1998.5","qty_valid_txns_since_genesis":12,"qty_valid_token_addresses":4}
	}`), &doc))

	token := doc.token()
	assert.Equal(t, "abcd", token.ID)
	assert.Equal(t, "ff", token.DocumentHash)
	assert.InDelta(t, 1000, token.InitialTokenQty, 0)
	assert.Equal(t, int64(1550000000), token.TimestampUnix)
	require.NotNil(t, token.BlockCreated)
	assert.Equal(t, int64(570000), *token.BlockCreated)
	assert.Nil(t, token.BlockLastActiveMint)
	assert.True(t, token.ContainsBaton)
	assert.InDelta(t, 1.5, token.TotalBurned, 0)
	assert.InDelta(t, 1998.5, token.CirculatingSupply, 0)
	assert.Equal(t, int64(12), token.TxnsSinceGenesis)
	assert.Equal(t, int64(4), token.ValidAddresses)
}
