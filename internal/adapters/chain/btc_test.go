package chain

import (
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
)

func TestVoutPaysAddress(t *testing.T) {
	const addr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

	tests := []struct {
		name string
		vout btcjson.Vout
		want bool
	}{
		{
			name: "single address field",
			vout: btcjson.Vout{ScriptPubKey: btcjson.ScriptPubKeyResult{Address: addr}},
			want: true,
		},
		{
			name: "legacy addresses list",
			vout: btcjson.Vout{ScriptPubKey: btcjson.ScriptPubKeyResult{
				Addresses: []string{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", addr},
			}},
			want: true,
		},
		{
			name: "different recipient",
			vout: btcjson.Vout{ScriptPubKey: btcjson.ScriptPubKeyResult{
				Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2",
			}},
			want: false,
		},
		{
			name: "no address data",
			vout: btcjson.Vout{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, voutPaysAddress(tt.vout, addr))
		})
	}
}

func TestMatchingOutputPicksLargest(t *testing.T) {
	const addr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	o := &BTCOracle{}

	tx := &btcjson.SearchRawTransactionsResult{
		Vout: []btcjson.Vout{
			{Value: 0.001, ScriptPubKey: btcjson.ScriptPubKeyResult{Address: addr}},
			{Value: 0.5, ScriptPubKey: btcjson.ScriptPubKeyResult{Address: "other"}},
			{Value: 0.25, ScriptPubKey: btcjson.ScriptPubKeyResult{Address: addr}},
		},
	}

	sats, found := o.matchingOutput(tx, addr)
	require.True(t, found)
	assert.Equal(t, int64(25000000), sats)
}

func TestMatchingOutputNoneForAddress(t *testing.T) {
	o := &BTCOracle{}
	tx := &btcjson.SearchRawTransactionsResult{
		Vout: []btcjson.Vout{
			{Value: 1.0, ScriptPubKey: btcjson.ScriptPubKeyResult{Address: "other"}},
		},
	}

	_, found := o.matchingOutput(tx, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	assert.False(t, found)
}

func TestRegistryForCurrency(t *testing.T) {
	registry := NewRegistry()
	oracle := &BTCOracle{}
	registry.Register(entities.CurrencyBTC, oracle)

	got, err := registry.ForCurrency(entities.CurrencyBTC)
	require.NoError(t, err)
	assert.Same(t, oracle, got.(*BTCOracle))

	_, err = registry.ForCurrency(entities.CurrencyUSDT)
	assert.Error(t, err)
}
