package cmd

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWei(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	oneHalf, _ := new(big.Int).SetString("1500000000000000000", 10)

	tests := []struct {
		amount string
		unit   string
		want   *big.Int
	}{
		{"1", "ether", oneEth},
		{"1.5", "eth", oneHalf},
		{"0", "ether", big.NewInt(0)},
		{"50", "gwei", big.NewInt(50_000_000_000)},
		{"21000", "wei", big.NewInt(21000)},
		{"0xff", "ether", big.NewInt(255)},
		{"0xde0b6b3a7640000", "", oneEth},
	}
	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.unit, func(t *testing.T) {
			got, err := toWei(tt.amount, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, 0, tt.want.Cmp(got), "got %s", got)
		})
	}
}

func TestToWeiRejects(t *testing.T) {
	for _, tc := range []struct{ amount, unit string }{
		{"1.5", "wei"},
		{"abc", "ether"},
		{"-1", "ether"},
		{"1", "finney"},
		{"0xzz", "ether"},
		{"0x" + strings.Repeat("f", 64), "ether"},
	} {
		_, err := toWei(tc.amount, tc.unit)
		assert.Error(t, err, "%s %s", tc.amount, tc.unit)
	}
}

func TestFromWei(t *testing.T) {
	wei, _ := new(big.Int).SetString("1000000000000000000000", 10)
	s, err := fromWei(wei, "ether")
	require.NoError(t, err)
	assert.Equal(t, "1000", s)

	s, err = fromWei(big.NewInt(1), "ether")
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000001", s)

	s, err = fromWei(big.NewInt(50_000_000_000), "gwei")
	require.NoError(t, err)
	assert.Equal(t, "50", s)

	_, err = fromWei(big.NewInt(1), "btc")
	assert.Error(t, err)
}

func TestParseBlockArg(t *testing.T) {
	n, err := parseBlockArg("latest")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = parseBlockArg("")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = parseBlockArg("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), n.Int64())

	n, err = parseBlockArg("0x10")
	require.NoError(t, err)
	assert.Equal(t, int64(16), n.Int64())

	_, err = parseBlockArg("-1")
	assert.Error(t, err)
	_, err = parseBlockArg("pending")
	assert.Error(t, err)
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "1.5 ETH", formatWei(big.NewInt(1_500_000_000_000_000_000), "ether"))
	assert.Equal(t, "30 gwei", formatWei(big.NewInt(30_000_000_000), "gwei"))
	assert.Equal(t, "-", formatWei(nil, "ether"))
}
