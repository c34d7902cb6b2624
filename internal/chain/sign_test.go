package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sepoliaTransfer() *TransactionRequest {
	return &TransactionRequest{
		From:                 common.HexToAddress(testAddr),
		To:                   common.HexToAddress("0x0c549dc11dD789A6ed360dF56903c1BA29625c20"),
		Value:                big.NewInt(1_000_000_000_000_000),
		GasLimit:             GasLimitTransfer,
		MaxFeePerGas:         gwei(22),
		MaxPriorityFeePerGas: gwei(2),
		Nonce:                5,
		ChainID:              big.NewInt(11155111),
	}
}

func TestParsePrivateKey(t *testing.T) {
	for _, k := range []string{testKey, strings.TrimPrefix(testKey, "0x"), "  " + testKey + "\n"} {
		key, err := ParsePrivateKey(k)
		require.NoError(t, err)
		assert.NotNil(t, key)
	}
}

func TestParsePrivateKeyErrorHidesKey(t *testing.T) {
	bad := "zz" + testKey[4:]
	_, err := ParsePrivateKey(bad)
	require.ErrorIs(t, err, ErrInvalidKey)
	assert.NotContains(t, err.Error(), testKey[4:])

	_, err = ParsePrivateKey("0x1234")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestAddressFromKey(t *testing.T) {
	addr, err := AddressFromKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, testAddr, addr.Hex())
}

func TestSignTransactionRoundTrip(t *testing.T) {
	req := sepoliaTransfer()
	signed, err := SignTransaction(req, testKey)
	require.NoError(t, err)
	require.NotEmpty(t, signed.Raw)
	assert.Equal(t, byte(types.DynamicFeeTxType), signed.Raw[0])

	tx, err := DecodeSigned(signed)
	require.NoError(t, err)
	assert.Equal(t, signed.Hash, tx.Hash())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, GasLimitTransfer, tx.Gas())
	assert.Equal(t, 0, tx.GasFeeCap().Cmp(gwei(22)))
	assert.Equal(t, 0, tx.GasTipCap().Cmp(gwei(2)))
	assert.Equal(t, 0, tx.ChainId().Cmp(big.NewInt(11155111)))
	assert.Equal(t, req.To, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, req.From, from)
}

func TestSignTransactionDeterministic(t *testing.T) {
	a, err := SignTransaction(sepoliaTransfer(), testKey)
	require.NoError(t, err)
	b, err := SignTransaction(sepoliaTransfer(), testKey)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestSignTransactionWrongSender(t *testing.T) {
	req := sepoliaTransfer()
	req.From = common.HexToAddress("0x390aF025B62BB6FaFeAF3c343C5FAB85CB702361")
	_, err := SignTransaction(req, testKey)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignTransactionInvalidRequest(t *testing.T) {
	cases := map[string]func(r *TransactionRequest){
		"nil value":        func(r *TransactionRequest) { r.Value = nil },
		"negative value":   func(r *TransactionRequest) { r.Value = big.NewInt(-1) },
		"zero gas":         func(r *TransactionRequest) { r.GasLimit = 0 },
		"tip above max":    func(r *TransactionRequest) { r.MaxPriorityFeePerGas = gwei(30) },
		"missing chain id": func(r *TransactionRequest) { r.ChainID = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := sepoliaTransfer()
			mutate(req)
			_, err := SignTransaction(req, testKey)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestMaxCost(t *testing.T) {
	req := sepoliaTransfer()
	// 0.001 ETH + 21000 * 22 gwei
	want := new(big.Int).Add(big.NewInt(1_000_000_000_000_000), new(big.Int).Mul(big.NewInt(21000), gwei(22)))
	assert.Equal(t, 0, req.MaxCost().Cmp(want))
	assert.Equal(t, uint8(types.DynamicFeeTxType), req.Type())
}
