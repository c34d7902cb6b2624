package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// GasLimitTransfer is the intrinsic gas of a plain value transfer.
const GasLimitTransfer = uint64(21_000)

// ErrInvalidRequest is returned by TransactionRequest.Validate.
var ErrInvalidRequest = errors.New("invalid transaction request")

// TransactionRequest is an unsigned EIP-1559 value transfer. All amounts are wei.
type TransactionRequest struct {
	From                 common.Address
	To                   common.Address
	Value                *big.Int
	GasLimit             uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce                uint64
	ChainID              *big.Int
}

// Type is always the dynamic-fee envelope.
func (r *TransactionRequest) Type() uint8 { return types.DynamicFeeTxType }

// Validate checks the structural invariants of the request.
func (r *TransactionRequest) Validate() error {
	switch {
	case r.Value == nil || r.Value.Sign() < 0:
		return fmt.Errorf("%w: value must be a non-negative integer", ErrInvalidRequest)
	case r.GasLimit == 0:
		return fmt.Errorf("%w: gas limit must be positive", ErrInvalidRequest)
	case r.MaxFeePerGas == nil || r.MaxFeePerGas.Sign() < 0:
		return fmt.Errorf("%w: max fee per gas must be non-negative", ErrInvalidRequest)
	case r.MaxPriorityFeePerGas == nil || r.MaxPriorityFeePerGas.Sign() < 0:
		return fmt.Errorf("%w: max priority fee per gas must be non-negative", ErrInvalidRequest)
	case r.MaxPriorityFeePerGas.Cmp(r.MaxFeePerGas) > 0:
		return fmt.Errorf("%w: priority fee %s exceeds max fee %s", ErrInvalidRequest, r.MaxPriorityFeePerGas, r.MaxFeePerGas)
	case r.ChainID == nil || r.ChainID.Sign() <= 0:
		return fmt.Errorf("%w: chain id must be positive", ErrInvalidRequest)
	}
	return nil
}

// MaxCost is value + gasLimit * maxFeePerGas, the most the sender can be charged.
func (r *TransactionRequest) MaxCost() *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(r.GasLimit), r.MaxFeePerGas)
	return cost.Add(cost, r.Value)
}

func (r *TransactionRequest) toTx() *types.Transaction {
	to := r.To
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(r.ChainID),
		Nonce:     r.Nonce,
		GasTipCap: new(big.Int).Set(r.MaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).Set(r.MaxFeePerGas),
		Gas:       r.GasLimit,
		To:        &to,
		Value:     new(big.Int).Set(r.Value),
	})
}

// SignedTransaction is an encoded, signed transaction ready for broadcast.
type SignedTransaction struct {
	Raw  []byte
	Hash common.Hash
}

// Receipt is the subset of a mined transaction receipt the CLI reports on.
type Receipt struct {
	TxHash            common.Hash
	BlockNumber       uint64
	BlockHash         common.Hash
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Status            uint64 // 1 = success, 0 = reverted
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool { return r.Status == types.ReceiptStatusSuccessful }

// Included reports whether the receipt references a block.
func (r *Receipt) Included() bool { return r.BlockHash != (common.Hash{}) }

// Fee is gasUsed * effectiveGasPrice, or nil when the price is unknown.
func (r *Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

func receiptFromGeth(r *types.Receipt) *Receipt {
	out := &Receipt{
		TxHash:            r.TxHash,
		BlockHash:         r.BlockHash,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: r.EffectiveGasPrice,
		Status:            r.Status,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

// TxSummary is a decoded transaction as returned by a block lookup.
type TxSummary struct {
	Hash                 common.Hash
	From                 common.Address
	To                   *common.Address
	Value                *big.Int
	Nonce                uint64
	Gas                  uint64
	Type                 uint8
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}
