package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoBaseFee is returned for chains whose head block carries no EIP-1559 base fee.
var ErrNoBaseFee = errors.New("latest block has no base fee (pre-London chain)")

// DefaultPriorityFee is used when the node does not implement eth_maxPriorityFeePerGas.
var DefaultPriorityFee = big.NewInt(params.GWei)

// FeeEstimate holds EIP-1559 fee parameters in wei.
type FeeEstimate struct {
	BaseFee              *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// SuggestFees derives fee caps from a base fee and tip: maxFee = 2*baseFee + tip.
func SuggestFees(baseFee, tip *big.Int) *FeeEstimate {
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return &FeeEstimate{
		BaseFee:              new(big.Int).Set(baseFee),
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: new(big.Int).Set(tip),
	}
}

// MinimumMaxFee is baseFee + priorityFee, the lowest max fee that can be included now.
func (f *FeeEstimate) MinimumMaxFee() *big.Int {
	return new(big.Int).Add(f.BaseFee, f.MaxPriorityFeePerGas)
}

// GetFeeEstimate reads the head base fee and the node's tip suggestion.
func (c *EVMClient) GetFeeEstimate(ctx context.Context) (*FeeEstimate, error) {
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber: %w", err)
	}
	if head.BaseFee == nil {
		return nil, ErrNoBaseFee
	}

	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		var rpcErr rpc.Error
		if !errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("eth_maxPriorityFeePerGas: %w", err)
		}
		// The node answered but does not support the method.
		tip = new(big.Int).Set(DefaultPriorityFee)
	}
	return SuggestFees(head.BaseFee, tip), nil
}
