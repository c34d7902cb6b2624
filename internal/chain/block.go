package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockInfo holds summary data for a block header.
type BlockInfo struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
	TxCount   uint
	GasUsed   uint64
	GasLimit  uint64
	BaseFee   *big.Int // nil on pre-London chains
	Miner     common.Address
}

// Age returns a human-readable relative age string.
func (b *BlockInfo) Age() string {
	if b.Timestamp == 0 {
		return "unknown"
	}
	now := uint64(time.Now().Unix())
	if b.Timestamp > now {
		return "just now"
	}
	diff := now - b.Timestamp
	switch {
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	default:
		return fmt.Sprintf("%dh ago", diff/3600)
	}
}

// GasUsedPct returns gas utilisation as a percentage string.
func (b *BlockInfo) GasUsedPct() string {
	if b.GasLimit == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(b.GasUsed)/float64(b.GasLimit)*100)
}

// GetLatestBlockInfo fetches the head block header.
func (c *EVMClient) GetLatestBlockInfo(ctx context.Context) (*BlockInfo, error) {
	return c.GetBlockInfo(ctx, nil)
}

// GetBlockInfo fetches a block header by number; nil means latest.
func (c *EVMClient) GetBlockInfo(ctx context.Context, number *big.Int) (*BlockInfo, error) {
	head, err := c.eth.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber: %w", err)
	}
	hash := head.Hash()
	count, err := c.eth.TransactionCount(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockTransactionCountByHash: %w", err)
	}
	return &BlockInfo{
		Number:    head.Number.Uint64(),
		Hash:      hash,
		Timestamp: head.Time,
		TxCount:   count,
		GasUsed:   head.GasUsed,
		GasLimit:  head.GasLimit,
		BaseFee:   head.BaseFee,
		Miner:     head.Coinbase,
	}, nil
}

// GetTransactionFromBlock returns the transaction at index within the block.
func (c *EVMClient) GetTransactionFromBlock(ctx context.Context, blockHash common.Hash, index uint) (*TxSummary, error) {
	tx, err := c.eth.TransactionInBlock(ctx, blockHash, index)
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByBlockHashAndIndex: %w", err)
	}
	return summarize(tx)
}

func summarize(tx *types.Transaction) (*TxSummary, error) {
	var signer types.Signer = types.HomesteadSigner{}
	if tx.Protected() {
		signer = types.LatestSignerForChainID(tx.ChainId())
	}
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("recovering sender of %s: %w", tx.Hash().Hex(), err)
	}
	s := &TxSummary{
		Hash:  tx.Hash(),
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
		Nonce: tx.Nonce(),
		Gas:   tx.Gas(),
		Type:  tx.Type(),
	}
	if tx.Type() == types.LegacyTxType || tx.Type() == types.AccessListTxType {
		s.GasPrice = tx.GasPrice()
	} else {
		s.MaxFeePerGas = tx.GasFeeCap()
		s.MaxPriorityFeePerGas = tx.GasTipCap()
	}
	return s, nil
}
