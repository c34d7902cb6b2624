package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const requestTimeout = 15 * time.Second

// EVMClient talks JSON-RPC to a single EVM endpoint.
type EVMClient struct {
	url string
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial connects to url. For HTTP endpoints no request is made until the first call.
func Dial(ctx context.Context, url string) (*EVMClient, error) {
	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: requestTimeout}))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &EVMClient{url: url, rpc: rc, eth: ethclient.NewClient(rc)}, nil
}

// URL returns the endpoint this client is bound to.
func (c *EVMClient) URL() string { return c.url }

// Close releases the underlying connection.
func (c *EVMClient) Close() { c.rpc.Close() }

// GetBalance returns the latest balance of addr in wei.
func (c *EVMClient) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return bal, nil
}

// GetTransactionCount returns the nonce of addr, counting the mempool when pending is set.
func (c *EVMClient) GetTransactionCount(ctx context.Context, addr common.Address, pending bool) (uint64, error) {
	var (
		n   uint64
		err error
	)
	if pending {
		n, err = c.eth.PendingNonceAt(ctx, addr)
	} else {
		n, err = c.eth.NonceAt(ctx, addr, nil)
	}
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount: %w", err)
	}
	return n, nil
}

// SignTransaction signs req locally. No RPC call is made.
func (c *EVMClient) SignTransaction(req *TransactionRequest, hexKey string) (*SignedTransaction, error) {
	return SignTransaction(req, hexKey)
}

// SendSignedTransaction broadcasts the raw envelope and returns the hash the node reports.
func (c *EVMClient) SendSignedTransaction(ctx context.Context, signed *SignedTransaction) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signed.Raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// GetTransactionReceipt returns nil, nil while the transaction is not yet mined.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	r, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
	}
	return receiptFromGeth(r), nil
}

// GetBlockNumber returns the head block number.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return n, nil
}

// GetChainID returns the chain id the node reports.
func (c *EVMClient) GetChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return id, nil
}

// EstimateGas asks the node how much gas a transfer of value from -> to needs.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error) {
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value})
	if err != nil {
		return 0, fmt.Errorf("eth_estimateGas: %w", err)
	}
	return gas, nil
}

// GasPrice returns the legacy eth_gasPrice suggestion.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	gp, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return gp, nil
}

// Ping measures round-trip latency with eth_blockNumber.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.eth.BlockNumber(ctx)
	latency = time.Since(start)
	return latency, blockNum, err
}
