package submitter

import (
	"context"
	"math/big"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/devMonkRahul/w3send/internal/chain"
)

// Hardhat account #0; never funded outside local devnets.
const (
	testKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testFrom = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testTo   = "0x0c549dc11dD789A6ed360dF56903c1BA29625c20"
)

func gwei(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei)) }

// nodeError mimics a JSON-RPC error response (implements rpc.Error).
type nodeError struct {
	code int
	msg  string
}

func (e *nodeError) Error() string  { return e.msg }
func (e *nodeError) ErrorCode() int { return e.code }

// fakeChain is an in-memory ChainClient that counts calls.
type fakeChain struct {
	mu sync.Mutex

	balance  *big.Int
	nonce    uint64
	fees     *chain.FeeEstimate
	chainID  *big.Int
	gas      uint64
	gasErr   error
	sendErrs []error // consumed one per broadcast, then success

	// receiptFn and blockFn receive the 1-based call number.
	receiptFn func(n int) (*chain.Receipt, error)
	blockFn   func(n int) (uint64, error)

	calls map[string]int
	sent  []*chain.SignedTransaction
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balance: big.NewInt(params.Ether),
		nonce:   7,
		fees:    chain.SuggestFees(gwei(10), gwei(2)),
		chainID: big.NewInt(11155111),
		gas:     21_000,
		calls:   map[string]int{},
	}
}

func (f *fakeChain) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.calls[method]
}

func (f *fakeChain) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeChain) GetBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	f.count("GetBalance")
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) GetTransactionCount(_ context.Context, _ common.Address, pending bool) (uint64, error) {
	f.count("GetTransactionCount")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pending {
		return 0, nil
	}
	return f.nonce, nil
}

func (f *fakeChain) GetFeeEstimate(context.Context) (*chain.FeeEstimate, error) {
	f.count("GetFeeEstimate")
	return f.fees, nil
}

func (f *fakeChain) SignTransaction(req *chain.TransactionRequest, key string) (*chain.SignedTransaction, error) {
	f.count("SignTransaction")
	return chain.SignTransaction(req, key)
}

func (f *fakeChain) SendSignedTransaction(_ context.Context, signed *chain.SignedTransaction) (common.Hash, error) {
	n := f.count("SendSignedTransaction")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, signed)
	if n <= len(f.sendErrs) && f.sendErrs[n-1] != nil {
		return common.Hash{}, f.sendErrs[n-1]
	}
	f.nonce++
	return signed.Hash, nil
}

func (f *fakeChain) GetTransactionReceipt(_ context.Context, _ common.Hash) (*chain.Receipt, error) {
	n := f.count("GetTransactionReceipt")
	if f.receiptFn == nil {
		return nil, nil
	}
	return f.receiptFn(n)
}

func (f *fakeChain) GetBlockNumber(context.Context) (uint64, error) {
	n := f.count("GetBlockNumber")
	if f.blockFn == nil {
		return 0, nil
	}
	return f.blockFn(n)
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	f.count("GetChainID")
	return f.chainID, nil
}

func (f *fakeChain) EstimateGas(context.Context, common.Address, common.Address, *big.Int) (uint64, error) {
	f.count("EstimateGas")
	return f.gas, f.gasErr
}

func minedAt(block uint64) *chain.Receipt {
	return &chain.Receipt{
		TxHash:            common.HexToHash("0xfeed"),
		BlockNumber:       block,
		BlockHash:         common.BigToHash(new(big.Int).SetUint64(block)),
		GasUsed:           21_000,
		EffectiveGasPrice: gwei(11),
		Status:            1,
	}
}

func newTestSubmitter(f *fakeChain, opts ...Option) *Submitter {
	base := []Option{
		WithBroadcastBackoff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}
	return New(f, append(base, opts...)...)
}

func transfer(amount int64) SubmitParams {
	return SubmitParams{
		From:       testFrom,
		To:         testTo,
		Amount:     big.NewInt(amount),
		PrivateKey: testKey,
	}
}
