package submitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devMonkRahul/w3send/internal/chain"
)

var testHash = common.HexToHash("0xfeed")

// fastWait keeps tests quick; individual tests override what they need.
func fastWait(target uint64) WaitOptions {
	return WaitOptions{
		Confirmations:     target,
		PendingInterval:   time.Millisecond,
		InclusionInterval: time.Millisecond,
	}
}

// progressLog records OnProgress snapshots.
type progressLog struct {
	mu     sync.Mutex
	states []ConfirmationState
}

func (p *progressLog) record(st ConfirmationState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, st)
}

func (p *progressLog) snapshot() []ConfirmationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ConfirmationState(nil), p.states...)
}

// ---------------------------------------------------------------------------
// confirmation depth
// ---------------------------------------------------------------------------

func TestWaitSingleConfirmationReturnsOnFirstReceipt(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(n int) (*chain.Receipt, error) {
		if n < 3 {
			return nil, nil
		}
		return minedAt(100), nil
	}

	rcpt, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, fastWait(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rcpt.BlockNumber)
	assert.Equal(t, 3, f.Calls("GetTransactionReceipt"))
	assert.Zero(t, f.Calls("GetBlockNumber"), "one confirmation needs no block query")
}

func TestWaitThreeConfirmationsReturnsExactlyAtThird(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) { return minedAt(100), nil }
	f.blockFn = func(n int) (uint64, error) { return 100 + uint64(n) - 1, nil } // 100, 101, 102, ...

	var progress progressLog
	opts := fastWait(3)
	opts.OnProgress = progress.record

	rcpt, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rcpt.BlockNumber)
	assert.Equal(t, 3, f.Calls("GetBlockNumber"))

	var confs []uint64
	for _, st := range progress.snapshot() {
		confs = append(confs, st.Confirmations)
	}
	assert.Equal(t, []uint64{1, 2, 3}, confs)
	last := progress.snapshot()[2]
	assert.Equal(t, StatusConfirmed, last.Status)
	assert.Equal(t, uint64(100), last.InclusionBlock)
	assert.Equal(t, 3, last.Polls)
}

func TestWaitNodeBehindInclusionBlock(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) { return minedAt(100), nil }
	f.blockFn = func(n int) (uint64, error) {
		if n == 1 {
			return 99, nil // lagging replica
		}
		return 101, nil
	}

	_, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, fastWait(2))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls("GetBlockNumber"))
}

func TestWaitReceiptDisappearsAfterReorg(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(n int) (*chain.Receipt, error) {
		switch n {
		case 1:
			return minedAt(100), nil
		case 2:
			return nil, nil
		default:
			return minedAt(105), nil
		}
	}
	f.blockFn = func(n int) (uint64, error) {
		if n == 1 {
			return 100, nil
		}
		return 106, nil
	}

	var progress progressLog
	opts := fastWait(2)
	opts.OnProgress = progress.record

	rcpt, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), rcpt.BlockNumber)

	states := progress.snapshot()
	require.Len(t, states, 3)
	assert.Equal(t, StatusIncluded, states[0].Status)
	assert.Equal(t, StatusPending, states[1].Status)
	assert.Equal(t, uint64(0), states[1].Confirmations)
	assert.Equal(t, StatusConfirmed, states[2].Status)
}

func TestWaitReturnsRevertedReceipt(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) {
		r := minedAt(50)
		r.Status = 0
		return r, nil
	}

	rcpt, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, fastWait(1))
	require.NoError(t, err)
	assert.False(t, rcpt.Succeeded())
}

// ---------------------------------------------------------------------------
// transient errors
// ---------------------------------------------------------------------------

func TestWaitToleratesTransientErrors(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(n int) (*chain.Receipt, error) {
		if n <= 2 {
			return nil, errors.New("502 bad gateway")
		}
		return minedAt(7), nil
	}

	var progress progressLog
	opts := fastWait(1)
	opts.OnProgress = progress.record

	rcpt, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rcpt.BlockNumber)
	assert.Equal(t, 3, f.Calls("GetTransactionReceipt"))

	states := progress.snapshot()
	require.Len(t, states, 3)
	assert.Error(t, states[0].LastErr)
	assert.Error(t, states[1].LastErr)
	assert.NoError(t, states[2].LastErr)
}

func TestWaitToleratesBlockNumberErrors(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) { return minedAt(10), nil }
	f.blockFn = func(n int) (uint64, error) {
		if n == 1 {
			return 0, errors.New("timeout")
		}
		return 11, nil
	}

	_, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, fastWait(2))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls("GetBlockNumber"))
}

// ---------------------------------------------------------------------------
// cancellation and timeout
// ---------------------------------------------------------------------------

func TestWaitCancelReturnsWithinOneInterval(t *testing.T) {
	f := newFakeChain()
	opts := fastWait(1)
	opts.PendingInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := newTestSubmitter(f).WaitForReceipt(ctx, testHash, opts)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 5*time.Second)
	assert.False(t, IsRetryable(err))

	hash, ok := TxHashOf(err)
	require.True(t, ok)
	assert.Equal(t, testHash, hash)
}

func TestWaitAlreadyCancelledContext(t *testing.T) {
	f := newFakeChain()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSubmitter(f).WaitForReceipt(ctx, testHash, fastWait(1))
	require.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, f.Calls("GetTransactionReceipt"))
}

func TestWaitMaxWaitTimesOut(t *testing.T) {
	f := newFakeChain() // receipt never appears

	var progress progressLog
	opts := fastWait(1)
	opts.PendingInterval = 5 * time.Millisecond
	opts.MaxWait = 40 * time.Millisecond
	opts.OnProgress = progress.record

	_, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, opts)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrCancelled)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uint64(0), se.Confirmations)
	assert.GreaterOrEqual(t, se.Polls, 1)
	assert.Equal(t, f.Calls("GetTransactionReceipt"), se.Polls)
	assert.Equal(t, testHash, se.TxHash)
	assert.True(t, se.Retryable())

	states := progress.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, StatusTimedOut, states[len(states)-1].Status)
}

func TestWaitParentDeadlineIsTimeout(t *testing.T) {
	f := newFakeChain()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestSubmitter(f).WaitForReceipt(ctx, testHash, fastWait(1))
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestWaitTimeoutKeepsConfirmationCount(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) { return minedAt(100), nil }
	f.blockFn = func(int) (uint64, error) { return 101, nil } // stuck at 2

	opts := fastWait(5)
	opts.MaxWait = 30 * time.Millisecond

	_, err := newTestSubmitter(f).WaitForReceipt(context.Background(), testHash, opts)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindConfirmationTimeout, se.Kind)
	assert.Equal(t, uint64(2), se.Confirmations)
}

// ---------------------------------------------------------------------------
// concurrency and composition
// ---------------------------------------------------------------------------

func TestConcurrentWaitsAreIndependent(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(int) (*chain.Receipt, error) { return minedAt(100), nil }
	s := newTestSubmitter(f)

	slowCtx, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()

	var wg sync.WaitGroup
	wg.Add(1)
	var slowErr error
	go func() {
		defer wg.Done()
		opts := fastWait(10) // never reached, block number stays 0
		_, slowErr = s.WaitForReceipt(slowCtx, common.HexToHash("0x01"), opts)
	}()

	rcpt, err := s.WaitForReceipt(context.Background(), testHash, fastWait(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rcpt.BlockNumber)

	cancelSlow()
	wg.Wait()
	assert.ErrorIs(t, slowErr, ErrCancelled)
}

func TestSubmitAndWait(t *testing.T) {
	f := newFakeChain()
	f.receiptFn = func(n int) (*chain.Receipt, error) {
		if n == 1 {
			return nil, nil
		}
		return minedAt(200), nil
	}

	sub, rcpt, err := newTestSubmitter(f).SubmitAndWait(context.Background(), transfer(5), fastWait(1))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, sub.Hash)
	assert.Equal(t, uint64(200), rcpt.BlockNumber)
}

func TestSubmitAndWaitTimeoutCarriesHash(t *testing.T) {
	f := newFakeChain()
	opts := fastWait(1)
	opts.MaxWait = 20 * time.Millisecond

	sub, _, err := newTestSubmitter(f).SubmitAndWait(context.Background(), transfer(5), opts)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.NotNil(t, sub)

	hash, ok := TxHashOf(err)
	require.True(t, ok)
	assert.Equal(t, sub.Hash, hash)
}

func TestWaitDefaults(t *testing.T) {
	s := New(newFakeChain(), WithWaitDefaults(WaitOptions{Confirmations: 4, PendingInterval: time.Second}))
	got := WaitOptions{}.merge(s.wait)
	assert.Equal(t, uint64(4), got.Confirmations)
	assert.Equal(t, time.Second, got.PendingInterval)
	assert.Equal(t, 15*time.Second, got.InclusionInterval)
	assert.Zero(t, got.MaxWait)
}

func TestConfirmationsArithmetic(t *testing.T) {
	assert.Equal(t, uint64(1), confirmations(100, 100))
	assert.Equal(t, uint64(3), confirmations(102, 100))
	assert.Equal(t, uint64(0), confirmations(99, 100))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusIncluded.Terminal())
	assert.True(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
	assert.Equal(t, "included", StatusIncluded.String())
}
