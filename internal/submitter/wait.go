package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/devMonkRahul/w3send/internal/chain"
)

// Status is the position of a transaction in the confirmation lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusIncluded
	StatusConfirmed
	StatusCancelled
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusIncluded:
		return "included"
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusTimedOut
}

// ConfirmationState is a snapshot of one WaitForReceipt loop, passed to OnProgress after every poll.
type ConfirmationState struct {
	TxHash         common.Hash
	Target         uint64
	Confirmations  uint64
	InclusionBlock uint64
	Polls          int
	Status         Status
	// Interval is the sleep before the next poll.
	Interval time.Duration
	// LastErr is the query error of the latest poll, nil if it succeeded.
	LastErr error
}

// WaitOptions controls WaitForReceipt. Zero fields take the Submitter's defaults.
type WaitOptions struct {
	Confirmations     uint64
	PendingInterval   time.Duration
	InclusionInterval time.Duration
	// MaxWait of zero waits until ctx is done.
	MaxWait    time.Duration
	OnProgress func(ConfirmationState)
}

// DefaultWaitOptions polls every 5s until inclusion and every 15s after, for one confirmation.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Confirmations:     1,
		PendingInterval:   5 * time.Second,
		InclusionInterval: 15 * time.Second,
	}
}

func (o WaitOptions) merge(d WaitOptions) WaitOptions {
	if o.Confirmations == 0 {
		o.Confirmations = d.Confirmations
	}
	if o.PendingInterval <= 0 {
		o.PendingInterval = d.PendingInterval
	}
	if o.InclusionInterval <= 0 {
		o.InclusionInterval = d.InclusionInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = d.MaxWait
	}
	if o.OnProgress == nil {
		o.OnProgress = d.OnProgress
	}
	return o
}

// confirmations is latest - inclusion + 1, or 0 while the node lags behind the inclusion block.
func confirmations(latest, inclusion uint64) uint64 {
	if latest < inclusion {
		return 0
	}
	return latest - inclusion + 1
}

// WaitForReceipt polls until hash is included and buried under opts.Confirmations
// blocks. Query errors are logged and retried on the next tick. A reverted
// transaction is still returned with a nil error; check Receipt.Succeeded.
//
// Cancelling ctx yields KindCancelled; MaxWait or a ctx deadline yields
// KindConfirmationTimeout. Both carry the hash and the last known counts.
func (s *Submitter) WaitForReceipt(ctx context.Context, hash common.Hash, opts WaitOptions) (_ *chain.Receipt, err error) {
	opts = opts.merge(s.wait)
	ctx, span := s.tracer.Start(ctx, "submitter.wait_for_receipt", trace.WithAttributes(
		attribute.String("tx_hash", hash.Hex()),
		attribute.Int64("target", int64(opts.Confirmations)),
	))
	defer func() { endSpan(span, err) }()

	waitCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}

	st := ConfirmationState{
		TxHash:   hash,
		Target:   opts.Confirmations,
		Status:   StatusPending,
		Interval: opts.PendingInterval,
	}
	log := s.log.With().Str("tx_hash", hash.Hex()).Uint64("target", st.Target).Logger()

	for {
		if waitCtx.Err() != nil {
			return nil, s.stopWaiting(ctx, &st, opts, log)
		}

		rcpt := s.poll(waitCtx, &st, opts, log)
		if rcpt != nil {
			st.Status = StatusConfirmed
			report(opts, st)
			span.SetAttributes(attribute.Int64("block", int64(rcpt.BlockNumber)), attribute.Int("polls", st.Polls))
			ev := log.Info()
			if !rcpt.Succeeded() {
				ev = log.Warn()
			}
			ev.Uint64("block", rcpt.BlockNumber).
				Uint64("confirmations", st.Confirmations).
				Uint64("status", rcpt.Status).
				Int("polls", st.Polls).
				Msg("transaction confirmed")
			return rcpt, nil
		}
		report(opts, st)

		timer := time.NewTimer(st.Interval)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return nil, s.stopWaiting(ctx, &st, opts, log)
		case <-timer.C:
		}
	}
}

// poll runs one tick and returns the receipt once the target depth is reached.
func (s *Submitter) poll(ctx context.Context, st *ConfirmationState, opts WaitOptions, log zerolog.Logger) *chain.Receipt {
	st.Polls++
	rcpt, err := s.client.GetTransactionReceipt(ctx, st.TxHash)
	if err != nil {
		st.LastErr = err
		if ctx.Err() == nil {
			log.Warn().Err(err).Int("poll", st.Polls).Dur("retry_in", st.Interval).Msg("receipt query failed")
		}
		return nil
	}
	st.LastErr = nil

	if rcpt == nil || !rcpt.Included() {
		if st.Status == StatusIncluded {
			log.Warn().Uint64("block", st.InclusionBlock).Msg("receipt disappeared, transaction back in mempool")
		}
		st.Status = StatusPending
		st.Confirmations = 0
		st.InclusionBlock = 0
		st.Interval = opts.PendingInterval
		log.Debug().Int("poll", st.Polls).Msg("transaction pending")
		return nil
	}

	st.Status = StatusIncluded
	st.InclusionBlock = rcpt.BlockNumber
	st.Interval = opts.InclusionInterval
	if st.Target <= 1 {
		st.Confirmations = 1
		return rcpt
	}

	latest, err := s.client.GetBlockNumber(ctx)
	if err != nil {
		st.LastErr = err
		if ctx.Err() == nil {
			log.Warn().Err(err).Int("poll", st.Polls).Msg("block number query failed")
		}
		return nil
	}
	st.Confirmations = confirmations(latest, rcpt.BlockNumber)
	log.Info().
		Int("poll", st.Polls).
		Uint64("block", rcpt.BlockNumber).
		Uint64("confirmations", st.Confirmations).
		Msg("waiting for confirmations")
	if st.Confirmations >= st.Target {
		return rcpt
	}
	return nil
}

func (s *Submitter) stopWaiting(parent context.Context, st *ConfirmationState, opts WaitOptions, log zerolog.Logger) error {
	e := &Error{
		Op:            "wait",
		TxHash:        st.TxHash,
		Confirmations: st.Confirmations,
		Polls:         st.Polls,
	}
	if errors.Is(parent.Err(), context.Canceled) {
		st.Status = StatusCancelled
		e.Kind = KindCancelled
		e.Err = parent.Err()
		log.Info().Int("polls", st.Polls).Msg("wait cancelled")
	} else {
		st.Status = StatusTimedOut
		e.Kind = KindConfirmationTimeout
		e.Err = fmt.Errorf("%d of %d confirmations: %w", st.Confirmations, st.Target, context.DeadlineExceeded)
		log.Warn().Int("polls", st.Polls).Uint64("confirmations", st.Confirmations).Msg("wait timed out")
	}
	report(opts, *st)
	return e
}

func report(opts WaitOptions, st ConfirmationState) {
	if opts.OnProgress != nil {
		opts.OnProgress(st)
	}
}
