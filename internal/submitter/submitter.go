// Package submitter builds, signs and broadcasts EIP-1559 value transfers and
// tracks them until they reach a confirmation depth.
//
// The Submitter holds no per-transaction state. Nonces are re-read from the
// node on every Submit and each WaitForReceipt call runs its own loop, so any
// number of submissions and waits may run concurrently on one Submitter.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devMonkRahul/w3send/internal/chain"
)

// DefaultBroadcastAttempts bounds how often a broadcast is tried on transport errors.
const DefaultBroadcastAttempts = 3

// ChainClient is the node access the submitter needs. *chain.EVMClient implements it.
type ChainClient interface {
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	GetTransactionCount(ctx context.Context, addr common.Address, pending bool) (uint64, error)
	GetFeeEstimate(ctx context.Context) (*chain.FeeEstimate, error)
	SignTransaction(req *chain.TransactionRequest, privateKey string) (*chain.SignedTransaction, error)
	SendSignedTransaction(ctx context.Context, signed *chain.SignedTransaction) (common.Hash, error)
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error)
}

var _ ChainClient = (*chain.EVMClient)(nil)

// FeeOverrides replaces the node's fee suggestion. Nil fields fall back to the estimate.
type FeeOverrides struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// SubmitParams describes one transfer. PrivateKey is hex and is only used to sign.
type SubmitParams struct {
	From       string
	To         string
	Amount     *big.Int // wei
	PrivateKey string
	// ChainID, when set, must match the node's chain id.
	ChainID *big.Int
	// GasLimit defaults to 21000.
	GasLimit uint64
	Fees     *FeeOverrides
	// EstimateGas asks the node for a gas limit instead of using GasLimit.
	EstimateGas bool
}

// Submission is the result of a successful broadcast. It says nothing about inclusion.
type Submission struct {
	Hash    common.Hash
	Request *chain.TransactionRequest
	Nonce   uint64
	BaseFee *big.Int
	Balance *big.Int
}

// Submitter submits transfers through a ChainClient.
type Submitter struct {
	client     ChainClient
	log        zerolog.Logger
	tracer     trace.Tracer
	attempts   uint64
	newBackOff func() backoff.BackOff
	wait       WaitOptions
	feeReserve bool
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Submitter) { s.tracer = t }
}

// WithBroadcastAttempts sets the total number of broadcast tries, minimum 1.
func WithBroadcastAttempts(n int) Option {
	return func(s *Submitter) {
		if n < 1 {
			n = 1
		}
		s.attempts = uint64(n)
	}
}

// WithBroadcastBackoff sets the policy used between broadcast retries.
func WithBroadcastBackoff(fn func() backoff.BackOff) Option {
	return func(s *Submitter) { s.newBackOff = fn }
}

// WithWaitDefaults sets the values WaitForReceipt uses for zero fields of its options.
func WithWaitDefaults(o WaitOptions) Option {
	return func(s *Submitter) { s.wait = o.merge(DefaultWaitOptions()) }
}

// WithFeeReserveCheck makes the balance check include the worst-case gas cost.
func WithFeeReserveCheck(on bool) Option {
	return func(s *Submitter) { s.feeReserve = on }
}

// New returns a Submitter bound to client.
func New(client ChainClient, opts ...Option) *Submitter {
	s := &Submitter{
		client:     client,
		log:        zerolog.Nop(),
		tracer:     otel.Tracer("w3send/submitter"),
		attempts:   DefaultBroadcastAttempts,
		newBackOff: defaultBackOff,
		wait:       DefaultWaitOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Submit validates p, checks balance and fees, signs locally and broadcasts.
// It returns as soon as the node acknowledges the transaction.
func (s *Submitter) Submit(ctx context.Context, p SubmitParams) (_ *Submission, err error) {
	ctx, span := s.tracer.Start(ctx, "submitter.submit", trace.WithSpanKind(trace.SpanKindClient))
	defer func() { endSpan(span, err) }()

	from, to, err := parseAddresses(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return nil, newError(KindValidation, "submit", errors.New("amount must be a non-negative integer"))
	}
	keyAddr, err := chain.AddressFromKey(p.PrivateKey)
	if err != nil {
		return nil, newError(KindSigningFailure, "submit", err)
	}
	if keyAddr != from {
		return nil, newError(KindSigningFailure, "submit", fmt.Errorf("key does not control %s", from.Hex()))
	}
	gasLimit := p.GasLimit
	if gasLimit == 0 {
		gasLimit = chain.GasLimitTransfer
	}
	span.SetAttributes(
		attribute.String("from", from.Hex()),
		attribute.String("to", to.Hex()),
		attribute.String("value", p.Amount.String()),
	)
	log := s.log.With().Str("from", from.Hex()).Str("to", to.Hex()).Str("value", p.Amount.String()).Logger()

	balance, err := s.client.GetBalance(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetching balance of %s: %w", from.Hex(), err)
	}
	if balance.Cmp(p.Amount) < 0 {
		return nil, newError(KindInsufficientFunds, "submit",
			fmt.Errorf("balance %s wei is below amount %s wei", balance, p.Amount))
	}
	log.Debug().Str("balance", balance.String()).Msg("balance checked")

	nonce, err := s.client.GetTransactionCount(ctx, from, true)
	if err != nil {
		return nil, fmt.Errorf("fetching pending nonce of %s: %w", from.Hex(), err)
	}

	fees, err := s.resolveFees(ctx, p.Fees)
	if err != nil {
		return nil, err
	}
	if floor := fees.MinimumMaxFee(); fees.MaxFeePerGas.Cmp(floor) < 0 {
		return nil, newError(KindFeeTooLow, "submit",
			fmt.Errorf("max fee %s wei is below base fee + priority fee %s wei", fees.MaxFeePerGas, floor))
	}
	log.Info().
		Uint64("nonce", nonce).
		Str("base_fee", fees.BaseFee.String()).
		Str("max_fee_per_gas", fees.MaxFeePerGas.String()).
		Str("max_priority_fee_per_gas", fees.MaxPriorityFeePerGas.String()).
		Msg("fees resolved")

	chainID, err := s.resolveChainID(ctx, p.ChainID)
	if err != nil {
		return nil, err
	}

	if p.EstimateGas {
		gasLimit = s.estimateGas(ctx, log, from, to, p.Amount)
	}

	req := &chain.TransactionRequest{
		From:                 from,
		To:                   to,
		Value:                new(big.Int).Set(p.Amount),
		GasLimit:             gasLimit,
		MaxFeePerGas:         fees.MaxFeePerGas,
		MaxPriorityFeePerGas: fees.MaxPriorityFeePerGas,
		Nonce:                nonce,
		ChainID:              chainID,
	}
	if s.feeReserve {
		if cost := req.MaxCost(); balance.Cmp(cost) < 0 {
			return nil, newError(KindInsufficientFunds, "submit",
				fmt.Errorf("balance %s wei is below value + max gas cost %s wei", balance, cost))
		}
	}

	signed, err := s.client.SignTransaction(req, p.PrivateKey)
	if err != nil {
		return nil, newError(KindSigningFailure, "submit", err)
	}

	hash, err := s.broadcast(ctx, log, signed)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()), attribute.Int64("nonce", int64(nonce)))
	log.Info().Str("tx_hash", hash.Hex()).Uint64("nonce", nonce).Msg("transaction broadcast")

	return &Submission{Hash: hash, Request: req, Nonce: nonce, BaseFee: fees.BaseFee, Balance: balance}, nil
}

// SubmitAndWait is Submit followed by WaitForReceipt on the returned hash.
func (s *Submitter) SubmitAndWait(ctx context.Context, p SubmitParams, opts WaitOptions) (*Submission, *chain.Receipt, error) {
	sub, err := s.Submit(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	rcpt, err := s.WaitForReceipt(ctx, sub.Hash, opts)
	return sub, rcpt, err
}

func parseAddresses(from, to string) (common.Address, common.Address, error) {
	for _, a := range []string{from, to} {
		if !common.IsHexAddress(a) {
			return common.Address{}, common.Address{}, newError(KindValidation, "submit", fmt.Errorf("%w: %q", ErrInvalidAddress, a))
		}
	}
	return common.HexToAddress(from), common.HexToAddress(to), nil
}

func (s *Submitter) resolveFees(ctx context.Context, o *FeeOverrides) (*chain.FeeEstimate, error) {
	est, err := s.client.GetFeeEstimate(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching fee data: %w", err)
	}
	fees := &chain.FeeEstimate{
		BaseFee:              est.BaseFee,
		MaxFeePerGas:         est.MaxFeePerGas,
		MaxPriorityFeePerGas: est.MaxPriorityFeePerGas,
	}
	if o == nil {
		return fees, nil
	}
	for _, v := range []*big.Int{o.MaxFeePerGas, o.MaxPriorityFeePerGas} {
		if v != nil && v.Sign() < 0 {
			return nil, newError(KindValidation, "submit", errors.New("fee overrides must be non-negative"))
		}
	}
	if o.MaxFeePerGas != nil {
		fees.MaxFeePerGas = new(big.Int).Set(o.MaxFeePerGas)
	}
	if o.MaxPriorityFeePerGas != nil {
		fees.MaxPriorityFeePerGas = new(big.Int).Set(o.MaxPriorityFeePerGas)
	}
	return fees, nil
}

func (s *Submitter) resolveChainID(ctx context.Context, configured *big.Int) (*big.Int, error) {
	nodeID, err := s.client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}
	if configured != nil && configured.Cmp(nodeID) != 0 {
		return nil, newError(KindValidation, "submit",
			fmt.Errorf("configured chain id %s does not match node chain id %s", configured, nodeID))
	}
	return nodeID, nil
}

// estimateGas falls back to the transfer intrinsic gas. Only plain transfers
// are built here; a call with calldata would need a real estimate.
func (s *Submitter) estimateGas(ctx context.Context, log zerolog.Logger, from, to common.Address, value *big.Int) uint64 {
	gas, err := s.client.EstimateGas(ctx, from, to, value)
	if err != nil {
		log.Warn().Err(err).Uint64("gas_limit", chain.GasLimitTransfer).Msg("gas estimation failed, using transfer gas limit")
		return chain.GasLimitTransfer
	}
	return gas
}

func (s *Submitter) broadcast(ctx context.Context, log zerolog.Logger, signed *chain.SignedTransaction) (common.Hash, error) {
	attempt := 0
	op := func() (common.Hash, error) {
		attempt++
		actx, span := s.tracer.Start(ctx, "submitter.broadcast",
			trace.WithAttributes(attribute.Int("attempt", attempt), attribute.String("tx_hash", signed.Hash.Hex())))
		hash, err := s.client.SendSignedTransaction(actx, signed)
		endSpan(span, err)
		if err == nil {
			return hash, nil
		}

		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && !transientCode(rpcErr.ErrorCode()) {
			if isAlreadyKnown(rpcErr.Error()) {
				log.Debug().Int("attempt", attempt).Msg("node already has the transaction")
				return signed.Hash, nil
			}
			return common.Hash{}, backoff.Permanent(&Error{
				Kind:     broadcastKind(rpcErr.Error()),
				Op:       "broadcast",
				Rejected: true,
				Err:      err,
			})
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("broadcast failed")
		return common.Hash{}, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.attempts-1), ctx)
	hash, err := backoff.RetryWithData(op, b)
	if err == nil {
		return hash, nil
	}
	var se *Error
	if errors.As(err, &se) {
		return common.Hash{}, se
	}
	// The node may have received the payload before the transport failed.
	kind := KindBroadcastFailure
	if errors.Is(err, context.Canceled) {
		kind = KindCancelled
	}
	return common.Hash{}, &Error{Kind: kind, Op: "broadcast", TxHash: signed.Hash, Err: err}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
