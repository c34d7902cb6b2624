package submitter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind categorises a submission failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInsufficientFunds
	KindFeeTooLow
	KindNonceConflict
	KindBroadcastFailure
	KindSigningFailure
	KindConfirmationTimeout
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient funds"
	case KindFeeTooLow:
		return "fee too low"
	case KindNonceConflict:
		return "nonce conflict"
	case KindBroadcastFailure:
		return "broadcast failure"
	case KindSigningFailure:
		return "signing failure"
	case KindConfirmationTimeout:
		return "confirmation timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidAddress      = fmt.Errorf("%w: invalid address", ErrValidation)
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrFeeTooLow           = errors.New("fee too low")
	ErrNonceConflict       = errors.New("nonce conflict")
	ErrBroadcastFailure    = errors.New("broadcast failure")
	ErrSigningFailure      = errors.New("signing failure")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrCancelled           = errors.New("cancelled")
)

var kindSentinels = map[Kind]error{
	KindValidation:          ErrValidation,
	KindInsufficientFunds:   ErrInsufficientFunds,
	KindFeeTooLow:           ErrFeeTooLow,
	KindNonceConflict:       ErrNonceConflict,
	KindBroadcastFailure:    ErrBroadcastFailure,
	KindSigningFailure:      ErrSigningFailure,
	KindConfirmationTimeout: ErrConfirmationTimeout,
	KindCancelled:           ErrCancelled,
}

// Error is returned by Submit and WaitForReceipt.
// TxHash is set on every failure that happens after the node acknowledged the transaction.
type Error struct {
	Kind Kind
	Op   string
	// TxHash is zero when nothing was broadcast.
	TxHash common.Hash
	// Confirmations and Polls are filled in by WaitForReceipt.
	Confirmations uint64
	Polls         int
	// Rejected is set when the node answered the broadcast with a JSON-RPC error.
	Rejected bool
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Kind == KindConfirmationTimeout {
		fmt.Fprintf(&b, " (confirmations %d, polls %d)", e.Confirmations, e.Polls)
	}
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " [tx %s]", e.TxHash.Hex())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && target == s
}

// Retryable reports whether the caller may try again. Broadcast transport
// failures can be resubmitted; nonce conflicts need a fresh build-sign-submit
// cycle; a timed-out wait can simply be resumed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindBroadcastFailure:
		return !e.Rejected
	case KindNonceConflict, KindConfirmationTimeout:
		return true
	default:
		return false
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Retryable()
}

// TxHashOf returns the transaction hash attached to err, if any.
func TxHashOf(err error) (common.Hash, bool) {
	var se *Error
	if errors.As(err, &se) && se.TxHash != (common.Hash{}) {
		return se.TxHash, true
	}
	return common.Hash{}, false
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// broadcastKind maps a node rejection message to a Kind.
// "already known" is handled by the caller and never reaches here.
func broadcastKind(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "nonce too low"),
		strings.Contains(m, "nonce too high"),
		strings.Contains(m, "replacement transaction underpriced"),
		strings.Contains(m, "replacement underpriced"):
		return KindNonceConflict
	case strings.Contains(m, "insufficient funds"):
		return KindInsufficientFunds
	case strings.Contains(m, "underpriced"),
		strings.Contains(m, "fee cap less than block base fee"),
		strings.Contains(m, "max fee per gas less than block base fee"),
		strings.Contains(m, "fee cap lower than"):
		return KindFeeTooLow
	default:
		return KindBroadcastFailure
	}
}

// transientCode reports JSON-RPC codes a node returns for its own trouble
// rather than for the transaction: -32603 internal error, -32005 limit exceeded.
func transientCode(code int) bool {
	return code == -32603 || code == -32005
}

func isAlreadyKnown(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "already known") || strings.Contains(m, "known transaction")
}
