package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Denomination exponents relative to wei.
const (
	WeiDecimals   = 0
	GweiDecimals  = 9
	EtherDecimals = 18
)

const maxAmountBits = 190

// ErrInvalidAmount is returned when a decimal amount cannot be represented exactly in wei.
var ErrInvalidAmount = errors.New("invalid amount")

// UnitDecimals maps a unit name to its exponent.
func UnitDecimals(unit string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "wei":
		return WeiDecimals, nil
	case "gwei":
		return GweiDecimals, nil
	case "eth", "ether":
		return EtherDecimals, nil
	default:
		return 0, fmt.Errorf("unknown unit %q, use eth, gwei or wei", unit)
	}
}

// ParseUnits converts a non-negative decimal string into wei.
// Amounts with more fractional digits than the unit allows are rejected rather than rounded.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" || s == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	// ".5" and "1." are accepted as 0.5 and 1.
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}
	// LegacyDec arithmetic panics past ~316 bits.
	if d.TruncateInt().BigInt().BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, amount)
	}
	scaled := d.MulInt(sdkmath.NewIntWithDecimal(1, decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}
	return scaled.TruncateInt().BigInt(), nil
}

// FormatUnits renders wei as a decimal string in the given unit, without trailing zeros.
func FormatUnits(wei *big.Int, decimals int) string {
	if wei == nil {
		return "0"
	}
	s := sdkmath.LegacyNewDecFromBigIntWithPrec(wei, int64(decimals)).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// ParseEther converts an ether amount such as "0.001" to wei.
func ParseEther(amount string) (*big.Int, error) { return ParseUnits(amount, EtherDecimals) }

// ParseGwei converts a gwei amount to wei.
func ParseGwei(amount string) (*big.Int, error) { return ParseUnits(amount, GweiDecimals) }

// FormatEther renders wei in ether.
func FormatEther(wei *big.Int) string { return FormatUnits(wei, EtherDecimals) }

// FormatGwei renders wei in gwei.
func FormatGwei(wei *big.Int) string { return FormatUnits(wei, GweiDecimals) }
