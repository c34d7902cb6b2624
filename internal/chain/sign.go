package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned when a private key cannot be parsed.
var ErrInvalidKey = errors.New("invalid private key")

// ParsePrivateKey decodes a hex secp256k1 key, with or without 0x prefix.
// The parse error from go-ethereum is dropped so key bytes never end up in a message.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	k := strings.TrimSpace(hexKey)
	k = strings.TrimPrefix(strings.TrimPrefix(k, "0x"), "0X")
	if len(k) != 64 {
		return nil, fmt.Errorf("%w: expected 32 bytes of hex", ErrInvalidKey)
	}
	key, err := crypto.HexToECDSA(k)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// AddressFromKey returns the account controlled by hexKey.
func AddressFromKey(hexKey string) (common.Address, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// SignTransaction validates req and signs it with hexKey for req.ChainID.
func SignTransaction(req *TransactionRequest, hexKey string) (*SignedTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	if got := crypto.PubkeyToAddress(key.PublicKey); got != req.From {
		return nil, fmt.Errorf("%w: key controls %s, not %s", ErrInvalidKey, got.Hex(), req.From.Hex())
	}

	signed, err := types.SignTx(req.toTx(), types.LatestSignerForChainID(req.ChainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding signed transaction: %w", err)
	}
	return &SignedTransaction{Raw: raw, Hash: signed.Hash()}, nil
}

// DecodeSigned parses a signed envelope back into a go-ethereum transaction.
func DecodeSigned(signed *SignedTransaction) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signed.Raw); err != nil {
		return nil, fmt.Errorf("decoding signed transaction: %w", err)
	}
	return tx, nil
}
