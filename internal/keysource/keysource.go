// Package keysource resolves the private key for a single submission.
//
// Keys are fetched at call time and handed straight to the submitter. None of
// the sources cache, log or print the key; every Source's String method
// describes where the key comes from, never the key itself.
package keysource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoKey is returned when a source is configured but holds no key.
var ErrNoKey = errors.New("no private key available")

// Source yields a hex-encoded secp256k1 private key.
type Source interface {
	PrivateKey(ctx context.Context) (string, error)
	fmt.Stringer
}

// Literal is a key supplied directly by the caller, e.g. from a test fixture.
type Literal string

func (l Literal) PrivateKey(context.Context) (string, error) {
	if strings.TrimSpace(string(l)) == "" {
		return "", ErrNoKey
	}
	return string(l), nil
}

func (Literal) String() string { return "literal key" }

// GoString keeps %#v from printing the key.
func (Literal) GoString() string { return `keysource.Literal("<redacted>")` }

// Env reads the key from an environment variable. Lookup defaults to
// os.LookupEnv via FromEnv; tests inject their own.
type Env struct {
	Name   string
	Lookup func(string) (string, bool)
}

func (e Env) PrivateKey(context.Context) (string, error) {
	if e.Lookup == nil {
		return "", fmt.Errorf("env source %s: no lookup function", e.Name)
	}
	v, ok := e.Lookup(e.Name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: $%s is not set", ErrNoKey, e.Name)
	}
	return strings.TrimSpace(v), nil
}

func (e Env) String() string { return "env $" + e.Name }

// Retriever is the read side of a wallet keystore.
type Retriever interface {
	Retrieve(ref string) (string, error)
}

// Keyring reads a wallet key from the OS keychain by reference.
type Keyring struct {
	Store Retriever
	Ref   string
}

func (k Keyring) PrivateKey(context.Context) (string, error) {
	if k.Store == nil {
		return "", fmt.Errorf("keyring source %s: no keystore", k.Ref)
	}
	key, err := k.Store.Retrieve(k.Ref)
	if err != nil {
		return "", fmt.Errorf("keyring source: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: keyring entry %s is empty", ErrNoKey, k.Ref)
	}
	return key, nil
}

func (k Keyring) String() string { return "keyring " + k.Ref }
