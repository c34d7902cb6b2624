package wallet

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "w3send"

// ErrKeyNotFound is returned when a key reference has nothing stored under it.
var ErrKeyNotFound = errors.New("key not found")

// KeystoreBackend holds private keys outside wallets.json.
type KeystoreBackend interface {
	Store(name, hexKey string) (ref string, err error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore keeps keys in a 99designs/keyring backend.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// OpenKeystore opens the OS keychain. When no keychain is usable (headless
// Linux, containers) it falls back to an encrypted file store in dir/keys
// protected by a passphrase prompt.
func OpenKeystore(dir string) (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keys"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		if ring, err = keyring.Open(cfg); err != nil {
			return nil, fmt.Errorf("opening keystore: %w", err)
		}
	}
	return &Keystore{ring: ring}, nil
}

// Store saves hexKey for a wallet and returns the reference to retrieve it by.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	ref := keyRef(name)
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(normalizeHexKey(hexKey)),
		Label: "w3send wallet " + name,
	})
	if err != nil {
		return "", fmt.Errorf("keystore store %s: %w", ref, err)
	}
	return ref, nil
}

// Retrieve returns the hex key stored under ref.
func (k *Keystore) Retrieve(ref string) (string, error) {
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("keystore retrieve %s: %w", ref, err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key. Deleting a missing key is not an error.
func (k *Keystore) Delete(ref string) error {
	err := k.ring.Remove(ref)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keystore delete %s: %w", ref, err)
	}
	return nil
}

// InMemoryKeystore is a KeystoreBackend for tests.
type InMemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ref := keyRef(name)
	k.data[ref] = normalizeHexKey(hexKey)
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, ref)
	return nil
}

func keyRef(name string) string { return keychainService + "." + name }

// normalizeHexKey trims whitespace and any 0x prefix.
func normalizeHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
