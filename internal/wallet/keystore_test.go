package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardhatKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNormalizeHexKey(t *testing.T) {
	cases := map[string]string{
		"0xabc123":        "abc123",
		"0Xabc123":        "abc123",
		"abc123":          "abc123",
		"  0xabc  ":       "abc",
		"0x":              "",
		"":                "",
		"0x" + hardhatKey: hardhatKey,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHexKey(in), "input %q", in)
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	ks := NewKeystore(keyring.NewArrayKeyring(nil))

	ref, err := ks.Store("alice", "0x"+hardhatKey)
	require.NoError(t, err)
	assert.Equal(t, "w3send.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeystoreRetrieveMissing(t *testing.T) {
	ks := NewKeystore(keyring.NewArrayKeyring(nil))
	_, err := ks.Retrieve("w3send.nobody")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, ks.Delete("w3send.nobody"))
}

func TestKeystoreFileBackend(t *testing.T) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      keychainService,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: keyring.FixedStringPrompt("correct horse"),
	})
	require.NoError(t, err)
	ks := NewKeystore(ring)

	ref, err := ks.Store("bob", hardhatKey)
	require.NoError(t, err)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey, got)
}

func TestInMemoryKeystore(t *testing.T) {
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("carol", " 0x"+hardhatKey+"\n")
	require.NoError(t, err)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
