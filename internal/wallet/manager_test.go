package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/wallet"
)

const (
	hardhatKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newManager(t *testing.T) *wallet.Manager {
	t.Helper()
	return wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(wallet.NewInMemoryKeystore()))
}

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("watcher", "0x0c549dc1a1b3bf5a0c7a3f6e0d7d7f1c6d0a1b2c"))

	w, err := mgr.Get("watcher")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)

	assert.Error(t, mgr.AddWatchOnly("bad", "0x1234"))
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("dup", hardhatAddr))
	assert.ErrorIs(t, mgr.AddWatchOnly("dup", hardhatAddr), wallet.ErrWalletExists)

	_, err := mgr.AddWithKey("dup", hardhatKey)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddSigningWallet(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.AddWithKey("signer", hardhatKey)
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, hardhatAddr, w.Address)
	assert.True(t, w.CanSign())

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey[2:], stored)
}

func TestAddSigningWalletInvalidKey(t *testing.T) {
	mgr := newManager(t)
	_, err := mgr.AddWithKey("bad", "0xdeadbeef")
	assert.ErrorIs(t, err, chain.ErrInvalidKey)

	_, err = mgr.Get("bad")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestAddWithKeyNeedsKeystore(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.AddWithKey("signer", hardhatKey)
	assert.ErrorIs(t, err, wallet.ErrNoKeystore)
}

func TestGenerateWallet(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.Generate("fresh")
	require.NoError(t, err)
	require.True(t, common.IsHexAddress(w.Address))

	key, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	addr, err := chain.AddressFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, w.Address, addr.Hex())

	other, err := mgr.Generate("fresh2")
	require.NoError(t, err)
	assert.NotEqual(t, w.Address, other.Address)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.AddWithKey("gone", hardhatKey)
	require.NoError(t, err)
	require.NoError(t, mgr.Remove("gone"))

	_, err = mgr.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve(w.KeyRef)
	assert.ErrorIs(t, err, wallet.ErrKeyNotFound)

	assert.ErrorIs(t, mgr.Remove("gone"), wallet.ErrWalletNotFound)
}

func TestListSorted(t *testing.T) {
	mgr := newManager(t)
	for _, name := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, mgr.AddWatchOnly(name, hardhatAddr))
	}
	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, "bob", list[1].Name)
	assert.Equal(t, "charlie", list[2].Name)
}

func TestDefaultWallet(t *testing.T) {
	mgr := newManager(t)
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.AddWatchOnly("only", hardhatAddr))
	require.NotNil(t, mgr.Default())
	assert.Equal(t, "only", mgr.Default().Name)

	require.NoError(t, mgr.AddWatchOnly("second", hardhatAddr))
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.SetDefault("second"))
	assert.Equal(t, "second", mgr.Default().Name)
	assert.ErrorIs(t, mgr.SetDefault("missing"), wallet.ErrWalletNotFound)
}

func TestLookup(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("alice", hardhatAddr))

	addr, err := mgr.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddr), addr)

	addr, err = mgr.Lookup("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, common.BigToAddress(common.Big1), addr)

	_, err = mgr.Lookup("nobody")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestManagerPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	ks := wallet.NewInMemoryKeystore()

	first := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	_, err := first.AddWithKey("signer", hardhatKey)
	require.NoError(t, err)
	require.NoError(t, first.SetDefault("signer"))

	second := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	w := second.Default()
	require.NotNil(t, w)
	assert.Equal(t, hardhatAddr, w.Address)
	assert.True(t, w.IsDefault)
}
