package keysource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestLiteral(t *testing.T) {
	k, err := Literal(testKey).PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	_, err = Literal("  ").PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestSourcesNeverFormatTheKey(t *testing.T) {
	sources := []Source{
		Literal(testKey),
		Env{Name: "W3SEND_PRIVATE_KEY"},
		Keyring{Ref: "w3send.alice"},
	}
	for _, s := range sources {
		for _, verb := range []string{"%v", "%s", "%+v", "%#v"} {
			assert.NotContains(t, fmt.Sprintf(verb, s), testKey[2:], "%T formatted with %s", s, verb)
		}
	}
}

func TestEnv(t *testing.T) {
	env := map[string]string{"SEPOLIA_PRIVATE_KEY": " " + testKey + "\n", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	k, err := Env{Name: "SEPOLIA_PRIVATE_KEY", Lookup: lookup}.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	_, err = Env{Name: "MISSING", Lookup: lookup}.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)
	assert.Contains(t, err.Error(), "$MISSING")

	_, err = Env{Name: "EMPTY", Lookup: lookup}.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = Env{Name: "X"}.PrivateKey(context.Background())
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("W3SEND_TEST_KEY", testKey)
	k, err := FromEnv("W3SEND_TEST_KEY").PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)
}

type mapStore map[string]string

func (m mapStore) Retrieve(ref string) (string, error) {
	v, ok := m[ref]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestKeyring(t *testing.T) {
	store := mapStore{"w3send.alice": testKey, "w3send.blank": ""}

	k, err := Keyring{Store: store, Ref: "w3send.alice"}.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	_, err = Keyring{Store: store, Ref: "w3send.bob"}.PrivateKey(context.Background())
	assert.Error(t, err)

	_, err = Keyring{Store: store, Ref: "w3send.blank"}.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = Keyring{Ref: "w3send.alice"}.PrivateKey(context.Background())
	assert.Error(t, err)
}

// kvServer mimics the Vault KV v2 read endpoint.
func kvServer(t *testing.T, token string, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Vault-Token") != token {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		resp := map[string]any{
			"request_id":     "c0ffee",
			"lease_id":       "",
			"renewable":      false,
			"lease_duration": 0,
			"data": map[string]any{
				"data": data,
				"metadata": map[string]any{
					"created_time":    "2024-01-01T00:00:00Z",
					"custom_metadata": nil,
					"deletion_time":   "",
					"destroyed":       false,
					"version":         1,
				},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultPrivateKey(t *testing.T) {
	srv := kvServer(t, "s.test", map[string]map[string]any{
		"/v1/secret/data/w3send/alice": {"private_key": testKey, "note": "sepolia deployer"},
		"/v1/kv/data/team/ops":         {"hex": testKey},
		"/v1/secret/data/w3send/num":   {"private_key": 42},
	})

	v, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.test", Path: "w3send/alice"})
	require.NoError(t, err)
	k, err := v.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)
	assert.Equal(t, "vault secret/w3send/alice#private_key", v.String())

	custom, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.test", Mount: "kv", Path: "/team/ops/", Field: "hex"})
	require.NoError(t, err)
	k, err = custom.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	wrongField, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.test", Path: "w3send/alice", Field: "mnemonic"})
	require.NoError(t, err)
	_, err = wrongField.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)

	notString, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.test", Path: "w3send/num"})
	require.NoError(t, err)
	_, err = notString.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestVaultMissingSecret(t *testing.T) {
	srv := kvServer(t, "s.test", nil)
	v, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.test", Path: "w3send/nobody"})
	require.NoError(t, err)

	_, err = v.PrivateKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestVaultPermissionDenied(t *testing.T) {
	srv := kvServer(t, "s.right", nil)
	v, err := NewVault(VaultConfig{Address: srv.URL, Token: "s.wrong", Path: "w3send/alice"})
	require.NoError(t, err)

	_, err = v.PrivateKey(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoKey)
	assert.NotContains(t, err.Error(), "s.wrong")
}

func TestVaultRequiresPath(t *testing.T) {
	_, err := NewVault(VaultConfig{Address: "http://127.0.0.1:8200"})
	assert.Error(t, err)
}
