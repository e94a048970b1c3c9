package crypto

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}

	addr := NewAddress(AccountPrefix, raw[:])
	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, string(AccountPrefix)+"1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded.Array())
	require.Equal(t, AccountPrefix, decoded.Prefix())
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("not-bech32")
	require.Error(t, err)
}

func TestDecodeAddressRejectsWrongPrefix(t *testing.T) {
	var raw [20]byte
	encoded := NewAddress(AddressPrefix("other"), raw[:]).String()

	_, err := DecodeAddress(encoded)
	require.Error(t, err)
	require.Contains(t, err.Error(), "prefix")
}

func TestNewAddressPanicsOnWrongLength(t *testing.T) {
	require.Panics(t, func() {
		NewAddress(AccountPrefix, []byte{0x01, 0x02})
	})
}

func TestGeneratedKeyDerivesStableAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	first := key.PubKey().Address()
	second := key.PubKey().Address()
	require.Equal(t, first.Array(), second.Array())

	decoded, err := DecodeAddress(first.String())
	require.NoError(t, err)
	require.Equal(t, first.Array(), decoded.Array())
}

func TestKeystoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, SaveKey(path, key))

	loaded, err := LoadKey(path)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Array(), loaded.PubKey().Address().Array())
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	created, err := LoadOrCreateKey(path)
	require.NoError(t, err)

	// A second call loads the same key instead of generating a new one.
	loaded, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Equal(t, created.PubKey().Address().Array(), loaded.PubKey().Address().Array())
}
