package crypto

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// SaveKey writes the private key to path as a hex-encoded file with 0600
// permissions, creating the parent directory when needed.
func SaveKey(path string, key *PrivateKey) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty key path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return crypto.SaveECDSA(path, key.PrivateKey)
}

// LoadKey reads a hex-encoded private key file written by SaveKey.
func LoadKey(path string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty key path")
	}
	key, err := crypto.LoadECDSA(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// LoadOrCreateKey loads the node key at path, generating and persisting a
// fresh one when the file does not exist yet.
func LoadOrCreateKey(path string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty key path")
	}
	if _, err := os.Stat(path); err == nil {
		return LoadKey(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := SaveKey(path, key); err != nil {
		return nil, err
	}
	return key, nil
}
