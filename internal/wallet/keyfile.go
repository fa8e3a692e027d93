package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	cc "github.com/and161185/wave-portal/internal/crypto/clientcrypto"
)

const keyFileVersion = 1

// KeyFile is a private key sealed at rest: KEK = Argon2id(passphrase, Salt),
// Sealed = XChaCha20-Poly1305(KEK, key) with the address as AAD.
type KeyFile struct {
	Version int    `json:"version"`
	Address string `json:"address"`
	Salt    []byte `json:"salt"`
	Sealed  []byte `json:"sealed"`
}

// GenerateKeyFile creates a fresh secp256k1 key sealed under passphrase.
func GenerateKeyFile(passphrase []byte) (*KeyFile, *ecdsa.PrivateKey, error) {
	if len(passphrase) == 0 {
		return nil, nil, errors.New("empty passphrase")
	}
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	kf, err := SealKey(key, passphrase)
	if err != nil {
		return nil, nil, err
	}
	return kf, key, nil
}

// SealKey seals an existing key under passphrase.
func SealKey(key *ecdsa.PrivateKey, passphrase []byte) (*KeyFile, error) {
	salt, err := cc.Rand(cc.SaltLen)
	if err != nil {
		return nil, err
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	sealed, err := cc.Seal(cc.DeriveKEK(passphrase, salt), ethcrypto.FromECDSA(key), addr.Bytes())
	if err != nil {
		return nil, err
	}
	return &KeyFile{Version: keyFileVersion, Address: addr.Hex(), Salt: salt, Sealed: sealed}, nil
}

// Unlock opens the sealed key and checks it matches the recorded address.
func (k *KeyFile) Unlock(passphrase []byte) (*ecdsa.PrivateKey, error) {
	if k.Version != keyFileVersion {
		return nil, fmt.Errorf("unsupported key file version %d", k.Version)
	}
	addr := common.HexToAddress(k.Address)
	raw, err := cc.Open(cc.DeriveKEK(passphrase, k.Salt), k.Sealed, addr.Bytes())
	if err != nil {
		return nil, errors.New("wrong passphrase or corrupted key file")
	}
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, err
	}
	if ethcrypto.PubkeyToAddress(key.PublicKey) != addr {
		return nil, errors.New("key file address mismatch")
	}
	return key, nil
}

// SaveKeyFile writes kf as indented JSON with owner-only permissions.
func SaveKeyFile(path string, kf *KeyFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// LoadKeyFile reads a key file written by SaveKeyFile.
func LoadKeyFile(path string) (*KeyFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf KeyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, err
	}
	return &kf, nil
}
