package providerkeys

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errOpen = errors.New("provider key cannot be decrypted")

// Vault seals provider secrets with a key derived from the configured vault secret.
type Vault struct {
	key [32]byte
}

// NewVault derives the sealing key from secret.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret is empty")
	}
	return &Vault{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal encrypts plain. The nonce is prepended to the output.
func (v *Vault) Seal(plain string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key), nil
}

// Open decrypts a value produced by Seal.
func (v *Vault) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", errOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", errOpen
	}
	return string(plain), nil
}
