package bip32

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ExtendedKey wraps a BIP-32 extended key.
type ExtendedKey interface {
	// String returns the Base58-encoded key (xprv... / xpub...)
	String() string

	// ECPubKey returns the underlying EC public key.
	ECPubKey() (*btcec.PublicKey, error)
	// ECPrivKey returns the underlying EC private key (for signing).
	ECPrivKey() (*btcec.PrivateKey, error)
	// Derive derives the child key at index.
	Derive(index uint32) (ExtendedKey, error)
	// IsPrivate reports whether the key carries private material.
	IsPrivate() bool
	// Neuter returns the corresponding extended public key.
	Neuter() (ExtendedKey, error)
}

// HDWallet is a hierarchical-deterministic key tree rooted at a seed.
type HDWallet interface {
	// MasterKey returns the master extended key.
	MasterKey() ExtendedKey
	// DerivePath derives the key at a path like "m/44'/60'/0'/0/0".
	DerivePath(path string) (ExtendedKey, error)
}

var ErrInvalidSeed = errors.New("seed must be between 16 and 64 bytes")
