package crypto_util

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// CalculateSHA256 returns the hex-encoded SHA-256 of the input.
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// CalculateKeccak256 returns the hex-encoded Keccak-256 of the input.
// This is the hash used by Ethereum.
func CalculateKeccak256(data []byte) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// CalculateBlake3 returns the hex-encoded BLAKE3 of the input. Used for
// content digests referenced inside signed authorization messages.
func CalculateBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
