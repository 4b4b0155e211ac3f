// Package quorum obtains transaction signatures from a threshold signing
// service and normalizes them into chain-ready form.
package quorum

import (
	"context"

	"relay-core/pkg/errno"
)

// SignatureComponents is a secp256k1 signature split into its parts. V is
// kept in normalized chain form, 27 or 28.
type SignatureComponents struct {
	R [32]byte
	S [32]byte
	V byte
}

// Bytes65 serializes the signature as r || s || v.
func (s SignatureComponents) Bytes65() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// Signer produces a signature over a 32-byte digest under the key identified
// by publicKey. purposeTag distinguishes concurrent signing requests on the
// remote side and has no effect on the signature itself.
type Signer interface {
	Sign(ctx context.Context, digest [32]byte, publicKey string, purposeTag string) (SignatureComponents, error)
}

// NormalizeRecoveryID maps a raw recovery id (0 or 1) to chain form (27 or
// 28). Values already in chain form pass through.
func NormalizeRecoveryID(v byte) (byte, error) {
	switch v {
	case 0, 1:
		return v + 27, nil
	case 27, 28:
		return v, nil
	default:
		return 0, errno.ErrSignatureFormat.WithDetail("recovery id out of range")
	}
}

// ParseSignature validates a 65-byte r||s||v blob and normalizes its
// recovery byte.
func ParseSignature(raw []byte) (SignatureComponents, error) {
	if len(raw) != 65 {
		return SignatureComponents{}, errno.ErrSignatureFormat.WithDetail("signature must be 65 bytes")
	}
	v, err := NormalizeRecoveryID(raw[64])
	if err != nil {
		return SignatureComponents{}, err
	}
	var sig SignatureComponents
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = v
	return sig, nil
}
