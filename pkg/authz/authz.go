// Package authz verifies user-signed authorizations for sponsored relay
// transactions. Verification is pure: it checks the declared fields, the
// freshness window, and the recovered signer, and nothing else. Nonce
// uniqueness is a ledger the caller owns.
package authz

import (
	"strings"
	"time"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// FreshnessWindow bounds both clock skew and the replay window. A request
// whose timestamp is further than this from the verifier's clock, in either
// direction, is rejected.
const FreshnessWindow = 5 * time.Minute

// Request is an already-collected signed authorization. Timestamp is Unix
// milliseconds; Signature is the 65-byte r||s||v form with v in {0,1} or
// {27,28}.
type Request struct {
	Signer         string
	DeclaredFields map[string]string
	Nonce          string
	Timestamp      int64
	Signature      []byte
}

// Scheme selects how the signed bytes are reconstructed from the request.
type Scheme int

const (
	// SchemeFreeform binds a templated string interpolating an action tag,
	// a content digest, a timestamp and a nonce, personal-signed (EIP-191).
	SchemeFreeform Scheme = iota
	// SchemeTypedData binds an EIP-712 domain and a declared field set.
	SchemeTypedData
)

// Schema declares what the signature must bind.
type Schema struct {
	Scheme Scheme

	// Freeform fields.
	Scope        string
	Action       string
	SubjectField string // declared field interpolated as the subject
	DigestField  string // declared field interpolated as the content digest

	// Typed-data fields.
	Domain      apitypes.TypedDataDomain
	Types       apitypes.Types
	PrimaryType string
}

// Verifier checks authorizations against a clock. The clock is injectable
// for freshness-boundary tests.
type Verifier struct {
	now func() time.Time
}

func NewVerifier() *Verifier {
	return &Verifier{now: time.Now}
}

// NewVerifierAt returns a Verifier pinned to the given clock.
func NewVerifierAt(now func() time.Time) *Verifier {
	return &Verifier{now: now}
}

// Verify checks freshness, reconstructs the signed bytes per the schema,
// and requires the recovered address to equal expectedSigner
// (case-insensitively).
func (v *Verifier) Verify(req *Request, expectedSigner string, schema Schema) error {
	if err := v.checkFreshness(req.Timestamp); err != nil {
		return err
	}

	var hash []byte
	var err error
	switch schema.Scheme {
	case SchemeFreeform:
		var msg string
		msg, err = FreeformMessage(req, schema)
		if err != nil {
			return err
		}
		hash = PersonalMessageHash([]byte(msg))
	case SchemeTypedData:
		hash, err = typedDataHash(req, schema)
		if err != nil {
			return err
		}
	default:
		return errno.ErrAuthSignatureMismatch.WithDetail("unknown signature scheme")
	}

	recovered, err := recoverAddress(hash, req.Signature)
	if err != nil {
		return errno.ErrAuthSignatureMismatch.WithDetail(err.Error())
	}
	if !strings.EqualFold(recovered.Hex(), expectedSigner) {
		return errno.ErrAuthSignatureMismatch
	}
	return nil
}

func (v *Verifier) checkFreshness(timestampMs int64) error {
	ts := time.UnixMilli(timestampMs)
	drift := v.now().Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > FreshnessWindow {
		return errno.ErrAuthExpired
	}
	return nil
}

// recoverAddress recovers the signing address from a 65-byte signature.
// The recovery byte is accepted in either raw {0,1} or chain-style {27,28}
// form.
func recoverAddress(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, errno.ErrAuthSignatureMismatch.WithDetail("signature must be 65 bytes")
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
