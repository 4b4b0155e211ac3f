package authz

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum/crypto"
)

// messagePrefix namespaces every freeform authorization message.
const messagePrefix = "heaven"

// FreeformMessage reconstructs the templated message the user signed:
//
//	heaven:<scope>:<action>:<subject>:<digest>:<timestamp>:<nonce>
//
// Subject and digest are taken from the declared fields named by the
// schema; a missing declared field is a MissingField error, not a
// signature mismatch.
func FreeformMessage(req *Request, schema Schema) (string, error) {
	subject, ok := req.DeclaredFields[schema.SubjectField]
	if !ok {
		return "", errno.ErrAuthMissingField.WithDetail(schema.SubjectField)
	}
	digest, ok := req.DeclaredFields[schema.DigestField]
	if !ok {
		return "", errno.ErrAuthMissingField.WithDetail(schema.DigestField)
	}
	if req.Nonce == "" {
		return "", errno.ErrAuthMissingField.WithDetail("nonce")
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s",
		messagePrefix,
		schema.Scope,
		schema.Action,
		subject,
		digest,
		strconv.FormatInt(req.Timestamp, 10),
		req.Nonce,
	), nil
}

// PersonalMessageHash applies the EIP-191 personal-sign prefix and hashes.
func PersonalMessageHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// PersonalSign signs a freeform message with a local key. Used by tests and
// the CLI; production authorizations arrive already signed.
func PersonalSign(key *ecdsa.PrivateKey, message string) ([]byte, error) {
	return crypto.Sign(PersonalMessageHash([]byte(message)), key)
}
