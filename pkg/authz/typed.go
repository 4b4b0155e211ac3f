package authz

import (
	"strconv"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// typedDataHash computes the EIP-712 digest for the declared field set.
// The message value for each field in the primary type is taken from the
// request: "timestamp" and "nonce" come from the envelope, everything else
// from the declared fields.
func typedDataHash(req *Request, schema Schema) ([]byte, error) {
	fields, ok := schema.Types[schema.PrimaryType]
	if !ok {
		return nil, errno.ErrAuthMissingField.WithDetail("schema primary type " + schema.PrimaryType)
	}

	message := apitypes.TypedDataMessage{}
	for _, f := range fields {
		switch f.Name {
		case "timestamp":
			message[f.Name] = strconv.FormatInt(req.Timestamp, 10)
		case "nonce":
			message[f.Name] = req.Nonce
		default:
			v, ok := req.DeclaredFields[f.Name]
			if !ok {
				return nil, errno.ErrAuthMissingField.WithDetail(f.Name)
			}
			message[f.Name] = v
		}
	}

	typedData := apitypes.TypedData{
		Types:       schema.Types,
		PrimaryType: schema.PrimaryType,
		Domain:      schema.Domain,
		Message:     message,
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, errno.ErrAuthSignatureMismatch.WithDetail(err.Error())
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, errno.ErrAuthSignatureMismatch.WithDetail(err.Error())
	}

	raw := []byte("\x19\x01")
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)
	return crypto.Keccak256(raw), nil
}
