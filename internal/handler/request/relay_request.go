package request

import "github.com/shopspring/decimal"

// Authorization is the signed off-chain approval attached to every flow.
// Timestamp is Unix milliseconds; Signature is 0x-prefixed hex.
type Authorization struct {
	Signer    string            `json:"signer" binding:"required"`
	Fields    map[string]string `json:"fields" binding:"required"`
	Nonce     string            `json:"nonce" binding:"required"`
	Timestamp int64             `json:"timestamp" binding:"required"`
	Signature string            `json:"signature" binding:"required"`
}

// AuthSchema names the message template the signature covers. Scheme is
// "freeform" or "typed_data".
type AuthSchema struct {
	Scheme       string `json:"scheme" binding:"required"`
	Scope        string `json:"scope"`
	Action       string `json:"action"`
	SubjectField string `json:"subject_field"`
	DigestField  string `json:"digest_field"`
}

// Call is the on-chain invocation the authorization approves.
type Call struct {
	Target   string          `json:"target" binding:"required"`
	Calldata string          `json:"calldata" binding:"required"` // 0x-prefixed hex
	Value    decimal.Decimal `json:"value"`
	GasLimit uint64          `json:"gas_limit"` // 0 means estimate
}

// ExecuteRelayRequest is one sponsored invocation.
type ExecuteRelayRequest struct {
	Authorization Authorization `json:"authorization" binding:"required"`
	Schema        AuthSchema    `json:"schema" binding:"required"`
	Call          Call          `json:"call" binding:"required"`
	// ExtractMint, when true, pulls the minted token id from the receipt.
	ExtractMint bool   `json:"extract_mint"`
	Emitter     string `json:"emitter"`
}

// SequenceStepRequest is one step of an ordered plan.
type SequenceStepRequest struct {
	Name        string `json:"name" binding:"required"`
	Call        Call   `json:"call" binding:"required"`
	ExtractMint bool   `json:"extract_mint"`
	Emitter     string `json:"emitter"`
}

// ExecuteSequenceRequest is an ordered multi-transaction invocation under
// one authorization.
type ExecuteSequenceRequest struct {
	Authorization Authorization         `json:"authorization" binding:"required"`
	Schema        AuthSchema            `json:"schema" binding:"required"`
	Steps         []SequenceStepRequest `json:"steps" binding:"required,min=1"`
}

// ExecuteMirrorRequest applies or revokes an access fact on both chains.
// Operation is "grant" or "revoke"; the per-chain calls usually differ only
// in target contract address.
type ExecuteMirrorRequest struct {
	Authorization Authorization `json:"authorization" binding:"required"`
	Schema        AuthSchema    `json:"schema" binding:"required"`
	Operation     string        `json:"operation" binding:"required,oneof=grant revoke"`
	PrimaryCall   Call          `json:"primary_call" binding:"required"`
	SecondaryCall Call          `json:"secondary_call" binding:"required"`
}
