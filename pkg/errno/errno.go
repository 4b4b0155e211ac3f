package errno

import "fmt"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithDetail returns a copy of the Errno with extra context appended to the
// message. The code is preserved so Decode and IsRetryable still match.
func (e Errno) WithDetail(detail string) Errno {
	return Errno{Code: e.Code, Message: fmt.Sprintf("%s: %s", e.Message, detail)}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Code extracts the numeric code from any error.
func Code(err error) int {
	code, _ := Decode(err)
	return code
}

// IsRetryable reports whether the failure class is worth retrying.
// Signing failures are often transient quorum hiccups; transport,
// underpriced and stale-nonce broadcast failures succeed on resubmission
// with fresh fee and nonce data. Everything else either needs new caller
// input (authorization, build) or would fail identically (revert).
func IsRetryable(err error) bool {
	switch Code(err) {
	case ErrQuorumUnavailable.Code,
		ErrSigningRejected.Code,
		ErrBroadcastTransport.Code,
		ErrBroadcastUnderpriced.Code,
		ErrNonceTooLow.Code:
		return true
	default:
		return false
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrSenderBusy       = Errno{Code: 10005, Message: "Another invocation for this sender is in flight"}
)

// Authorization Errors (20000+)
var (
	ErrAuthExpired           = Errno{Code: 20101, Message: "Authorization expired or not yet valid"}
	ErrAuthSignatureMismatch = Errno{Code: 20102, Message: "Authorization signature does not recover to the expected signer"}
	ErrAuthMissingField      = Errno{Code: 20103, Message: "Authorization is missing a declared field"}
	ErrAuthNonceConsumed     = Errno{Code: 20104, Message: "Authorization nonce already consumed"}
)

// Build Errors (30000+)
var (
	ErrBuildInvalidNumericField = Errno{Code: 30101, Message: "Transaction field has an invalid numeric value"}
	ErrBuildFeeScheme           = Errno{Code: 30102, Message: "Exactly one fee scheme must be populated"}
	ErrBuildGasEstimate         = Errno{Code: 30103, Message: "Gas estimation failed"}
)

// Signing Errors (40000+)
var (
	ErrQuorumUnavailable = Errno{Code: 40101, Message: "Signing quorum unavailable"}
	ErrSigningRejected   = Errno{Code: 40102, Message: "Signing quorum rejected the request"}
	ErrSignatureFormat   = Errno{Code: 40103, Message: "Quorum returned a malformed signature"}
)

// Broadcast Errors (50000+)
var (
	ErrBroadcastReverted    = Errno{Code: 50101, Message: "Transaction reverted on-chain"}
	ErrBroadcastTransport   = Errno{Code: 50102, Message: "Broadcast failed: transport error"}
	ErrBroadcastUnderpriced = Errno{Code: 50103, Message: "Broadcast failed: transaction underpriced"}
	// ErrConfirmationTimeout means the transaction was accepted but no
	// receipt appeared within the wait window. It may still land later.
	ErrConfirmationTimeout = Errno{Code: 50104, Message: "Transaction not yet confirmed"}
	ErrNonceTooLow         = Errno{Code: 50105, Message: "Broadcast failed: nonce too low"}
)

// Extraction Errors (60000+)
var (
	ErrExpectedLogMissing = Errno{Code: 60101, Message: "Transaction confirmed but the expected log is missing"}
	ErrRegistryReadFailed = Errno{Code: 60102, Message: "Registry read-only call failed"}
)
