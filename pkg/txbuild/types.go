// Package txbuild turns verified parameters and live fee/nonce data into
// canonical unsigned transactions.
package txbuild

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"relay-core/pkg/errno"
)

const (
	// GasLimitBuffer is added on top of a queried gas estimate.
	GasLimitBuffer = 250_000
	// MinPriorityFeePerGas floors the tip so transactions are not stuck
	// behind a zero-tip suggestion on quiet chains.
	MinPriorityFeePerGas = 1_000_000
	// FeeBumpNumerator/FeeBumpDenominator scale fees on resubmission after
	// an underpriced or transport failure.
	FeeBumpNumerator   = 12
	FeeBumpDenominator = 10
)

// FeeEstimate carries exactly one fee scheme: GasPrice for legacy
// transactions, or the MaxFeePerGas/MaxPriorityFeePerGas pair for
// dynamic-fee transactions.
type FeeEstimate struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// IsDynamic reports whether the estimate selects the EIP-1559 scheme.
func (f *FeeEstimate) IsDynamic() bool {
	return f.MaxFeePerGas != nil
}

// Validate enforces fee-scheme exclusivity.
func (f *FeeEstimate) Validate() error {
	if f.GasPrice != nil {
		if f.MaxFeePerGas != nil || f.MaxPriorityFeePerGas != nil {
			return errno.ErrBuildFeeScheme.WithDetail("both legacy and dynamic fields populated")
		}
		if f.GasPrice.Sign() <= 0 {
			return errno.ErrBuildInvalidNumericField.WithDetail("gasPrice must be positive")
		}
		return nil
	}
	if f.MaxFeePerGas == nil || f.MaxPriorityFeePerGas == nil {
		return errno.ErrBuildFeeScheme.WithDetail("dynamic scheme requires maxFeePerGas and maxPriorityFeePerGas")
	}
	if f.MaxFeePerGas.Sign() <= 0 || f.MaxPriorityFeePerGas.Sign() < 0 {
		return errno.ErrBuildInvalidNumericField.WithDetail("dynamic fee fields must be positive")
	}
	if f.MaxFeePerGas.Cmp(f.MaxPriorityFeePerGas) < 0 {
		return errno.ErrBuildInvalidNumericField.WithDetail("maxFeePerGas below maxPriorityFeePerGas")
	}
	return nil
}

// Bump returns a new estimate scaled by FeeBump (12/10), flooring the
// priority fee at MinPriorityFeePerGas. The receiver is not mutated.
func (f *FeeEstimate) Bump() *FeeEstimate {
	bump := func(v *big.Int) *big.Int {
		out := new(big.Int).Mul(v, big.NewInt(FeeBumpNumerator))
		return out.Div(out, big.NewInt(FeeBumpDenominator))
	}
	if !f.IsDynamic() {
		return &FeeEstimate{GasPrice: bump(f.GasPrice)}
	}
	tip := bump(f.MaxPriorityFeePerGas)
	if tip.Cmp(big.NewInt(MinPriorityFeePerGas)) < 0 {
		tip = big.NewInt(MinPriorityFeePerGas)
	}
	maxFee := bump(f.MaxFeePerGas)
	if maxFee.Cmp(tip) < 0 {
		maxFee = new(big.Int).Set(tip)
	}
	return &FeeEstimate{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}
}

// GasPolicy selects how the gas limit is chosen. A fixed conservative
// ceiling is used when the target call path is structurally complex and
// simulated estimation is unreliable (estimation may revert for reasons
// unrelated to whether the real call would succeed); otherwise the queried
// estimate plus a margin.
type GasPolicy struct {
	// Fixed, when non-zero, is used as the gas limit and estimation is
	// skipped entirely.
	Fixed uint64
	// Margin is added to the queried estimate. Zero means GasLimitBuffer.
	Margin uint64
}

func (p GasPolicy) margin() uint64 {
	if p.Margin == 0 {
		return GasLimitBuffer
	}
	return p.Margin
}

// UnsignedTx is the canonical unsigned transaction. Exactly one fee scheme
// is populated, consistent with the transaction type.
type UnsignedTx struct {
	ChainID  *big.Int
	Nonce    uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	Fees     FeeEstimate
}

// TxType returns the declared transaction type: 0 for legacy, 2 for
// dynamic fee.
func (u *UnsignedTx) TxType() uint8 {
	if u.Fees.IsDynamic() {
		return types.DynamicFeeTxType
	}
	return types.LegacyTxType
}

// Transaction materializes the go-ethereum transaction.
func (u *UnsignedTx) Transaction() *types.Transaction {
	to := u.To
	if u.Fees.IsDynamic() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   u.ChainID,
			Nonce:     u.Nonce,
			To:        &to,
			Value:     u.Value,
			Gas:       u.GasLimit,
			GasFeeCap: u.Fees.MaxFeePerGas,
			GasTipCap: u.Fees.MaxPriorityFeePerGas,
			Data:      u.Data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    u.Nonce,
		To:       &to,
		Value:    u.Value,
		Gas:      u.GasLimit,
		GasPrice: u.Fees.GasPrice,
		Data:     u.Data,
	})
}

// SigningDigest is the hash of the transaction's canonical serialization
// with an empty signature slot, the digest handed to the signing quorum.
func (u *UnsignedTx) SigningDigest() common.Hash {
	signer := types.LatestSignerForChainID(u.ChainID)
	return signer.Hash(u.Transaction())
}

// WithSignature attaches a normalized 65-byte signature (v in {27,28})
// and returns the broadcast-ready transaction.
func (u *UnsignedTx) WithSignature(sig []byte) (*types.Transaction, error) {
	if len(sig) != 65 {
		return nil, errno.ErrSignatureFormat.WithDetail("signature must be 65 bytes")
	}
	raw := make([]byte, 65)
	copy(raw, sig)
	// go-ethereum expects the raw recovery id here.
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	signer := types.LatestSignerForChainID(u.ChainID)
	signed, err := u.Transaction().WithSignature(signer, raw)
	if err != nil {
		return nil, errno.ErrSignatureFormat.WithDetail(err.Error())
	}
	return signed, nil
}
