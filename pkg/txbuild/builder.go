package txbuild

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"relay-core/pkg/errno"
)

// GasEstimator is the narrow estimation surface Build needs. Satisfied by
// *ethclient.Client.
type GasEstimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Build constructs the canonical unsigned transaction from verified
// parameters and live fee/nonce data. The estimator is only consulted when
// the gas policy has no fixed ceiling.
func Build(
	ctx context.Context,
	chainID *big.Int,
	from common.Address,
	target common.Address,
	calldata []byte,
	value *big.Int,
	senderNonce uint64,
	fees *FeeEstimate,
	policy GasPolicy,
	estimator GasEstimator,
) (*UnsignedTx, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errno.ErrBuildInvalidNumericField.WithDetail("chainId must be positive")
	}
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, errno.ErrBuildInvalidNumericField.WithDetail("value must not be negative")
	}
	if fees == nil {
		return nil, errno.ErrBuildFeeScheme.WithDetail("no fee estimate supplied")
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}

	gasLimit := policy.Fixed
	if gasLimit == 0 {
		if estimator == nil {
			return nil, errno.ErrBuildGasEstimate.WithDetail("no estimator and no fixed gas ceiling")
		}
		estimate, err := estimator.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &target,
			Value: value,
			Data:  calldata,
		})
		if err != nil {
			return nil, errno.ErrBuildGasEstimate.WithDetail(err.Error())
		}
		gasLimit = estimate + policy.margin()
	}

	return &UnsignedTx{
		ChainID:  new(big.Int).Set(chainID),
		Nonce:    senderNonce,
		To:       target,
		Value:    value,
		Data:     calldata,
		GasLimit: gasLimit,
		Fees:     *fees,
	}, nil
}
