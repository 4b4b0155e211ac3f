package chain

import (
	"context"
	"math/big"

	"relay-core/pkg/errno"
	"relay-core/pkg/txbuild"
)

// SuggestFees queries the chain for a fee estimate. Chains with a base fee
// get a dynamic estimate (maxFee = 2*baseFee + tip, tip floored at
// MinPriorityFeePerGas); chains without one fall back to the legacy gas
// price.
func (c *Client) SuggestFees(ctx context.Context) (*txbuild.FeeEstimate, error) {
	head, err := c.Backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errno.ErrBroadcastTransport.WithDetail(err.Error())
	}

	if head.BaseFee == nil {
		gasPrice, err := c.Backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errno.ErrBroadcastTransport.WithDetail(err.Error())
		}
		return &txbuild.FeeEstimate{GasPrice: gasPrice}, nil
	}

	tip, err := c.Backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errno.ErrBroadcastTransport.WithDetail(err.Error())
	}
	floor := big.NewInt(txbuild.MinPriorityFeePerGas)
	if tip.Cmp(floor) < 0 {
		tip = floor
	}
	maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return &txbuild.FeeEstimate{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
	}, nil
}
