package txbuild

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Template describes one transaction of a sequenced plan before nonce and
// fee assignment.
type Template struct {
	Name     string
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      GasPolicy
	Purpose  string // signing purpose tag, distinguishes concurrent requests
}

// PlanSequence builds an ordered list of unsigned transactions sharing one
// sender: template i gets nonce baseNonce+i, strictly in template order.
// The fee estimate is fetched once by the caller and reused across the
// plan, trading a small nonce-gap risk on early failure for lower latency.
func PlanSequence(
	ctx context.Context,
	chainID *big.Int,
	from common.Address,
	baseNonce uint64,
	fees *FeeEstimate,
	templates []Template,
	estimator GasEstimator,
) ([]*UnsignedTx, error) {
	plan := make([]*UnsignedTx, 0, len(templates))
	for i, tmpl := range templates {
		utx, err := Build(ctx, chainID, from, tmpl.To, tmpl.Data, tmpl.Value,
			baseNonce+uint64(i), fees, tmpl.Gas, estimator)
		if err != nil {
			return nil, err
		}
		plan = append(plan, utx)
	}
	return plan, nil
}
