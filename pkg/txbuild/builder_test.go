package txbuild

import (
	"context"
	"math/big"
	"testing"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEstimator uint64

func (e fixedEstimator) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return uint64(e), nil
}

var (
	testChainID = big.NewInt(1315)
	testFrom    = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testTarget  = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func dynamicFees() *FeeEstimate {
	return &FeeEstimate{
		MaxFeePerGas:         big.NewInt(40_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
	}
}

func TestBuildFeeSchemeExclusivity(t *testing.T) {
	ctx := context.Background()

	// Dynamic estimate yields a type-2 transaction with no gasPrice.
	utx, err := Build(ctx, testChainID, testFrom, testTarget, nil, nil, 7,
		dynamicFees(), GasPolicy{Fixed: 500_000}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), utx.TxType())
	assert.Nil(t, utx.Fees.GasPrice)
	assert.NotNil(t, utx.Fees.MaxFeePerGas)
	assert.NotNil(t, utx.Fees.MaxPriorityFeePerGas)

	// Legacy estimate yields a type-0 transaction with no 1559 fields.
	utx, err = Build(ctx, testChainID, testFrom, testTarget, nil, nil, 7,
		&FeeEstimate{GasPrice: big.NewInt(20_000_000_000)}, GasPolicy{Fixed: 21_000}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), utx.TxType())
	assert.Nil(t, utx.Fees.MaxFeePerGas)
	assert.Nil(t, utx.Fees.MaxPriorityFeePerGas)
	assert.NotNil(t, utx.Fees.GasPrice)

	// Both schemes populated is rejected.
	_, err = Build(ctx, testChainID, testFrom, testTarget, nil, nil, 7,
		&FeeEstimate{GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1)},
		GasPolicy{Fixed: 21_000}, nil)
	assert.Equal(t, errno.ErrBuildFeeScheme.Code, errno.Code(err))

	// Half a dynamic scheme is rejected.
	_, err = Build(ctx, testChainID, testFrom, testTarget, nil, nil, 7,
		&FeeEstimate{MaxFeePerGas: big.NewInt(1)}, GasPolicy{Fixed: 21_000}, nil)
	assert.Equal(t, errno.ErrBuildFeeScheme.Code, errno.Code(err))
}

func TestBuildGasPolicy(t *testing.T) {
	ctx := context.Background()

	// Fixed ceiling skips estimation entirely.
	utx, err := Build(ctx, testChainID, testFrom, testTarget, nil, nil, 0,
		dynamicFees(), GasPolicy{Fixed: 1_500_000}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), utx.GasLimit)

	// Estimate plus default margin.
	utx, err = Build(ctx, testChainID, testFrom, testTarget, nil, nil, 0,
		dynamicFees(), GasPolicy{}, fixedEstimator(90_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(90_000+GasLimitBuffer), utx.GasLimit)

	// Estimate plus explicit margin.
	utx, err = Build(ctx, testChainID, testFrom, testTarget, nil, nil, 0,
		dynamicFees(), GasPolicy{Margin: 10_000}, fixedEstimator(90_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), utx.GasLimit)
}

func TestBuildInvalidNumericFields(t *testing.T) {
	ctx := context.Background()

	_, err := Build(ctx, nil, testFrom, testTarget, nil, nil, 0,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	assert.Equal(t, errno.ErrBuildInvalidNumericField.Code, errno.Code(err))

	_, err = Build(ctx, testChainID, testFrom, testTarget, nil, big.NewInt(-1), 0,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	assert.Equal(t, errno.ErrBuildInvalidNumericField.Code, errno.Code(err))
}

func TestSigningDigestCoversNonce(t *testing.T) {
	ctx := context.Background()

	a, err := Build(ctx, testChainID, testFrom, testTarget, []byte{1, 2}, nil, 7,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	require.NoError(t, err)
	b, err := Build(ctx, testChainID, testFrom, testTarget, []byte{1, 2}, nil, 8,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.SigningDigest(), b.SigningDigest())
	// Same parameters hash identically.
	a2, _ := Build(ctx, testChainID, testFrom, testTarget, []byte{1, 2}, nil, 7,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	assert.Equal(t, a.SigningDigest(), a2.SigningDigest())
}

func TestPlanSequenceNonces(t *testing.T) {
	ctx := context.Background()
	templates := []Template{
		{Name: "register", To: testTarget, Gas: GasPolicy{Fixed: 1_500_000}},
		{Name: "mint", To: testTarget, Gas: GasPolicy{Fixed: 500_000}},
	}

	plan, err := PlanSequence(ctx, testChainID, testFrom, 7, dynamicFees(), templates, nil)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, uint64(7), plan[0].Nonce)
	assert.Equal(t, uint64(8), plan[1].Nonce)
	assert.Equal(t, uint64(1_500_000), plan[0].GasLimit)
	assert.Equal(t, uint64(500_000), plan[1].GasLimit)
}

func TestFeeBump(t *testing.T) {
	bumped := dynamicFees().Bump()
	assert.Equal(t, big.NewInt(48_000_000_000), bumped.MaxFeePerGas)
	assert.Equal(t, big.NewInt(2_400_000_000), bumped.MaxPriorityFeePerGas)

	// Priority fee is floored.
	tiny := (&FeeEstimate{
		MaxFeePerGas:         big.NewInt(2_000_000),
		MaxPriorityFeePerGas: big.NewInt(10),
	}).Bump()
	assert.Equal(t, big.NewInt(MinPriorityFeePerGas), tiny.MaxPriorityFeePerGas)
	assert.True(t, tiny.MaxFeePerGas.Cmp(tiny.MaxPriorityFeePerGas) >= 0)

	legacy := (&FeeEstimate{GasPrice: big.NewInt(10_000_000_000)}).Bump()
	assert.Equal(t, big.NewInt(12_000_000_000), legacy.GasPrice)
}

func TestWithSignatureNormalizedV(t *testing.T) {
	ctx := context.Background()
	utx, err := Build(ctx, testChainID, testFrom, testTarget, nil, nil, 0,
		dynamicFees(), GasPolicy{Fixed: 21_000}, nil)
	require.NoError(t, err)

	sig := make([]byte, 65)
	sig[0] = 1 // r must be non-zero
	sig[32] = 1
	sig[64] = 27 // chain-style recovery byte
	signed, err := utx.WithSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), signed.Type())

	_, err = utx.WithSignature(sig[:64])
	assert.Equal(t, errno.ErrSignatureFormat.Code, errno.Code(err))
}
