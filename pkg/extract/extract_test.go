package extract

import (
	"context"
	"math/big"
	"testing"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nftContract = common.HexToAddress("0x00000000000000000000000000000000000000e7")
	recipient   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func mintLog(emitter common.Address, from common.Address, tokenID int64) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics: []common.Hash{
			transferEventSig,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(recipient.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func TestFromLogsMint(t *testing.T) {
	logs := []*types.Log{
		// ERC-20 style transfer from a non-zero holder, must be skipped.
		mintLog(nftContract, recipient, 5),
		mintLog(nftContract, common.Address{}, 42),
	}
	id, err := FromLogs(logs, TransferMint(nftContract))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), id)
}

func TestFromLogsWrongEmitterSkipped(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	logs := []*types.Log{mintLog(other, common.Address{}, 42)}
	_, err := FromLogs(logs, TransferMint(nftContract))
	assert.Equal(t, errno.ErrExpectedLogMissing.Code, errno.Code(err))
}

func TestFromLogsMissing(t *testing.T) {
	_, err := FromLogs(nil, TransferMint(nftContract))
	assert.Equal(t, errno.ErrExpectedLogMissing.Code, errno.Code(err))
}

func TestFromLogsFirstMatchWins(t *testing.T) {
	logs := []*types.Log{
		mintLog(nftContract, common.Address{}, 1),
		mintLog(nftContract, common.Address{}, 2),
	}
	id, err := FromLogs(logs, TransferMint(nftContract))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), id)
}

// fakeRegistry scripts registry call results by method name.
type fakeRegistry struct {
	addresses map[string]common.Address
	count     int64
	items     []*big.Int
	err       error
}

func (f *fakeRegistry) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch method {
	case "collectionCount":
		return []interface{}{big.NewInt(f.count)}, nil
	case "collectionAt":
		idx := args[len(args)-1].(*big.Int)
		return []interface{}{f.items[idx.Int64()]}, nil
	case "noOutputs":
		return []interface{}{}, nil
	}
	return nil, errno.ErrRegistryReadFailed.WithDetail("unknown method " + method)
}

func (f *fakeRegistry) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	if f.err != nil {
		return common.Address{}, f.err
	}
	return f.addresses[method], nil
}

func TestDerivedAddress(t *testing.T) {
	reg := &fakeRegistry{addresses: map[string]common.Address{"vaultOf": recipient}}
	addr, err := DerivedAddress(context.Background(), reg, "vaultOf", recipient)
	require.NoError(t, err)
	assert.Equal(t, recipient, addr)

	// Zero address means the registry has no entry yet.
	_, err = DerivedAddress(context.Background(), reg, "unknownMethod")
	assert.Equal(t, errno.ErrRegistryReadFailed.Code, errno.Code(err))
}

func TestCollectOrdered(t *testing.T) {
	reg := &fakeRegistry{
		count: 3,
		items: []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)},
	}
	out, err := Collect(context.Background(), reg, "collectionCount", "collectionAt", recipient)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, big.NewInt(10), out[0])
	assert.Equal(t, big.NewInt(20), out[1])
	assert.Equal(t, big.NewInt(30), out[2])
}

func TestCollectEmpty(t *testing.T) {
	reg := &fakeRegistry{count: 0}
	out, err := Collect(context.Background(), reg, "collectionCount", "collectionAt")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollectCountWithoutOutputs(t *testing.T) {
	reg := &fakeRegistry{}
	_, err := Collect(context.Background(), reg, "noOutputs", "collectionAt")
	assert.Equal(t, errno.ErrRegistryReadFailed.Code, errno.Code(err))
}

func TestCollectPropagatesReadError(t *testing.T) {
	reg := &fakeRegistry{err: errno.ErrRegistryReadFailed.WithDetail("node down")}
	_, err := Collect(context.Background(), reg, "collectionCount", "collectionAt")
	assert.Equal(t, errno.ErrRegistryReadFailed.Code, errno.Code(err))
}
