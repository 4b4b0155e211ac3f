package chain

import (
	"context"
	"errors"
	"testing"

	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerOfABI = `[{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

func TestRegistryCallAddress(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	backend := &stubBackend{
		callResult: common.LeftPadBytes(owner.Bytes(), 32),
	}

	reg, err := NewRegistry(testClient(backend), common.HexToAddress("0xe7"), ownerOfABI)
	require.NoError(t, err)

	got, err := reg.CallAddress(context.Background(), "ownerOf", common.Big1)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestRegistryCallFailure(t *testing.T) {
	backend := &stubBackend{callErr: errors.New("connection refused")}

	reg, err := NewRegistry(testClient(backend), common.HexToAddress("0xe7"), ownerOfABI)
	require.NoError(t, err)

	_, err = reg.Call(context.Background(), "ownerOf", common.Big1)
	assert.Equal(t, errno.ErrRegistryReadFailed.Code, errno.Code(err))
}

func TestRegistryCallAddressNoOutputs(t *testing.T) {
	// A method whose ABI declares no outputs unpacks to an empty slice.
	const pingABI = `[{"inputs":[],"name":"ping","outputs":[],"stateMutability":"view","type":"function"}]`
	reg, err := NewRegistry(testClient(&stubBackend{}), common.HexToAddress("0xe7"), pingABI)
	require.NoError(t, err)

	_, err = reg.CallAddress(context.Background(), "ping")
	assert.Equal(t, errno.ErrRegistryReadFailed.Code, errno.Code(err))
}

func TestNewRegistryRejectsBadABI(t *testing.T) {
	_, err := NewRegistry(testClient(&stubBackend{}), common.HexToAddress("0xe7"), "{not json")
	assert.Error(t, err)
}
