package pipeline

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"relay-core/pkg/chain"
	"relay-core/pkg/errno"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	failures []*MirrorFailure
}

func (s *recordingSink) Record(ctx context.Context, failure *MirrorFailure) error {
	s.failures = append(s.failures, failure)
	return nil
}

func newTestMirror(t *testing.T, primary, secondary *fakeBackend) (*Mirror, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	p := newTestPipeline(t, primary)
	s := newTestPipeline(t, secondary)
	s.Chain.Name = "secondary"
	return &Mirror{Primary: p, Secondary: s, Sink: sink}, sink
}

func mirrorRequests(t *testing.T, userKey *ecdsa.PrivateKey) (*Request, *Request) {
	t.Helper()
	primaryReq := relayRequest(t, userKey)
	primaryReq.LogSpec = nil
	secondaryReq := relayRequest(t, userKey)
	secondaryReq.LogSpec = nil
	return primaryReq, secondaryReq
}

func TestMirrorApplyBothChains(t *testing.T) {
	primaryBackend := newFakeBackend(7)
	secondaryBackend := newFakeBackend(3)
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	primaryReq, secondaryReq := mirrorRequests(t, userKey)

	result, err := m.Apply(context.Background(), "grant", primaryReq, secondaryReq)
	require.NoError(t, err)
	require.NotNil(t, result.Primary)
	require.NotNil(t, result.Secondary)
	assert.Len(t, primaryBackend.sent, 1)
	assert.Len(t, secondaryBackend.sent, 1)
	assert.Empty(t, sink.failures)
}

func TestMirrorPrimaryFailureAbortsSecondary(t *testing.T) {
	primaryBackend := newFakeBackend(7)
	primaryBackend.sendErrs = []error{
		errors.New("execution reverted: not authorized"),
	}
	secondaryBackend := newFakeBackend(3)
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	primaryReq, secondaryReq := mirrorRequests(t, userKey)

	_, err = m.Apply(context.Background(), "grant", primaryReq, secondaryReq)
	assert.Equal(t, errno.ErrBroadcastReverted.Code, errno.Code(err))

	// The secondary chain was never touched and nothing needs reconciling:
	// both chains agree the grant does not exist.
	assert.Empty(t, secondaryBackend.sent)
	assert.Empty(t, sink.failures)
}

func TestMirrorSecondaryFailureSucceedsAndRecords(t *testing.T) {
	primaryBackend := newFakeBackend(7)
	secondaryBackend := newFakeBackend(3)
	secondaryBackend.sendErrs = []error{
		errors.New("execution reverted: paused"),
	}
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	primaryReq, secondaryReq := mirrorRequests(t, userKey)

	result, err := m.Apply(context.Background(), "grant", primaryReq, secondaryReq)
	require.NoError(t, err)
	require.NotNil(t, result.Primary)
	assert.Nil(t, result.Secondary)

	// The divergence is durably recorded for out-of-band reconciliation.
	require.Len(t, sink.failures, 1)
	assert.Equal(t, "secondary", sink.failures[0].Chain)
	assert.Equal(t, "grant", sink.failures[0].Operation)
}

func TestMirrorGrantThenRevoke(t *testing.T) {
	primaryBackend := newFakeBackend(7)
	secondaryBackend := newFakeBackend(3)
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	grantPrimary, grantSecondary := mirrorRequests(t, userKey)
	_, err = m.Apply(context.Background(), "grant", grantPrimary, grantSecondary)
	require.NoError(t, err)

	revokePrimary, revokeSecondary := mirrorRequests(t, userKey)
	_, err = m.Revoke(context.Background(), "revoke", revokePrimary, revokeSecondary)
	require.NoError(t, err)

	// Grant and revoke each landed on both chains, in primary-first order.
	assert.Len(t, primaryBackend.sent, 2)
	assert.Len(t, secondaryBackend.sent, 2)
	assert.Empty(t, sink.failures)

	// Nonces advanced independently per chain.
	assert.Equal(t, uint64(7), primaryBackend.sent[0].Nonce())
	assert.Equal(t, uint64(8), primaryBackend.sent[1].Nonce())
	assert.Equal(t, uint64(3), secondaryBackend.sent[0].Nonce())
	assert.Equal(t, uint64(4), secondaryBackend.sent[1].Nonce())
}

const hasAccessABI = `[{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"hasAccess","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}]`

const (
	opGrant  = byte(0x01)
	opRevoke = byte(0x02)
)

// accessBackend models an access-controller contract: accepted transactions
// flip per-subject access and eth_call reads it back.
func accessBackend(nonce uint64) (*fakeBackend, map[common.Address]bool) {
	granted := map[common.Address]bool{}
	b := newFakeBackend(nonce)
	b.onSend = func(tx *types.Transaction) {
		data := tx.Data()
		subject := common.BytesToAddress(data[1:])
		granted[subject] = data[0] == opGrant
	}
	b.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		subject := common.BytesToAddress(msg.Data[len(msg.Data)-32:])
		word := make([]byte, 32)
		if granted[subject] {
			word[31] = 1
		}
		return word, nil
	}
	return b, granted
}

func accessRequests(t *testing.T, userKey *ecdsa.PrivateKey, op byte, subject common.Address) (*Request, *Request) {
	t.Helper()
	calldata := append([]byte{op}, common.LeftPadBytes(subject.Bytes(), 32)...)
	primaryReq, secondaryReq := mirrorRequests(t, userKey)
	primaryReq.Calldata = calldata
	secondaryReq.Calldata = calldata
	return primaryReq, secondaryReq
}

func hasAccess(t *testing.T, client *chain.Client, subject common.Address) bool {
	t.Helper()
	reg, err := chain.NewRegistry(client, targetContract, hasAccessABI)
	require.NoError(t, err)
	values, err := reg.Call(context.Background(), "hasAccess", subject)
	require.NoError(t, err)
	require.Len(t, values, 1)
	return values[0].(bool)
}

func TestMirrorGrantRevokeAccessState(t *testing.T) {
	primaryBackend, primaryState := accessBackend(7)
	secondaryBackend, secondaryState := accessBackend(3)
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	thirdParty := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	primaryState[thirdParty] = true
	secondaryState[thirdParty] = true

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	// Grant lands on both chains.
	grantPrimary, grantSecondary := accessRequests(t, userKey, opGrant, userAddress)
	_, err = m.Apply(context.Background(), "grant", grantPrimary, grantSecondary)
	require.NoError(t, err)
	assert.True(t, hasAccess(t, m.Primary.Chain, userAddress))
	assert.True(t, hasAccess(t, m.Secondary.Chain, userAddress))

	// Revoke removes it from both.
	revokePrimary, revokeSecondary := accessRequests(t, userKey, opRevoke, userAddress)
	_, err = m.Revoke(context.Background(), "revoke", revokePrimary, revokeSecondary)
	require.NoError(t, err)
	assert.False(t, hasAccess(t, m.Primary.Chain, userAddress))
	assert.False(t, hasAccess(t, m.Secondary.Chain, userAddress))

	// The third party's independent access never changed.
	assert.True(t, hasAccess(t, m.Primary.Chain, thirdParty))
	assert.True(t, hasAccess(t, m.Secondary.Chain, thirdParty))
	assert.Empty(t, sink.failures)
}

func TestMirrorApplyBatchContinuesPastFailedChunk(t *testing.T) {
	primaryBackend := newFakeBackend(7)
	// The second chunk's primary send reverts; chunks one and three land.
	primaryBackend.sendErrs = []error{
		nil,
		errors.New("execution reverted: not authorized"),
	}
	secondaryBackend := newFakeBackend(3)
	m, sink := newTestMirror(t, primaryBackend, secondaryBackend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	chunks := make([]MirrorChunk, 3)
	for i := range chunks {
		p, s := mirrorRequests(t, userKey)
		chunks[i] = MirrorChunk{Primary: p, Secondary: s}
	}

	outcomes := m.ApplyBatch(context.Background(), "grant", chunks)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, errno.ErrBroadcastReverted.Code, errno.Code(outcomes[1].Err))
	assert.NoError(t, outcomes[2].Err)

	// Chunks one and three landed on both chains; the failed chunk never
	// touched the secondary, so nothing was recorded for reconciliation.
	assert.Len(t, secondaryBackend.sent, 2)
	assert.Empty(t, sink.failures)
}
