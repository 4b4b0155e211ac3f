package pipeline

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"relay-core/pkg/authz"
	"relay-core/pkg/chain"
	"relay-core/pkg/errno"
	"relay-core/pkg/extract"
	"relay-core/pkg/quorum"
	"relay-core/pkg/txbuild"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	targetContract = common.HexToAddress("0x00000000000000000000000000000000000000e7")
	userAddress    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// fakeBackend is an in-memory chain. Sent transactions confirm on the next
// receipt poll; sendErrs scripts per-call broadcast failures and statusOf
// scripts per-transaction receipt statuses. onSend and callFn let a test
// model contract state mutated by accepted transactions and read it back
// through eth_call.
type fakeBackend struct {
	mu       sync.Mutex
	nonce    uint64
	sent     []*types.Transaction
	sendErrs []error
	statusOf func(tx *types.Transaction) uint64
	logsOf   func(tx *types.Transaction) []*types.Log
	onSend   func(tx *types.Transaction)
	callFn   func(msg ethereum.CallMsg) ([]byte, error)
}

func newFakeBackend(nonce uint64) *fakeBackend {
	return &fakeBackend{nonce: nonce}
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000_000), Number: big.NewInt(100)}, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 60_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, tx)
	f.nonce = tx.Nonce() + 1
	if f.onSend != nil {
		f.onSend(tx)
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == txHash {
			status := types.ReceiptStatusSuccessful
			if f.statusOf != nil {
				status = f.statusOf(tx)
			}
			var logs []*types.Log
			if f.logsOf != nil && status == types.ReceiptStatusSuccessful {
				logs = f.logsOf(tx)
			}
			return &types.Receipt{
				TxHash:      txHash,
				BlockNumber: big.NewInt(101),
				Status:      status,
				GasUsed:     tx.Gas(),
				Logs:        logs,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.callFn != nil {
		return f.callFn(msg)
	}
	return nil, nil
}

func mintLogs(emitter common.Address, tokenID int64) []*types.Log {
	return []*types.Log{{
		Address: emitter,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			{},
			common.BytesToHash(userAddress.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}}
}

func grantSchema() authz.Schema {
	return authz.Schema{
		Scheme:       authz.SchemeFreeform,
		Scope:        "playlist",
		Action:       "grant",
		SubjectField: "recipient",
		DigestField:  "contentDigest",
	}
}

// signedAuthorization builds a fresh, validly signed freeform request.
func signedAuthorization(t *testing.T, key *ecdsa.PrivateKey, schema authz.Schema) (*authz.Request, string) {
	t.Helper()
	req := &authz.Request{
		DeclaredFields: map[string]string{
			"recipient":     userAddress.Hex(),
			"contentDigest": "a1b2c3",
		},
		Nonce:     "8675309",
		Timestamp: time.Now().UnixMilli(),
	}
	msg, err := authz.FreeformMessage(req, schema)
	require.NoError(t, err)
	sig, err := authz.PersonalSign(key, msg)
	require.NoError(t, err)
	req.Signature = sig
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	req.Signer = addr
	return req, addr
}

func newTestPipeline(t *testing.T, backend chain.Backend) *Pipeline {
	t.Helper()
	sponsorKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := quorum.NewLocalSigner(sponsorKey)
	return &Pipeline{
		Verifier: authz.NewVerifier(),
		Chain: &chain.Client{
			Backend:        backend,
			ChainID:        big.NewInt(1315),
			Name:           "primary",
			ConfirmTimeout: 500 * time.Millisecond,
			PollInterval:   5 * time.Millisecond,
		},
		Signer:      signer,
		Sponsor:     signer.Address(),
		MaxAttempts: 3,
	}
}

func relayRequest(t *testing.T, userKey *ecdsa.PrivateKey) *Request {
	t.Helper()
	schema := grantSchema()
	auth, signer := signedAuthorization(t, userKey, schema)
	spec := extract.TransferMint(targetContract)
	return &Request{
		Authorization:  auth,
		ExpectedSigner: signer,
		Schema:         schema,
		Target:         targetContract,
		Calldata:       []byte{0xde, 0xad},
		Gas:            txbuild.GasPolicy{},
		PurposeTag:     "relay",
		LogSpec:        &spec,
	}
}

func TestRunHappyPath(t *testing.T) {
	backend := newFakeBackend(7)
	backend.logsOf = func(tx *types.Transaction) []*types.Log {
		return mintLogs(targetContract, 42)
	}
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	result, err := p.Run(context.Background(), relayRequest(t, userKey))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), result.ID)
	assert.Equal(t, uint64(101), result.BlockNumber)

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	assert.Equal(t, uint64(7), sent.Nonce())
	assert.Equal(t, uint64(60_000+txbuild.GasLimitBuffer), sent.Gas())
	// Dynamic fees on a base-fee chain.
	assert.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
}

func TestRunAuthFailureTouchesNoChainState(t *testing.T) {
	backend := newFakeBackend(7)
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	req := relayRequest(t, userKey)
	req.Authorization.DeclaredFields["recipient"] = "0x00000000000000000000000000000000000000bb"

	_, err = p.Run(context.Background(), req)
	assert.Equal(t, errno.ErrAuthSignatureMismatch.Code, errno.Code(err))
	assert.Empty(t, backend.sent)
}

func TestRunRetriesUnderpricedWithBumpedFees(t *testing.T) {
	backend := newFakeBackend(7)
	backend.sendErrs = []error{errors.New("replacement transaction underpriced")}
	backend.logsOf = func(tx *types.Transaction) []*types.Log {
		return mintLogs(targetContract, 42)
	}
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	result, err := p.Run(context.Background(), relayRequest(t, userKey))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), result.ID)

	// First attempt rejected before reaching the pool, second landed with
	// bumped fees on the same nonce.
	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	assert.Equal(t, uint64(7), sent.Nonce())
	// suggested tip 2 gwei, bumped by 12/10
	assert.Equal(t, big.NewInt(2_400_000_000), sent.GasTipCap())
}

func TestRunRevertDoesNotRetry(t *testing.T) {
	backend := newFakeBackend(7)
	backend.statusOf = func(tx *types.Transaction) uint64 {
		return types.ReceiptStatusFailed
	}
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = p.Run(context.Background(), relayRequest(t, userKey))
	assert.Equal(t, errno.ErrBroadcastReverted.Code, errno.Code(err))
	assert.Len(t, backend.sent, 1)
}

func TestRunExhaustsAttempts(t *testing.T) {
	backend := newFakeBackend(7)
	backend.sendErrs = []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
		errors.New("connection refused"),
	}
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = p.Run(context.Background(), relayRequest(t, userKey))
	assert.Equal(t, errno.ErrBroadcastTransport.Code, errno.Code(err))
	assert.Empty(t, backend.sent)
}

const ownerOfABI = `[{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

func TestRunMintOwnerMatchesRecipient(t *testing.T) {
	backend := newFakeBackend(7)
	// Accepted transactions mint token 42 to the declared recipient; the
	// registry reads ownership back out of that state.
	owners := map[uint64]common.Address{}
	backend.onSend = func(tx *types.Transaction) {
		owners[42] = userAddress
	}
	backend.logsOf = func(tx *types.Transaction) []*types.Log {
		return mintLogs(targetContract, 42)
	}
	backend.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		id := new(big.Int).SetBytes(msg.Data[len(msg.Data)-32:]).Uint64()
		return common.LeftPadBytes(owners[id].Bytes(), 32), nil
	}
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	result, err := p.Run(context.Background(), relayRequest(t, userKey))
	require.NoError(t, err)
	require.NotNil(t, result.ID)

	reg, err := chain.NewRegistry(p.Chain, targetContract, ownerOfABI)
	require.NoError(t, err)
	owner, err := reg.CallAddress(context.Background(), "ownerOf", result.ID)
	require.NoError(t, err)
	assert.Equal(t, userAddress, owner)
}

func TestRunMissingExpectedLog(t *testing.T) {
	backend := newFakeBackend(7) // confirms with no logs
	p := newTestPipeline(t, backend)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = p.Run(context.Background(), relayRequest(t, userKey))
	assert.Equal(t, errno.ErrExpectedLogMissing.Code, errno.Code(err))
}
