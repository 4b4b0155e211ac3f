// Package pipeline chains authorization verification, transaction building,
// quorum signing, broadcast and result extraction into one relay flow, and
// layers the sequenced and mirrored orchestrations on top.
package pipeline

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"relay-core/pkg/authz"
	"relay-core/pkg/chain"
	"relay-core/pkg/errno"
	"relay-core/pkg/extract"
	"relay-core/pkg/logger"
	"relay-core/pkg/quorum"
	"relay-core/pkg/txbuild"
)

// Pipeline executes sponsored relays on one chain. All fields are set at
// construction and never mutated, so a Pipeline is safe for concurrent use.
type Pipeline struct {
	Verifier        *authz.Verifier
	Chain           *chain.Client
	Signer          quorum.Signer
	SignerPublicKey string
	// Sponsor is the relay account that pays gas and owns the nonce space.
	Sponsor     common.Address
	MaxAttempts int
}

// Request is one sponsored invocation: the user's off-chain authorization
// plus the on-chain call it authorizes.
type Request struct {
	Authorization  *authz.Request
	ExpectedSigner string
	Schema         authz.Schema

	Target   common.Address
	Calldata []byte
	Value    *big.Int
	Gas      txbuild.GasPolicy

	// PurposeTag labels the signing request toward the quorum.
	PurposeTag string
	// LogSpec, when set, extracts an identifier from the receipt.
	LogSpec *extract.LogSpec
	// Derive, when set, runs after confirmation to resolve state the
	// receipt does not carry (registry reads).
	Derive func(ctx context.Context, result *chain.BroadcastResult) (common.Address, error)
}

// Result is the semantic outcome of a confirmed relay.
type Result struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// ID is the identifier extracted from the receipt, nil when no LogSpec
	// was given.
	ID *big.Int
	// Derived is the address resolved by Derive, zero when not requested.
	Derived common.Address
}

// Run executes the full relay flow. Authorization failures surface before
// any chain interaction. Retryable signing and broadcast failures are
// retried up to MaxAttempts with bumped fees; everything else fails fast.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := p.Verifier.Verify(req.Authorization, req.ExpectedSigner, req.Schema); err != nil {
		return nil, err
	}

	nonce, fees, err := p.fetchChainState(ctx)
	if err != nil {
		return nil, err
	}

	broadcast, err := p.submitWithRetry(ctx, req, nonce, fees)
	if err != nil {
		return nil, err
	}
	return p.extractResult(ctx, req, broadcast)
}

// fetchChainState queries the sponsor nonce and the fee estimate
// concurrently. Both are needed before building and neither depends on the
// other.
func (p *Pipeline) fetchChainState(ctx context.Context) (uint64, *txbuild.FeeEstimate, error) {
	var (
		wg       sync.WaitGroup
		nonce    uint64
		nonceErr error
		fees     *txbuild.FeeEstimate
		feesErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		nonce, nonceErr = p.Chain.PendingNonce(ctx, p.Sponsor)
	}()
	go func() {
		defer wg.Done()
		fees, feesErr = p.Chain.SuggestFees(ctx)
	}()
	wg.Wait()
	if nonceErr != nil {
		return 0, nil, errno.ErrBroadcastTransport.WithDetail(nonceErr.Error())
	}
	if feesErr != nil {
		return 0, nil, feesErr
	}
	return nonce, fees, nil
}

func (p *Pipeline) submitWithRetry(ctx context.Context, req *Request, nonce uint64, fees *txbuild.FeeEstimate) (*chain.BroadcastResult, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		broadcast, err := p.submitOnce(ctx, req, nonce, fees)
		if err == nil {
			return broadcast, nil
		}
		lastErr = err

		if !errno.IsRetryable(err) {
			return broadcast, err
		}
		logger.Warn("relay attempt failed, retrying",
			zap.String("chain", p.Chain.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		// A bumped fee changes the signing digest, so the quorum signs a
		// genuinely new transaction on the next attempt.
		fees = fees.Bump()
		if errno.Code(err) == errno.ErrNonceTooLow.Code {
			fresh, nerr := p.Chain.PendingNonce(ctx, p.Sponsor)
			if nerr != nil {
				return nil, errno.ErrBroadcastTransport.WithDetail(nerr.Error())
			}
			nonce = fresh
		}
	}
	return nil, lastErr
}

func (p *Pipeline) submitOnce(ctx context.Context, req *Request, nonce uint64, fees *txbuild.FeeEstimate) (*chain.BroadcastResult, error) {
	utx, err := txbuild.Build(ctx, p.Chain.ChainID, p.Sponsor, req.Target,
		req.Calldata, req.Value, nonce, fees, req.Gas, p.Chain.Backend)
	if err != nil {
		return nil, err
	}

	digest := utx.SigningDigest()
	sig, err := p.Signer.Sign(ctx, digest, p.SignerPublicKey, req.PurposeTag)
	if err != nil {
		return nil, err
	}
	signed, err := utx.WithSignature(sig.Bytes65())
	if err != nil {
		return nil, err
	}
	return p.Chain.Submit(ctx, signed)
}

func (p *Pipeline) extractResult(ctx context.Context, req *Request, broadcast *chain.BroadcastResult) (*Result, error) {
	result := &Result{
		TxHash:      broadcast.TxHash,
		BlockNumber: broadcast.BlockNumber,
		GasUsed:     broadcast.GasUsed,
	}
	if req.LogSpec != nil {
		id, err := extract.FromLogs(broadcast.Logs, *req.LogSpec)
		if err != nil {
			return nil, err
		}
		result.ID = id
	}
	if req.Derive != nil {
		derived, err := req.Derive(ctx, broadcast)
		if err != nil {
			return nil, err
		}
		result.Derived = derived
	}
	return result, nil
}
