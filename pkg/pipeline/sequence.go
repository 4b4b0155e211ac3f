package pipeline

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"relay-core/pkg/authz"
	"relay-core/pkg/chain"
	"relay-core/pkg/extract"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/txbuild"
)

// StepStatus is the final state of one sequenced step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// SequenceStep is one transaction of an ordered plan, with the request
// context needed to execute and interpret it.
type SequenceStep struct {
	Template txbuild.Template
	LogSpec  *extract.LogSpec
}

// SequenceRequest is an ordered multi-transaction invocation covered by a
// single authorization.
type SequenceRequest struct {
	Authorization  *authz.Request
	ExpectedSigner string
	Schema         authz.Schema
	Steps          []SequenceStep
}

// StepResult reports one step's outcome. Failed steps carry the error;
// skipped steps follow a failed one and were never broadcast.
type StepResult struct {
	Name   string
	Status StepStatus
	TxHash common.Hash
	ID     *big.Int
	Err    error
}

// RunSequence executes the request's steps strictly in order on one sponsor
// nonce run: step i gets nonce base+i. The authorization is checked before
// any chain state is touched and the plan is built upfront from a single
// fee estimate. Execution is fail-fast, so a failed step marks every later
// step skipped and its nonce is never consumed by this sequence. The
// returned error is the failing step's error, nil when all steps completed.
func (p *Pipeline) RunSequence(ctx context.Context, req *SequenceRequest) ([]StepResult, error) {
	steps := req.Steps
	results := make([]StepResult, len(steps))
	for i, step := range steps {
		results[i] = StepResult{Name: step.Template.Name, Status: StepSkipped}
	}

	if err := p.Verifier.Verify(req.Authorization, req.ExpectedSigner, req.Schema); err != nil {
		return results, err
	}

	nonce, fees, err := p.fetchChainState(ctx)
	if err != nil {
		return results, err
	}

	templates := make([]txbuild.Template, len(steps))
	for i, step := range steps {
		templates[i] = step.Template
	}
	plan, err := txbuild.PlanSequence(ctx, p.Chain.ChainID, p.Sponsor, nonce,
		fees, templates, p.Chain.Backend)
	if err != nil {
		return results, err
	}

	var failed error
	for i, utx := range plan {
		if failed != nil {
			recordStep(StepSkipped)
			continue
		}
		result, err := p.executeStep(ctx, &steps[i], utx)
		results[i] = result
		recordStep(result.Status)
		if err != nil {
			failed = err
			logger.Warn("sequence step failed, skipping remainder",
				zap.String("chain", p.Chain.Name),
				zap.String("step", result.Name),
				zap.Error(err))
		}
	}
	return results, failed
}

func (p *Pipeline) executeStep(ctx context.Context, step *SequenceStep, utx *txbuild.UnsignedTx) (StepResult, error) {
	result := StepResult{Name: step.Template.Name}

	broadcast, err := p.signAndSubmit(ctx, utx, step.Template.Purpose)
	if err != nil {
		result.Status = StepFailed
		result.Err = err
		if broadcast != nil {
			result.TxHash = broadcast.TxHash
		}
		return result, err
	}
	result.TxHash = broadcast.TxHash

	if step.LogSpec != nil {
		id, err := extract.FromLogs(broadcast.Logs, *step.LogSpec)
		if err != nil {
			result.Status = StepFailed
			result.Err = err
			return result, err
		}
		result.ID = id
	}
	result.Status = StepCompleted
	return result, nil
}

// signAndSubmit runs the sign-broadcast tail for an already built
// transaction. Sequenced steps do not fee-bump: a bumped middle step would
// race its own predecessor, so the sequence fails fast instead.
func (p *Pipeline) signAndSubmit(ctx context.Context, utx *txbuild.UnsignedTx, purposeTag string) (*chain.BroadcastResult, error) {
	digest := utx.SigningDigest()
	sig, err := p.Signer.Sign(ctx, digest, p.SignerPublicKey, purposeTag)
	if err != nil {
		return nil, err
	}
	signed, err := utx.WithSignature(sig.Bytes65())
	if err != nil {
		return nil, err
	}
	return p.Chain.Submit(ctx, signed)
}

func recordStep(status StepStatus) {
	if monitor.Business != nil {
		monitor.Business.SequenceStepTotal.WithLabelValues(string(status)).Inc()
	}
}
