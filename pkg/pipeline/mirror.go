package pipeline

import (
	"context"

	"go.uber.org/zap"

	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
)

// MirrorFailureSink records a secondary-chain write that needs out-of-band
// reconciliation. Implementations persist the failure durably before
// Record returns.
type MirrorFailureSink interface {
	Record(ctx context.Context, failure *MirrorFailure) error
}

// MirrorFailure describes one divergence between the chains.
type MirrorFailure struct {
	Chain     string
	Operation string
	Signer    string
	Detail    string
}

// Mirror keeps an access-control fact consistent across two chains. The
// primary chain is authoritative: a write lands there first, and only then
// on the secondary. The failure handling is asymmetric on purpose, because
// the two chains disagree in opposite directions depending on which write
// failed.
type Mirror struct {
	Primary   *Pipeline
	Secondary *Pipeline
	Sink      MirrorFailureSink
}

// MirrorResult carries both chains' outcomes. Secondary is nil when the
// secondary write failed and was handed to reconciliation.
type MirrorResult struct {
	Primary   *Result
	Secondary *Result
}

// Apply writes the fact to both chains, primary first. A primary failure
// aborts the whole operation with no secondary attempt. A secondary failure
// after a confirmed primary write does not fail the operation: the primary
// outcome stands, the divergence is recorded for reconciliation, and the
// caller sees success.
func (m *Mirror) Apply(ctx context.Context, operation string, primaryReq, secondaryReq *Request) (*MirrorResult, error) {
	primary, err := m.Primary.Run(ctx, primaryReq)
	if err != nil {
		return nil, err
	}

	secondary, err := m.Secondary.Run(ctx, secondaryReq)
	if err != nil {
		m.recordDivergence(ctx, operation, secondaryReq, err)
		return &MirrorResult{Primary: primary}, nil
	}
	return &MirrorResult{Primary: primary, Secondary: secondary}, nil
}

// Revoke removes the fact from both chains with the same ordering and
// failure contract as Apply. A revocation that lands on the primary is
// effective even while the secondary still lags.
func (m *Mirror) Revoke(ctx context.Context, operation string, primaryReq, secondaryReq *Request) (*MirrorResult, error) {
	return m.Apply(ctx, operation, primaryReq, secondaryReq)
}

// MirrorChunk pairs the per-chain requests for one batch element.
type MirrorChunk struct {
	Primary   *Request
	Secondary *Request
}

// ChunkOutcome is one chunk's final state. Err is the chunk's primary
// failure; a secondary failure is already absorbed by Apply's contract.
type ChunkOutcome struct {
	Result *MirrorResult
	Err    error
}

// ApplyBatch applies the chunks in order, each with Apply's contract. A
// failed chunk does not abort the later ones; every chunk's outcome is
// reported so the caller can retry just the failed subset.
func (m *Mirror) ApplyBatch(ctx context.Context, operation string, chunks []MirrorChunk) []ChunkOutcome {
	outcomes := make([]ChunkOutcome, 0, len(chunks))
	for i, chunk := range chunks {
		result, err := m.Apply(ctx, operation, chunk.Primary, chunk.Secondary)
		if err != nil {
			logger.Warn("mirror chunk failed, continuing with the rest",
				zap.Int("chunk", i),
				zap.String("operation", operation),
				zap.Error(err))
		}
		outcomes = append(outcomes, ChunkOutcome{Result: result, Err: err})
	}
	return outcomes
}

func (m *Mirror) recordDivergence(ctx context.Context, operation string, req *Request, cause error) {
	failure := &MirrorFailure{
		Chain:     m.Secondary.Chain.Name,
		Operation: operation,
		Signer:    req.ExpectedSigner,
		Detail:    cause.Error(),
	}
	logger.Error("secondary mirror write failed, recorded for reconciliation",
		zap.String("chain", failure.Chain),
		zap.String("operation", operation),
		zap.Error(cause))
	if monitor.Business != nil {
		monitor.Business.MirrorFailureTotal.WithLabelValues(failure.Chain).Inc()
	}
	if m.Sink != nil {
		if err := m.Sink.Record(ctx, failure); err != nil {
			logger.Error("mirror failure sink write failed",
				zap.String("chain", failure.Chain),
				zap.Error(err))
		}
	}
}
