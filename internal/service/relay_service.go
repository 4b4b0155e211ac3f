package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"relay-core/internal/model"
	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/pipeline"
	"relay-core/pkg/utils/lock"
)

// Flow names recorded in the audit trail and metrics.
const (
	FlowRelay        = "relay"
	FlowSequence     = "sequence"
	FlowMirrorGrant  = "mirror_grant"
	FlowMirrorRevoke = "mirror_revoke"
)

// RelayService is the invocation boundary. It enforces the per-sender
// serialization and nonce-replay guards that the stateless pipeline cannot,
// then records every accepted invocation in the audit table.
type RelayService struct {
	db   *gorm.DB
	rdb  *redis.Client
	lock lock.DistributedLock

	pipeline *pipeline.Pipeline
	mirror   *pipeline.Mirror

	senderLockTTL  time.Duration
	nonceLedgerTTL time.Duration
}

func NewRelayService(
	db *gorm.DB,
	rdb *redis.Client,
	p *pipeline.Pipeline,
	m *pipeline.Mirror,
	senderLockTTL, nonceLedgerTTL time.Duration,
) *RelayService {
	return &RelayService{
		db:             db,
		rdb:            rdb,
		lock:           lock.NewRedisLock(rdb),
		pipeline:       p,
		mirror:         m,
		senderLockTTL:  senderLockTTL,
		nonceLedgerTTL: nonceLedgerTTL,
	}
}

// ExecuteRelay runs one sponsored invocation end to end.
func (s *RelayService) ExecuteRelay(ctx context.Context, req *pipeline.Request) (*pipeline.Result, error) {
	release, err := s.admit(ctx, req.Authorization.Signer, req.Authorization.Nonce)
	if err != nil {
		return nil, err
	}
	defer release()

	result, runErr := s.pipeline.Run(ctx, req)
	s.audit(FlowRelay, s.pipeline.Chain.Name, req, result, runErr)
	return result, runErr
}

// ExecuteSequence runs an ordered multi-transaction invocation. The step
// report is returned even when a step failed.
func (s *RelayService) ExecuteSequence(ctx context.Context, req *pipeline.SequenceRequest) ([]pipeline.StepResult, error) {
	release, err := s.admit(ctx, req.Authorization.Signer, req.Authorization.Nonce)
	if err != nil {
		return nil, err
	}
	defer release()

	results, runErr := s.pipeline.RunSequence(ctx, req)
	s.auditSequence(req, results, runErr)
	return results, runErr
}

// ExecuteMirror applies or revokes an access fact on both chains.
func (s *RelayService) ExecuteMirror(ctx context.Context, flow string, primaryReq, secondaryReq *pipeline.Request) (*pipeline.MirrorResult, error) {
	release, err := s.admit(ctx, primaryReq.Authorization.Signer, primaryReq.Authorization.Nonce)
	if err != nil {
		return nil, err
	}
	defer release()

	operation := "grant"
	if flow == FlowMirrorRevoke {
		operation = "revoke"
	}
	result, runErr := s.mirror.Apply(ctx, operation, primaryReq, secondaryReq)
	var primary *pipeline.Result
	if result != nil {
		primary = result.Primary
	}
	s.audit(flow, s.mirror.Primary.Chain.Name, primaryReq, primary, runErr)
	return result, runErr
}

// admit consumes the authorization nonce and takes the sponsor lock. The
// returned release function frees only the lock: a consumed nonce stays
// consumed even when the invocation fails, because the caller's signed
// message cannot be distinguished from a replay once it has been seen.
func (s *RelayService) admit(ctx context.Context, signer, nonce string) (func(), error) {
	fresh, err := s.rdb.SetNX(ctx, "authnonce:"+signer+":"+nonce, "1", s.nonceLedgerTTL).Result()
	if err != nil {
		return nil, errno.InternalServerError.WithDetail(err.Error())
	}
	if !fresh {
		return nil, errno.ErrAuthNonceConsumed
	}

	acquired, err := s.lock.Acquire(ctx, "sponsor:"+s.pipeline.Chain.Name, s.senderLockTTL)
	if err != nil {
		return nil, errno.InternalServerError.WithDetail(err.Error())
	}
	if !acquired {
		return nil, errno.ErrSenderBusy
	}
	return func() {
		if err := s.lock.Release(context.Background(), "sponsor:"+s.pipeline.Chain.Name); err != nil {
			logger.Warn("sponsor lock release failed", zap.Error(err))
		}
	}, nil
}

func (s *RelayService) audit(flow, chainName string, req *pipeline.Request, result *pipeline.Result, runErr error) {
	code, detail := errno.Decode(runErr)
	row := &model.Invocation{
		Flow:      flow,
		Signer:    req.Authorization.Signer,
		AuthNonce: req.Authorization.Nonce,
		Chain:     chainName,
		Code:      code,
		Detail:    detail,
		Value:     decimal.Zero,
	}
	if req.Value != nil {
		row.Value = decimal.NewFromBigInt(req.Value, 0)
	}
	if result != nil {
		row.TxHash = result.TxHash.Hex()
		if result.ID != nil {
			row.ResultID = result.ID.String()
		}
	}
	s.writeAudit(row, flow, runErr)
}

func (s *RelayService) auditSequence(req *pipeline.SequenceRequest, results []pipeline.StepResult, runErr error) {
	code, detail := errno.Decode(runErr)
	row := &model.Invocation{
		Flow:      FlowSequence,
		Signer:    req.Authorization.Signer,
		AuthNonce: req.Authorization.Nonce,
		Chain:     s.pipeline.Chain.Name,
		Code:      code,
		Detail:    detail,
		Value:     decimal.Zero,
	}
	// Record the last confirmed step's hash as the sequence anchor.
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Status == pipeline.StepCompleted {
			row.TxHash = results[i].TxHash.Hex()
			if results[i].ID != nil {
				row.ResultID = results[i].ID.String()
			}
			break
		}
	}
	s.writeAudit(row, FlowSequence, runErr)
}

func (s *RelayService) writeAudit(row *model.Invocation, flow string, runErr error) {
	if err := s.db.Create(row).Error; err != nil {
		logger.Error("audit write failed",
			zap.String("flow", flow),
			zap.String("signer", row.Signer),
			zap.Error(err))
	}
	if monitor.Business != nil {
		outcome := "ok"
		if runErr != nil {
			outcome = "error"
		}
		monitor.Business.RelayTotal.WithLabelValues(flow, outcome).Inc()
	}
}

// OutboxSink implements pipeline.MirrorFailureSink with the transactional
// outbox: the failure row and its broker message commit atomically, and the
// reconcile poller ships the message afterwards.
type OutboxSink struct {
	db    *gorm.DB
	topic string
}

func NewOutboxSink(db *gorm.DB, topic string) *OutboxSink {
	return &OutboxSink{db: db, topic: topic}
}

func (o *OutboxSink) Record(ctx context.Context, failure *pipeline.MirrorFailure) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &model.MirrorFailure{
			Chain:     failure.Chain,
			Operation: failure.Operation,
			Signer:    failure.Signer,
			Detail:    failure.Detail,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]interface{}{
			"failure_id": row.ID,
			"chain":      failure.Chain,
			"operation":  failure.Operation,
			"signer":     failure.Signer,
			"detail":     failure.Detail,
		})
		if err != nil {
			return err
		}
		return tx.Create(&model.OutboxMessage{
			Topic:   o.topic,
			Key:     failure.Signer,
			Payload: payload,
		}).Error
	})
}
