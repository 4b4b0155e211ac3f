package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"relay-core/internal/model"
	"relay-core/internal/service/mq"
	"relay-core/pkg/logger"
)

// ReconcileService ships pending outbox rows to the broker. Delivery is
// at-least-once: a row is marked SENT only after the broker acknowledged
// it, so consumers must tolerate duplicates.
type ReconcileService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewReconcileService(db *gorm.DB, producer mq.Producer) *ReconcileService {
	return &ReconcileService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

func (s *ReconcileService) Start(ctx context.Context) {
	logger.Info("reconcile relay started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconcile relay stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *ReconcileService) processPendingMessages(ctx context.Context) {
	var messages []model.OutboxMessage
	// Batches of 50 keep memory bounded under a failure burst.
	if err := s.db.Where("status = ?", "PENDING").Limit(50).Find(&messages).Error; err != nil {
		logger.Error("outbox query failed", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	logger.Info("outbox messages pending", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Warn("outbox publish failed", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		if err := s.db.Model(&msg).Update("status", "SENT").Error; err != nil {
			logger.Error("outbox status update failed", zap.Uint64("id", msg.ID), zap.Error(err))
		}
	}
}

// ReconcileWorker consumes divergence events and resolves the recorded
// mirror failures. Resolution here is bookkeeping: the actual re-apply is
// an operator action, so the worker marks the row and surfaces it in logs.
type ReconcileWorker struct {
	db       *gorm.DB
	consumer mq.Consumer
	topic    string
}

func NewReconcileWorker(db *gorm.DB, consumer mq.Consumer, topic string) *ReconcileWorker {
	return &ReconcileWorker{db: db, consumer: consumer, topic: topic}
}

func (w *ReconcileWorker) Start(ctx context.Context) error {
	return w.consumer.Subscribe(ctx, w.topic, w.handle)
}

func (w *ReconcileWorker) handle(msg *mq.Message) error {
	var event struct {
		FailureID uint64 `json:"failure_id"`
		Chain     string `json:"chain"`
		Operation string `json:"operation"`
		Signer    string `json:"signer"`
	}
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Warn("malformed reconcile event dropped", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}

	logger.Warn("mirror divergence awaiting reconciliation",
		zap.Uint64("failureId", event.FailureID),
		zap.String("chain", event.Chain),
		zap.String("operation", event.Operation),
		zap.String("signer", event.Signer))

	// Idempotent: re-delivered events update the same row.
	return w.db.Model(&model.MirrorFailure{}).
		Where("id = ? AND status = ?", event.FailureID, "OPEN").
		Update("status", "NOTIFIED").Error
}
