package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invocation is the audit row for one relay invocation. Exactly one row per
// accepted request, written after the pipeline finishes either way.
type Invocation struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Flow   string `gorm:"type:varchar(32);not null;index" json:"flow"` // relay, sequence, mirror_grant, mirror_revoke
	Signer string `gorm:"type:varchar(64);not null;uniqueIndex:idx_signer_nonce" json:"signer"`
	// AuthNonce is the consumed authorization nonce; unique per signer so a
	// replayed authorization cannot produce a second row.
	AuthNonce string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_signer_nonce" json:"auth_nonce"`
	Chain     string          `gorm:"type:varchar(32);not null" json:"chain"`
	TxHash    string          `gorm:"type:varchar(66)" json:"tx_hash"`
	Value     decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"value"`
	// ResultID is the identifier extracted from the receipt, empty when the
	// flow does not produce one.
	ResultID  string         `gorm:"type:varchar(80)" json:"result_id"`
	Code      int            `gorm:"not null" json:"code"`
	Detail    string         `gorm:"type:text" json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invocation) TableName() string {
	return "invocations"
}

// MirrorFailure records a secondary-chain write that diverged from a
// confirmed primary write. Rows stay until reconciliation resolves them.
type MirrorFailure struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Chain     string         `gorm:"type:varchar(32);not null;index" json:"chain"`
	Operation string         `gorm:"type:varchar(32);not null" json:"operation"` // grant, revoke
	Signer    string         `gorm:"type:varchar(64);not null" json:"signer"`
	Detail    string         `gorm:"type:text;not null" json:"detail"`
	Status    string         `gorm:"type:varchar(50);not null;default:'OPEN';index" json:"status"` // OPEN, NOTIFIED, RESOLVED
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MirrorFailure) TableName() string {
	return "mirror_failures"
}

// OutboxMessage is the transactional outbox row. Failures are written here
// in the same transaction as their MirrorFailure row and relayed to the
// broker by the reconcile poller, at-least-once.
type OutboxMessage struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string         `gorm:"type:varchar(255);not null" json:"topic"`
	Key       string         `gorm:"type:varchar(255)" json:"key"`
	Payload   []byte         `gorm:"type:text;not null" json:"payload"`
	Status    string         `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"` // PENDING, SENT, FAILED
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
