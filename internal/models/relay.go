package models

import "time"

// RelayCursor is the single-row persisted position of the relay in the
// ledger's event log. The cursor advances only after an event has been fully
// applied.
type RelayCursor struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:64;uniqueIndex;not null"`
	LastSeq     uint64 `gorm:"not null"`
	InstanceID  string `gorm:"size:64"`
	HeartbeatAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIRequest tracks an in-flight or settled inference request. The question id
// is the idempotency key: a relay restart finds pending rows here instead of
// re-submitting work the AI collaborator already has.
type AIRequest struct {
	ID          uint      `gorm:"primaryKey"`
	QuestionID  string    `gorm:"size:128;uniqueIndex;not null"`
	Status      string    `gorm:"size:16;index"` // pending, done, failed
	Attempts    int
	LastError   string    `gorm:"type:text"`
	RequestedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIRequest status values.
const (
	AIStatusPending = "pending"
	AIStatusDone    = "done"
	AIStatusFailed  = "failed"
)
