package models

import "time"

// Round mirrors a question's voting window. Open/closed is derived from
// WindowEnd at read time; Finalized flips once on VotingFinalized.
type Round struct {
	ID          uint      `gorm:"primaryKey"`
	QuestionID  string    `gorm:"size:128;uniqueIndex;not null"`
	WindowStart time.Time `gorm:"index"`
	WindowEnd   time.Time `gorm:"index"`
	Finalized   bool      `gorm:"index"`
	Approved    bool
	QuorumPct   uint64
	ApprovalPct uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
