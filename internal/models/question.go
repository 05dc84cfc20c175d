// Package models defines the database models of the off-chain mirror. Every
// row is derived from ledger events and safe to rebuild from the log; natural
// keys carry unique indexes so re-applying an event upserts instead of
// duplicating.
package models

import "time"

// Question mirrors a QuestionSubmitted event, updated by later lifecycle
// events for the same question id.
type Question struct {
	ID            uint      `gorm:"primaryKey"`
	QuestionID    string    `gorm:"size:128;uniqueIndex;not null"`
	Asker         string    `gorm:"size:128;index"`
	Text          string    `gorm:"type:text"`
	ReferenceURLs string    `gorm:"type:text"` // JSON-encoded list
	Fee           string    `gorm:"size:80"`   // decimal base units
	SubmittedAt   time.Time `gorm:"index"`
	Answered      bool      `gorm:"index"`
	Finalized     bool      `gorm:"index"`
	Verified      bool      `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
