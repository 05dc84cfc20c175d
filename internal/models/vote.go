package models

import "time"

// VoteRecord mirrors a VoteCast event. The (question_id, voter) pair is
// unique so event redelivery cannot double-count a voter.
type VoteRecord struct {
	ID         uint      `gorm:"primaryKey"`
	QuestionID string    `gorm:"size:128;index:ux_question_voter,unique;index"`
	Voter      string    `gorm:"size:128;index:ux_question_voter,unique"`
	Approved   bool      `gorm:"index"`
	Stake      string    `gorm:"size:80"` // weight at vote time, decimal base units
	CastAt     time.Time `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
