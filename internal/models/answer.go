package models

import "time"

// Answer mirrors an AnswerSubmitted event, 1:1 with a question.
type Answer struct {
	ID          uint      `gorm:"primaryKey"`
	QuestionID  string    `gorm:"size:128;uniqueIndex;not null"`
	Text        string    `gorm:"type:text"`
	StorageHash string    `gorm:"size:128;index"`
	ModelHash   string    `gorm:"size:128"`
	InputHash   string    `gorm:"size:128"`
	OutputHash  string    `gorm:"size:128"`
	Relayer     string    `gorm:"size:128"`
	SubmittedAt time.Time `gorm:"index"`
	Verified    bool      `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
