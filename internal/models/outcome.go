package models

import (
	"time"
)

// QuestionOutcome is one scored answer: exactly one row per
// (student, test, question), written by the scoring pass and never
// updated afterwards. All downstream metrics derive from these rows.
type QuestionOutcome struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	TestID    uint   `json:"test_id" gorm:"not null;uniqueIndex:idx_outcome_identity;index"`
	StudentID string `json:"student_id" gorm:"not null;size:64;uniqueIndex:idx_outcome_identity;index"`
	ClassID   uint   `json:"class_id" gorm:"not null;index"`

	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_outcome_identity"`

	// Citation coordinates: stable across regenerated tests, used by
	// subtopic rankings which cite (test_num, question_num) pairs.
	TestNum     int `json:"test_num" gorm:"not null"`
	QuestionNum int `json:"question_num" gorm:"not null"`

	Subject  string `json:"subject" gorm:"not null;size:100;index"`
	Chapter  string `json:"chapter" gorm:"size:200"`
	Topic    string `json:"topic" gorm:"not null;size:200;index"`
	Subtopic string `json:"subtopic" gorm:"size:200"`

	WasAttempted bool `json:"was_attempted" gorm:"not null"`
	IsCorrect    bool `json:"is_correct" gorm:"not null"`

	MisconceptionType *string `json:"misconception_type" gorm:"size:100"`
	MisconceptionText *string `json:"misconception_text" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (QuestionOutcome) TableName() string {
	return "question_outcomes"
}
