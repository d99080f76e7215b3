package models

import (
	"time"

	"gorm.io/datatypes"
)

// OptionCount is fixed: every question carries exactly four options.
const OptionCount = 4

// QuestionOption holds one answer option together with the diagnostic
// metadata attached to picking it.
type QuestionOption struct {
	Text              string `json:"text"`
	Feedback          string `json:"feedback"`
	MisconceptionType string `json:"misconception_type"`
	MisconceptionText string `json:"misconception_text"`
}

type Question struct {
	ID          uint `json:"id" gorm:"primaryKey"`
	TestID      uint `json:"test_id" gorm:"not null;index"`
	QuestionNum int  `json:"question_num" gorm:"not null"`

	Subject  string `json:"subject" gorm:"not null;size:100"`
	Chapter  string `json:"chapter" gorm:"size:200"`
	Topic    string `json:"topic" gorm:"not null;size:200"`
	Subtopic string `json:"subtopic" gorm:"size:200"`

	Text          string                                        `json:"text" gorm:"type:text;not null"`
	Options       datatypes.JSONType[[OptionCount]QuestionOption] `json:"options" gorm:"type:jsonb"`
	CorrectOption int                                           `json:"correct_option" gorm:"not null" validate:"min=1,max=4"`

	CreatedAt time.Time `json:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionAt returns the option a 1-based selection refers to.
// Out-of-range selections (including 0 for "left blank") return false.
func (q *Question) OptionAt(selected int) (QuestionOption, bool) {
	if selected < 1 || selected > OptionCount {
		return QuestionOption{}, false
	}
	opts := q.Options.Data()
	return opts[selected-1], true
}

// Response is one raw per-question answer as ingested, before scoring.
type Response struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	TestID         uint   `json:"test_id" gorm:"not null;index"`
	ClassID        uint   `json:"class_id" gorm:"not null;index"`
	StudentID      string `json:"student_id" gorm:"not null;size:64;index"`
	QuestionID     uint   `json:"question_id" gorm:"not null"`
	SelectedOption int    `json:"selected_option" gorm:"not null"` // 1-4, 0 = left blank

	CreatedAt time.Time `json:"created_at"`
}

func (Response) TableName() string {
	return "responses"
}

// Test is the minimal test metadata the pipeline needs: which class it
// belongs to and where it sits in the chronological sequence.
type Test struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	ClassID uint   `json:"class_id" gorm:"not null;index"`
	TestNum int    `json:"test_num" gorm:"not null"`
	Title   string `json:"title" gorm:"size:200"`

	IngestedAt time.Time `json:"ingested_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Test) TableName() string {
	return "tests"
}

// Enrollment links a student to a class; the analysis fan-out schedules
// one unit per enrolled student.
type Enrollment struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ClassID   uint   `json:"class_id" gorm:"not null;uniqueIndex:idx_enrollment_identity"`
	StudentID string `json:"student_id" gorm:"not null;size:64;uniqueIndex:idx_enrollment_identity"`
	TeacherID string `json:"teacher_id" gorm:"size:64;index"`

	CreatedAt time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
