package models

import (
	"time"

	"gorm.io/datatypes"
)

type InsightCategory string

const (
	CategoryOverview    InsightCategory = "overview"
	CategorySWOT        InsightCategory = "swot"
	CategoryActionPlan  InsightCategory = "action_plan"
	CategoryChecklist   InsightCategory = "checklist"
	CategoryStudyTips   InsightCategory = "study_tips"
	CategoryCheckpoints InsightCategory = "checkpoints"
	CategorySubtopics   InsightCategory = "subtopics"
)

// AllCategories lists every insight category one analysis unit produces.
var AllCategories = []InsightCategory{
	CategoryOverview,
	CategorySWOT,
	CategoryActionPlan,
	CategoryChecklist,
	CategoryStudyTips,
	CategoryCheckpoints,
	CategorySubtopics,
}

// InsightRecord is one generated insight payload. The unique index over
// (owner_id, class_id, test_id, category) makes regeneration an upsert:
// re-running an analysis can never duplicate records. TestID 0 means
// cumulative (across all tests of the class).
type InsightRecord struct {
	ID       uint            `json:"id" gorm:"primaryKey"`
	OwnerID  string          `json:"owner_id" gorm:"not null;size:64;uniqueIndex:idx_insight_identity"`
	ClassID  uint            `json:"class_id" gorm:"not null;uniqueIndex:idx_insight_identity"`
	TestID   uint            `json:"test_id" gorm:"not null;uniqueIndex:idx_insight_identity"`
	Category InsightCategory `json:"category" gorm:"not null;size:32;uniqueIndex:idx_insight_identity" validate:"required,insight_category"`

	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InsightRecord) TableName() string {
	return "insight_records"
}

// ===== PERSISTED PAYLOAD SHAPES =====

type OverviewPayload struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// SWOTEntry carries exactly two strength and two weakness bullets for
// one subject; the cardinality is enforced by truncation when the
// generated text overshoots.
type SWOTEntry struct {
	Subject    string   `json:"subject" validate:"required"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

type ActionPlanItem struct {
	Topic    string  `json:"topic" validate:"required"`
	Subject  string  `json:"subject" validate:"required"`
	Accuracy float64 `json:"accuracy"`
	Action   string  `json:"action" validate:"required"`
}

type ChecklistItem struct {
	Topic    string  `json:"topic" validate:"required"`
	Subject  string  `json:"subject" validate:"required"`
	Accuracy float64 `json:"accuracy"`
	Problem  string  `json:"problem" validate:"required"`
}

type CheckpointItem struct {
	Topic      string  `json:"topic" validate:"required"`
	Subject    string  `json:"subject" validate:"required"`
	Accuracy   float64 `json:"accuracy"`
	Checkpoint string  `json:"checkpoint" validate:"required"`
	Action     string  `json:"action" validate:"required"`
	Citation   []int   `json:"citation"`
}

type StudyTip struct {
	Subject string `json:"subject" validate:"required"`
	Tip     string `json:"tip" validate:"required"`
}

// SubtopicCitation points at one concrete question as evidence.
type SubtopicCitation struct {
	TestNum     int `json:"test_num"`
	QuestionNum int `json:"question_num"`
}

type SubtopicRank struct {
	Subtopic  string             `json:"subtopic" validate:"required"`
	Rank      int                `json:"rank"`
	Reason    string             `json:"reason" validate:"required"`
	Citations []SubtopicCitation `json:"citations"`
}

// SubtopicsPayload is keyed by subject; each list is ordered by rank
// and capped at six entries.
type SubtopicsPayload map[string][]SubtopicRank

// ===== CARDINALITY CAPS =====

const (
	MaxActionPlanItems       = 5
	MaxChecklistItems        = 6
	MaxCheckpoints           = 5
	MaxCheckpointsPerSubject = 2
	MaxSubtopicsPerSubject   = 6
	SWOTBulletsPerSubject    = 2
)
