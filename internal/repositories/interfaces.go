package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/insight-service/internal/models"
)

// Repository is the facade services receive; each accessor returns one
// storage-backed repository. Keeping business logic against these
// interfaces lets storage technologies swap without duplicating the
// aggregation code.
type Repository interface {
	Outcome() OutcomeRepository
	Question() QuestionRepository
	Response() ResponseRepository
	Insight() InsightRepository
	Usage() UsageRepository
	Roster() RosterRepository
}

// ===== REPOSITORY INTERFACES =====

// OutcomeRepository stores scored per-question outcomes. testID 0 means
// "all tests of the class" (cumulative scope).
type OutcomeRepository interface {
	// CreateBatch inserts outcomes, silently skipping rows whose
	// (student, test, question) identity already exists.
	CreateBatch(ctx context.Context, outcomes []*models.QuestionOutcome) error

	GetByStudent(ctx context.Context, studentID string, classID, testID uint) ([]*models.QuestionOutcome, error)
	GetByStudents(ctx context.Context, studentIDs []string, classID, testID uint) ([]*models.QuestionOutcome, error)

	// ExistingQuestionIDs reports which questions of a test already have
	// an outcome row for the student, so re-scoring can skip them.
	ExistingQuestionIDs(ctx context.Context, studentID string, testID uint) (map[uint]struct{}, error)
}

type QuestionRepository interface {
	GetByTest(ctx context.Context, testID uint) ([]*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
}

type ResponseRepository interface {
	GetByTest(ctx context.Context, testID uint) ([]*models.Response, error)
	GetByStudentAndTest(ctx context.Context, studentID string, testID uint) ([]*models.Response, error)

	// StudentsWithResponses lists students that submitted at least one
	// answer for the test; the fan-out schedules exactly these.
	StudentsWithResponses(ctx context.Context, classID, testID uint) ([]string, error)
}

type InsightRepository interface {
	// Upsert writes the record keyed by (owner, class, test, category),
	// replacing any previous payload for the same key.
	Upsert(ctx context.Context, record *models.InsightRecord) error

	Get(ctx context.Context, ownerID string, classID, testID uint, category models.InsightCategory) (*models.InsightRecord, error)
	GetByOwner(ctx context.Context, ownerID string, classID, testID uint) ([]*models.InsightRecord, error)
	GetByOwners(ctx context.Context, ownerIDs []string, classID, testID uint, category models.InsightCategory) ([]*models.InsightRecord, error)
}

// UsageRepository persists per-(credential, model) usage windows with
// increment-or-create semantics; concurrent increments must not lose
// updates.
type UsageRepository interface {
	Increment(ctx context.Context, credential, model string, window models.UsageWindow, windowStart time.Time, requests, tokens int64) error
	Get(ctx context.Context, credential, model string, window models.UsageWindow, windowStart time.Time) (*models.GenerationUsage, error)
}

// RosterRepository covers class membership and test metadata.
type RosterRepository interface {
	GetStudents(ctx context.Context, classID uint) ([]string, error)
	GetTeacher(ctx context.Context, classID uint) (string, error)

	// GetTest returns (nil, nil) for an unknown test; errors are
	// reserved for storage failures.
	GetTest(ctx context.Context, testID uint) (*models.Test, error)
	GetTestsByClass(ctx context.Context, classID uint) ([]*models.Test, error)
}
