package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRepo is an in-memory repositories.Repository for service tests.
// Populate the exported fields; unset lookups return empty results.
type stubRepo struct {
	outcomes  []*models.QuestionOutcome
	questions map[uint][]*models.Question
	responses map[string][]*models.Response // keyed by studentID
	students  []string
	teacher   string
	tests     map[uint]*models.Test

	insights      map[string]*models.InsightRecord
	upsertErr     error
	createdBatch  [][]*models.QuestionOutcome
	existingByKey map[string]map[uint]struct{} // studentID -> question IDs
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		questions:     make(map[uint][]*models.Question),
		responses:     make(map[string][]*models.Response),
		tests:         make(map[uint]*models.Test),
		insights:      make(map[string]*models.InsightRecord),
		existingByKey: make(map[string]map[uint]struct{}),
	}
}

func (s *stubRepo) Outcome() repositories.OutcomeRepository   { return (*stubOutcomeRepo)(s) }
func (s *stubRepo) Question() repositories.QuestionRepository { return (*stubQuestionRepo)(s) }
func (s *stubRepo) Response() repositories.ResponseRepository { return (*stubResponseRepo)(s) }
func (s *stubRepo) Insight() repositories.InsightRepository   { return (*stubInsightRepo)(s) }
func (s *stubRepo) Usage() repositories.UsageRepository       { return (*stubUsageRepo)(s) }
func (s *stubRepo) Roster() repositories.RosterRepository     { return (*stubRosterRepo)(s) }

type stubOutcomeRepo stubRepo

func (s *stubOutcomeRepo) CreateBatch(_ context.Context, outcomes []*models.QuestionOutcome) error {
	s.createdBatch = append(s.createdBatch, outcomes)
	s.outcomes = append(s.outcomes, outcomes...)
	return nil
}

func (s *stubOutcomeRepo) GetByStudent(_ context.Context, studentID string, classID, testID uint) ([]*models.QuestionOutcome, error) {
	var out []*models.QuestionOutcome
	for _, o := range s.outcomes {
		if o.StudentID != studentID || o.ClassID != classID {
			continue
		}
		if testID != 0 && o.TestID != testID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOutcomeRepo) GetByStudents(_ context.Context, studentIDs []string, classID, testID uint) ([]*models.QuestionOutcome, error) {
	members := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		members[id] = struct{}{}
	}
	var out []*models.QuestionOutcome
	for _, o := range s.outcomes {
		if _, ok := members[o.StudentID]; !ok || o.ClassID != classID {
			continue
		}
		if testID != 0 && o.TestID != testID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOutcomeRepo) ExistingQuestionIDs(_ context.Context, studentID string, testID uint) (map[uint]struct{}, error) {
	existing := make(map[uint]struct{})
	if ids, ok := s.existingByKey[studentID]; ok {
		for id := range ids {
			existing[id] = struct{}{}
		}
	}
	for _, o := range s.outcomes {
		if o.StudentID == studentID && o.TestID == testID {
			existing[o.QuestionID] = struct{}{}
		}
	}
	return existing, nil
}

type stubQuestionRepo stubRepo

func (s *stubQuestionRepo) GetByTest(_ context.Context, testID uint) ([]*models.Question, error) {
	return s.questions[testID], nil
}

func (s *stubQuestionRepo) GetByID(_ context.Context, id uint) (*models.Question, error) {
	for _, qs := range s.questions {
		for _, q := range qs {
			if q.ID == id {
				return q, nil
			}
		}
	}
	return nil, nil
}

type stubResponseRepo stubRepo

func (s *stubResponseRepo) GetByTest(_ context.Context, testID uint) ([]*models.Response, error) {
	var out []*models.Response
	for _, rs := range s.responses {
		for _, r := range rs {
			if r.TestID == testID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *stubResponseRepo) GetByStudentAndTest(_ context.Context, studentID string, testID uint) ([]*models.Response, error) {
	var out []*models.Response
	for _, r := range s.responses[studentID] {
		if r.TestID == testID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubResponseRepo) StudentsWithResponses(_ context.Context, classID, testID uint) ([]string, error) {
	var out []string
	for studentID, rs := range s.responses {
		for _, r := range rs {
			if r.TestID == testID {
				out = append(out, studentID)
				break
			}
		}
	}
	return out, nil
}

type stubInsightRepo stubRepo

func insightKey(ownerID string, classID, testID uint, category models.InsightCategory) string {
	return fmt.Sprintf("%s/%d/%d/%s", ownerID, classID, testID, category)
}

func (s *stubInsightRepo) Upsert(_ context.Context, record *models.InsightRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.insights[insightKey(record.OwnerID, record.ClassID, record.TestID, record.Category)] = record
	return nil
}

func (s *stubInsightRepo) Get(_ context.Context, ownerID string, classID, testID uint, category models.InsightCategory) (*models.InsightRecord, error) {
	return s.insights[insightKey(ownerID, classID, testID, category)], nil
}

func (s *stubInsightRepo) GetByOwner(_ context.Context, ownerID string, classID, testID uint) ([]*models.InsightRecord, error) {
	var out []*models.InsightRecord
	for _, rec := range s.insights {
		if rec.OwnerID == ownerID && rec.ClassID == classID && rec.TestID == testID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubInsightRepo) GetByOwners(_ context.Context, ownerIDs []string, classID, testID uint, category models.InsightCategory) ([]*models.InsightRecord, error) {
	members := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		members[id] = struct{}{}
	}
	var out []*models.InsightRecord
	for _, rec := range s.insights {
		if _, ok := members[rec.OwnerID]; ok && rec.ClassID == classID && rec.TestID == testID && rec.Category == category {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubUsageRepo stubRepo

func (s *stubUsageRepo) Increment(_ context.Context, credential, model string, window models.UsageWindow, windowStart time.Time, requests, tokens int64) error {
	return nil
}

func (s *stubUsageRepo) Get(_ context.Context, credential, model string, window models.UsageWindow, windowStart time.Time) (*models.GenerationUsage, error) {
	return nil, nil
}

type stubRosterRepo stubRepo

func (s *stubRosterRepo) GetStudents(_ context.Context, classID uint) ([]string, error) {
	return s.students, nil
}

func (s *stubRosterRepo) GetTeacher(_ context.Context, classID uint) (string, error) {
	return s.teacher, nil
}

func (s *stubRosterRepo) GetTest(_ context.Context, testID uint) (*models.Test, error) {
	return s.tests[testID], nil
}

func (s *stubRosterRepo) GetTestsByClass(_ context.Context, classID uint) ([]*models.Test, error) {
	var out []*models.Test
	for _, t := range s.tests {
		if t.ClassID == classID {
			out = append(out, t)
		}
	}
	return out, nil
}
