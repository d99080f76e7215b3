package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/insight-service/internal/cache"
	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"github.com/SAP-F-2025/insight-service/internal/taskgroup"
)

// PipelineStage tracks where a (class, test) run is in the analysis
// state machine.
type PipelineStage string

const (
	StagePending          PipelineStage = "pending"
	StageScoring          PipelineStage = "scoring"
	StageAnalysisFanOut   PipelineStage = "analysis_fan_out"
	StageAggregationWave1 PipelineStage = "aggregation_wave_1"
	StageAggregationWave2 PipelineStage = "aggregation_wave_2"
	StageSuccess          PipelineStage = "success"
	StageFailed           PipelineStage = "failed"
)

// PipelineService drives one (class, test) through scoring, the
// per-student analysis fan-out, and the two chained class aggregation
// waves. Run blocks until the whole pipeline is terminal.
type PipelineService interface {
	Run(ctx context.Context, classID, testID uint) error
}

type pipelineService struct {
	repo     repositories.Repository
	insights InsightService
	runner   *taskgroup.Runner
	cache    cache.CacheService
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

func NewPipelineService(repo repositories.Repository, insights InsightService, runner *taskgroup.Runner, cacheSvc cache.CacheService, logger *slog.Logger) PipelineService {
	return &pipelineService{
		repo:     repo,
		insights: insights,
		runner:   runner,
		cache:    cacheSvc,
		logger:   logger,
		running:  make(map[string]struct{}),
	}
}

func (s *pipelineService) Run(ctx context.Context, classID, testID uint) error {
	key := fmt.Sprintf("%d/%d", classID, testID)
	s.mu.Lock()
	if _, busy := s.running[key]; busy {
		s.mu.Unlock()
		return ErrAnalysisRunning
	}
	s.running[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}()

	test, err := s.repo.Roster().GetTest(ctx, testID)
	if err != nil {
		return NewPipelineError(string(StagePending), classID, testID, err)
	}
	if test == nil || test.ClassID != classID {
		return ErrTestNotFound
	}

	s.transition(classID, testID, StagePending, StageScoring)
	students, err := s.score(ctx, classID, testID, test.TestNum)
	if err != nil {
		s.transition(classID, testID, StageScoring, StageFailed)
		return NewPipelineError(string(StageScoring), classID, testID, err)
	}
	if len(students) == 0 {
		// No answer sheets: a data gap, not a fault.
		s.logger.Info("no responses recorded, pipeline complete without analysis",
			"class_id", classID, "test_id", testID)
		s.transition(classID, testID, StageScoring, StageSuccess)
		return nil
	}

	s.transition(classID, testID, StageScoring, StageAnalysisFanOut)
	tasks := make([]taskgroup.Task, len(students))
	for i, studentID := range students {
		tasks[i] = taskgroup.Task{
			Name: studentID,
			Run: func(taskCtx context.Context) error {
				return s.insights.GenerateStudentInsights(taskCtx, studentID, classID, testID)
			},
		}
	}

	// The barrier resolves once every unit is terminal; the aggregation
	// continuation runs exactly once, fed only by the students whose
	// analysis succeeded.
	done := make(chan error, 1)
	s.runner.SubmitGroup(ctx, tasks, func(group taskgroup.GroupResult) {
		done <- s.aggregate(ctx, classID, testID, group)
	})
	if err := <-done; err != nil {
		s.transition(classID, testID, StageAggregationWave1, StageFailed)
		return err
	}

	s.transition(classID, testID, StageAggregationWave2, StageSuccess)
	return nil
}

// ===== SCORING PASS =====

// score converts raw responses into immutable outcome rows, one per
// (student, test, question). Questions already scored for a student are
// skipped, so re-running after a partial pass never duplicates rows.
// Returns the students that submitted at least one response.
func (s *pipelineService) score(ctx context.Context, classID, testID uint, testNum int) ([]string, error) {
	questions, err := s.repo.Question().GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		s.logger.Warn("test has no questions", "test_id", testID)
		return nil, nil
	}
	questionByID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	students, err := s.repo.Response().StudentsWithResponses(ctx, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responding students: %w", err)
	}

	for _, studentID := range students {
		existing, err := s.repo.Outcome().ExistingQuestionIDs(ctx, studentID, testID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing outcomes for student %s: %w", studentID, err)
		}
		responses, err := s.repo.Response().GetByStudentAndTest(ctx, studentID, testID)
		if err != nil {
			return nil, fmt.Errorf("failed to load responses for student %s: %w", studentID, err)
		}

		var outcomes []*models.QuestionOutcome
		for _, resp := range responses {
			if _, scored := existing[resp.QuestionID]; scored {
				continue
			}
			question, ok := questionByID[resp.QuestionID]
			if !ok {
				s.logger.Warn("response references unknown question",
					"student_id", studentID, "question_id", resp.QuestionID)
				continue
			}
			outcomes = append(outcomes, scoreResponse(question, resp, classID, testNum))
		}
		if len(outcomes) == 0 {
			continue
		}
		if err := s.repo.Outcome().CreateBatch(ctx, outcomes); err != nil {
			return nil, fmt.Errorf("failed to persist outcomes for student %s: %w", studentID, err)
		}
	}

	// Fresh outcome rows invalidate any cached cumulative metrics for
	// the class.
	if s.cache != nil {
		pattern := fmt.Sprintf("metrics:topic:*:%d", classID)
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate metric cache", "class_id", classID, "error", err)
		}
	}

	return students, nil
}

func scoreResponse(question *models.Question, resp *models.Response, classID uint, testNum int) *models.QuestionOutcome {
	attempted := resp.SelectedOption != 0
	outcome := &models.QuestionOutcome{
		TestID:       resp.TestID,
		StudentID:    resp.StudentID,
		ClassID:      classID,
		QuestionID:   question.ID,
		TestNum:      testNum,
		QuestionNum:  question.QuestionNum,
		Subject:      question.Subject,
		Chapter:      question.Chapter,
		Topic:        question.Topic,
		Subtopic:     question.Subtopic,
		WasAttempted: attempted,
		IsCorrect:    attempted && resp.SelectedOption == question.CorrectOption,
	}
	if attempted && !outcome.IsCorrect {
		if option, ok := question.OptionAt(resp.SelectedOption); ok && option.MisconceptionType != "" {
			outcome.MisconceptionType = &option.MisconceptionType
			outcome.MisconceptionText = &option.MisconceptionText
		}
	}
	return outcome
}

// ===== AGGREGATION WAVES =====

func (s *pipelineService) aggregate(ctx context.Context, classID, testID uint, group taskgroup.GroupResult) error {
	if failed := group.Failed(); failed > 0 {
		for _, r := range group.Results {
			if r.Err != nil {
				s.logger.Error("student analysis unit failed",
					"student_id", r.Name, "class_id", classID, "test_id", testID, "error", r.Err)
			}
		}
	}

	succeeded := group.Succeeded()
	if len(succeeded) == 0 {
		s.logger.Warn("every analysis unit failed, skipping class aggregation",
			"class_id", classID, "test_id", testID)
		return nil
	}

	teacherID, err := s.repo.Roster().GetTeacher(ctx, classID)
	if err != nil {
		return NewPipelineError(string(StageAggregationWave1), classID, testID, err)
	}

	s.transition(classID, testID, StageAnalysisFanOut, StageAggregationWave1)
	if err := s.insights.GenerateClassInsights(ctx, teacherID, succeeded, classID, testID); err != nil {
		return NewPipelineError(string(StageAggregationWave1), classID, testID, err)
	}

	// Wave 2 is chained off wave 1, never triggered on its own: the
	// class cumulative view across all tests so far.
	s.transition(classID, testID, StageAggregationWave1, StageAggregationWave2)
	if err := s.insights.GenerateClassInsights(ctx, teacherID, succeeded, classID, 0); err != nil {
		return NewPipelineError(string(StageAggregationWave2), classID, testID, err)
	}
	return nil
}

func (s *pipelineService) transition(classID, testID uint, from, to PipelineStage) {
	s.logger.Info("pipeline stage transition",
		"class_id", classID, "test_id", testID, "from", from, "to", to)
}
