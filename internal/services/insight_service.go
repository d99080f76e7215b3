package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/insight-service/internal/generation"
	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"github.com/SAP-F-2025/insight-service/internal/utils"
)

// TextGenerator is the slice of generation.Client the insight
// generators need. Exhaustion yields an empty string, never an error.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, model string, fallbacks []string) (string, error)
}

// InsightConfig selects the model chain and bounds regeneration on
// invalid structured output.
type InsightConfig struct {
	Model            string
	FallbackModels   []string
	MaxRegenerations int
}

func (c InsightConfig) withDefaults() InsightConfig {
	if c.MaxRegenerations <= 0 {
		c.MaxRegenerations = 3
	}
	return c
}

type InsightService interface {
	// GenerateStudentInsights runs every category for one student's
	// (class, test) scope and upserts one record per category. A scope
	// without outcomes is a no-op, not an error.
	GenerateStudentInsights(ctx context.Context, studentID string, classID, testID uint) error

	// GenerateClassInsights runs the class-level categories over the
	// merged outcomes of the given students, owned by the class teacher.
	GenerateClassInsights(ctx context.Context, teacherID string, studentIDs []string, classID, testID uint) error

	GetInsight(ctx context.Context, ownerID string, classID, testID uint, category models.InsightCategory) (*models.InsightRecord, error)
	GetInsights(ctx context.Context, ownerID string, classID, testID uint) ([]*models.InsightRecord, error)
}

// classCategories omits the citation-per-question categories, which
// only make sense against a single student's answer sheet.
var classCategories = []models.InsightCategory{
	models.CategoryOverview,
	models.CategorySWOT,
	models.CategoryActionPlan,
	models.CategoryChecklist,
	models.CategoryStudyTips,
}

type insightService struct {
	repo      repositories.Repository
	metrics   MetricService
	selection SelectionService
	generator TextGenerator
	validate  *utils.Validator
	cfg       InsightConfig
	logger    *slog.Logger
}

func NewInsightService(repo repositories.Repository, metrics MetricService, selection SelectionService, generator TextGenerator, cfg InsightConfig, logger *slog.Logger) InsightService {
	return &insightService{
		repo:      repo,
		metrics:   metrics,
		selection: selection,
		generator: generator,
		validate:  utils.NewValidator(),
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// ===== PUBLIC API =====

func (s *insightService) GenerateStudentInsights(ctx context.Context, studentID string, classID, testID uint) error {
	topicMetrics, err := s.metrics.BuildTopicMetrics(ctx, studentID, classID, testID)
	if err != nil {
		return fmt.Errorf("failed to aggregate metrics for student %s: %w", studentID, err)
	}
	if len(topicMetrics) == 0 {
		s.logger.Info("no outcomes in scope, skipping insight generation",
			"student_id", studentID, "class_id", classID, "test_id", testID)
		return nil
	}
	subtopicMetrics, err := s.metrics.BuildSubtopicMetrics(ctx, studentID, classID, testID)
	if err != nil {
		return fmt.Errorf("failed to aggregate subtopic metrics for student %s: %w", studentID, err)
	}

	return s.generateCategories(ctx, studentID, classID, testID, topicMetrics, subtopicMetrics, models.AllCategories)
}

func (s *insightService) GenerateClassInsights(ctx context.Context, teacherID string, studentIDs []string, classID, testID uint) error {
	if len(studentIDs) == 0 {
		s.logger.Info("no students in scope, skipping class insight generation",
			"class_id", classID, "test_id", testID)
		return nil
	}
	topicMetrics, err := s.metrics.BuildClassTopicMetrics(ctx, studentIDs, classID, testID)
	if err != nil {
		return fmt.Errorf("failed to aggregate class metrics: %w", err)
	}
	if len(topicMetrics) == 0 {
		s.logger.Info("no class outcomes in scope, skipping class insight generation",
			"class_id", classID, "test_id", testID)
		return nil
	}

	return s.generateCategories(ctx, teacherID, classID, testID, topicMetrics, nil, classCategories)
}

func (s *insightService) GetInsight(ctx context.Context, ownerID string, classID, testID uint, category models.InsightCategory) (*models.InsightRecord, error) {
	record, err := s.repo.Insight().Get(ctx, ownerID, classID, testID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	if record == nil {
		return nil, ErrInsightNotFound
	}
	return record, nil
}

func (s *insightService) GetInsights(ctx context.Context, ownerID string, classID, testID uint) ([]*models.InsightRecord, error) {
	records, err := s.repo.Insight().GetByOwner(ctx, ownerID, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return records, nil
}

// ===== CATEGORY DISPATCH =====

func (s *insightService) generateCategories(ctx context.Context, ownerID string, classID, testID uint, topicMetrics []models.TopicMetric, subtopicMetrics []models.SubtopicMetric, categories []models.InsightCategory) error {
	weak := s.selection.ThresholdCascade(topicMetrics, 0.7, 0.85)
	weakMetrics := make([]models.TopicMetric, len(weak))
	for i, r := range weak {
		weakMetrics[i] = r.Metric
	}

	for _, category := range categories {
		payload, ok := s.generateCategory(ctx, category, topicMetrics, subtopicMetrics, weakMetrics)
		if err := s.persist(ctx, ownerID, classID, testID, category, payload, ok); err != nil {
			return err
		}
	}
	return nil
}

// generateCategory returns the marshalled payload and whether generation
// produced at least one valid record. A false return carries the empty
// payload shape for the category.
func (s *insightService) generateCategory(ctx context.Context, category models.InsightCategory, topicMetrics []models.TopicMetric, subtopicMetrics []models.SubtopicMetric, weakMetrics []models.TopicMetric) ([]byte, bool) {
	switch category {
	case models.CategoryOverview:
		return s.generateOverview(ctx, topicMetrics)
	case models.CategorySWOT:
		return s.generateSWOT(ctx, topicMetrics)
	case models.CategoryActionPlan:
		picks := s.selection.RoundRobinAllocate(weakMetrics, 2, models.MaxActionPlanItems)
		return s.generateActionPlan(ctx, picks)
	case models.CategoryChecklist:
		picks := s.selection.RoundRobinAllocate(weakMetrics, 2, models.MaxChecklistItems)
		return s.generateChecklist(ctx, picks)
	case models.CategoryStudyTips:
		return s.generateStudyTips(ctx, topicMetrics)
	case models.CategoryCheckpoints:
		picks := s.selection.RoundRobinAllocate(weakMetrics, models.MaxCheckpointsPerSubject, models.MaxCheckpoints)
		return s.generateCheckpoints(ctx, picks)
	case models.CategorySubtopics:
		return s.generateSubtopics(ctx, subtopicMetrics)
	default:
		s.logger.Error("unknown insight category", "category", category)
		return []byte("{}"), false
	}
}

// persist upserts the record. A failed generation persists its empty
// payload only when no prior valid record exists for the key: an
// invalid result never overwrites a valid one.
func (s *insightService) persist(ctx context.Context, ownerID string, classID, testID uint, category models.InsightCategory, payload []byte, ok bool) error {
	if !ok {
		existing, err := s.repo.Insight().Get(ctx, ownerID, classID, testID, category)
		if err != nil {
			return fmt.Errorf("failed to check existing insight: %w", err)
		}
		if existing != nil && len(existing.Payload) > 0 && !emptyPayload(existing.Payload) {
			s.logger.Warn("generation produced no valid records, keeping previous payload",
				"owner_id", ownerID, "category", category)
			return nil
		}
		s.logger.Warn("generation produced no valid records, persisting empty payload",
			"owner_id", ownerID, "category", category)
	}

	record := &models.InsightRecord{
		OwnerID:  ownerID,
		ClassID:  classID,
		TestID:   testID,
		Category: category,
		Payload:  datatypes.JSON(payload),
	}
	if err := s.validate.Validate(record); err != nil {
		return fmt.Errorf("refusing to persist malformed insight record: %w", err)
	}
	if err := s.repo.Insight().Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert %s insight: %w", category, err)
	}
	return nil
}

func emptyPayload(p datatypes.JSON) bool {
	switch string(p) {
	case "", "{}", "[]", "null":
		return true
	}
	return false
}

// generate runs the prompt through the client with bounded
// regeneration: parse is attempted on every response and the loop stops
// at the first one yielding valid records. Exhausted retries are not an
// error; the category just ends up empty.
func (s *insightService) generate(ctx context.Context, prompt string, parse func(text string) bool) bool {
	for attempt := 1; attempt <= s.cfg.MaxRegenerations; attempt++ {
		text, err := s.generator.Generate(ctx, prompt, s.cfg.Model, s.cfg.FallbackModels)
		if err != nil {
			s.logger.Error("generation call failed", "attempt", attempt, "error", err)
			return false
		}
		if text == "" {
			// The client already exhausted its own retry budget;
			// re-prompting immediately would hit the same wall.
			return false
		}
		if parse(text) {
			return true
		}
		s.logger.Warn("generated text yielded no valid records, regenerating",
			"attempt", attempt, "max", s.cfg.MaxRegenerations)
	}
	return false
}

// ===== CATEGORY GENERATORS =====

func (s *insightService) generateOverview(ctx context.Context, metrics []models.TopicMetric) ([]byte, bool) {
	type overviewWire struct {
		Summary    string                `json:"summary" validate:"required"`
		Strengths  generation.StringList `json:"strengths"`
		Weaknesses generation.StringList `json:"weaknesses"`
	}

	var payload models.OverviewPayload
	ok := s.generate(ctx, overviewPrompt(metrics), func(text string) bool {
		var wire overviewWire
		if err := generation.ExtractJSON(text, &wire); err != nil {
			return false
		}
		if err := s.validate.Validate(&wire); err != nil {
			return false
		}
		payload = models.OverviewPayload{
			Summary:    wire.Summary,
			Strengths:  wire.Strengths,
			Weaknesses: wire.Weaknesses,
		}
		return true
	})
	if !ok {
		return []byte("{}"), false
	}
	return marshalPayload(payload)
}

func (s *insightService) generateSWOT(ctx context.Context, metrics []models.TopicMetric) ([]byte, bool) {
	type swotWire struct {
		Subject    string                `json:"subject" validate:"required"`
		Strengths  generation.StringList `json:"strengths" validate:"min=1"`
		Weaknesses generation.StringList `json:"weaknesses" validate:"min=1"`
	}

	var entries []models.SWOTEntry
	ok := s.generate(ctx, swotPrompt(metrics), func(text string) bool {
		var wires []swotWire
		if err := generation.ExtractJSON(text, &wires); err != nil {
			return false
		}
		entries = entries[:0]
		for _, w := range wires {
			if err := s.validate.Validate(&w); err != nil {
				continue
			}
			entries = append(entries, models.SWOTEntry{
				Subject:    w.Subject,
				Strengths:  truncateStrings(w.Strengths, models.SWOTBulletsPerSubject),
				Weaknesses: truncateStrings(w.Weaknesses, models.SWOTBulletsPerSubject),
			})
		}
		return len(entries) > 0
	})
	if !ok {
		return []byte("[]"), false
	}
	return marshalPayload(entries)
}

func (s *insightService) generateActionPlan(ctx context.Context, picks []models.SelectionResult) ([]byte, bool) {
	if len(picks) == 0 {
		return []byte("[]"), true
	}
	var items []models.ActionPlanItem
	ok := s.generate(ctx, actionPlanPrompt(picks), func(text string) bool {
		var wires []models.ActionPlanItem
		if err := generation.ExtractJSON(text, &wires); err != nil {
			return false
		}
		items = items[:0]
		for _, w := range wires {
			if err := s.validate.Validate(&w); err != nil {
				continue
			}
			items = append(items, w)
		}
		return len(items) > 0
	})
	if !ok {
		return []byte("[]"), false
	}
	if len(items) > models.MaxActionPlanItems {
		items = items[:models.MaxActionPlanItems]
	}
	return marshalPayload(items)
}

func (s *insightService) generateChecklist(ctx context.Context, picks []models.SelectionResult) ([]byte, bool) {
	if len(picks) == 0 {
		return []byte("[]"), true
	}
	var items []models.ChecklistItem
	ok := s.generate(ctx, checklistPrompt(picks), func(text string) bool {
		var wires []models.ChecklistItem
		if err := generation.ExtractJSON(text, &wires); err != nil {
			return false
		}
		items = items[:0]
		for _, w := range wires {
			if err := s.validate.Validate(&w); err != nil {
				continue
			}
			items = append(items, w)
		}
		return len(items) > 0
	})
	if !ok {
		return []byte("[]"), false
	}
	if len(items) > models.MaxChecklistItems {
		items = items[:models.MaxChecklistItems]
	}
	return marshalPayload(items)
}

func (s *insightService) generateStudyTips(ctx context.Context, metrics []models.TopicMetric) ([]byte, bool) {
	var tips []models.StudyTip
	ok := s.generate(ctx, studyTipsPrompt(metrics), func(text string) bool {
		var wires []models.StudyTip
		if err := generation.ExtractJSON(text, &wires); err != nil {
			return false
		}
		tips = tips[:0]
		for _, w := range wires {
			if err := s.validate.Validate(&w); err != nil {
				continue
			}
			tips = append(tips, w)
		}
		return len(tips) > 0
	})
	if !ok {
		return []byte("[]"), false
	}
	return marshalPayload(tips)
}

func (s *insightService) generateCheckpoints(ctx context.Context, picks []models.SelectionResult) ([]byte, bool) {
	if len(picks) == 0 {
		return []byte("[]"), true
	}
	type checkpointWire struct {
		Topic      string             `json:"topic" validate:"required"`
		Subject    string             `json:"subject" validate:"required"`
		Accuracy   float64            `json:"accuracy"`
		Checkpoint string             `json:"checkpoint" validate:"required"`
		Action     string             `json:"action" validate:"required"`
		Citation   generation.IntList `json:"citation"`
	}

	var items []models.CheckpointItem
	ok := s.generate(ctx, checkpointsPrompt(picks), func(text string) bool {
		var wires []checkpointWire
		if err := generation.ExtractJSON(text, &wires); err != nil {
			return false
		}
		items = items[:0]
		for _, w := range wires {
			if err := s.validate.Validate(&w); err != nil {
				continue
			}
			items = append(items, models.CheckpointItem{
				Topic:      w.Topic,
				Subject:    w.Subject,
				Accuracy:   w.Accuracy,
				Checkpoint: w.Checkpoint,
				Action:     w.Action,
				Citation:   []int(w.Citation),
			})
		}
		return len(items) > 0
	})
	if !ok {
		return []byte("[]"), false
	}
	items = capPerSubject(items, models.MaxCheckpoints, models.MaxCheckpointsPerSubject)
	return marshalPayload(items)
}

func (s *insightService) generateSubtopics(ctx context.Context, metrics []models.SubtopicMetric) ([]byte, bool) {
	if len(metrics) == 0 {
		return []byte("{}"), true
	}

	// Citations come from the aggregated outcomes, keyed by subtopic
	// name; the model only ranks and explains.
	citations := make(map[string][]models.SubtopicCitation, len(metrics))
	for _, m := range metrics {
		citations[m.Subject+"/"+m.Subtopic] = m.Citations
	}

	payload := models.SubtopicsPayload{}
	ok := s.generate(ctx, subtopicsPrompt(metrics), func(text string) bool {
		var wire map[string][]models.SubtopicRank
		if err := generation.ExtractJSON(text, &wire); err != nil {
			return false
		}
		clear(payload)
		for subject, ranks := range wire {
			var kept []models.SubtopicRank
			for _, r := range ranks {
				if err := s.validate.Validate(&r); err != nil {
					continue
				}
				r.Citations = citations[subject+"/"+r.Subtopic]
				kept = append(kept, r)
			}
			if len(kept) > models.MaxSubtopicsPerSubject {
				kept = kept[:models.MaxSubtopicsPerSubject]
			}
			if len(kept) > 0 {
				payload[subject] = kept
			}
		}
		return len(payload) > 0
	})
	if !ok {
		return []byte("{}"), false
	}
	return marshalPayload(payload)
}

// ===== HELPERS =====

func marshalPayload(v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}"), false
	}
	return data, true
}

func truncateStrings(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}

// capPerSubject keeps input order while dropping entries beyond the
// per-subject cap, then applies the total cap.
func capPerSubject(items []models.CheckpointItem, total, perSubject int) []models.CheckpointItem {
	out := make([]models.CheckpointItem, 0, len(items))
	counts := make(map[string]int)
	for _, item := range items {
		if counts[item.Subject] >= perSubject {
			continue
		}
		counts[item.Subject]++
		out = append(out, item)
		if len(out) >= total {
			break
		}
	}
	return out
}
