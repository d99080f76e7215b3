package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/insight-service/internal/cache"
	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"github.com/SAP-F-2025/insight-service/internal/scoring"
)

// MetricService is the aggregation layer: it turns raw question
// outcomes into per-(subject, topic) metrics, per test or cumulative.
type MetricService interface {
	// BuildTopicMetrics aggregates one student's outcomes. testID 0
	// selects cumulative scope across all tests of the class. Empty
	// scope yields an empty slice and nil error: "no signal" is not a
	// fault.
	BuildTopicMetrics(ctx context.Context, studentID string, classID, testID uint) ([]models.TopicMetric, error)

	// BuildSubtopicMetrics aggregates one level deeper, carrying
	// (test_num, question_num) citations for subtopic rankings.
	BuildSubtopicMetrics(ctx context.Context, studentID string, classID, testID uint) ([]models.SubtopicMetric, error)

	// BuildClassTopicMetrics merges outcomes of the given students into
	// class-level metrics for the aggregation waves.
	BuildClassTopicMetrics(ctx context.Context, studentIDs []string, classID, testID uint) ([]models.TopicMetric, error)
}

type metricService struct {
	repo     repositories.Repository
	cache    cache.CacheService
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewMetricService(repo repositories.Repository, cacheSvc cache.CacheService, logger *slog.Logger) MetricService {
	return &metricService{
		repo:     repo,
		cache:    cacheSvc,
		cacheTTL: 10 * time.Minute,
		logger:   logger,
	}
}

func (s *metricService) BuildTopicMetrics(ctx context.Context, studentID string, classID, testID uint) ([]models.TopicMetric, error) {
	scope := models.ScopePerTest
	if testID == 0 {
		scope = models.ScopeCumulative

		// Cumulative metrics span the whole class history and are the
		// expensive variant; serve a cached copy when one exists. The
		// cache is never authoritative: misses and errors fall through
		// to recomputation.
		cacheKey := fmt.Sprintf("metrics:topic:%s:%d", studentID, classID)
		var cached []models.TopicMetric
		if s.cache != nil {
			if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
				return cached, nil
			}
		}
		metrics, err := s.buildTopicMetrics(ctx, studentID, classID, testID, scope)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && len(metrics) > 0 {
			if err := s.cache.Set(ctx, cacheKey, metrics, s.cacheTTL); err != nil {
				s.logger.Warn("failed to cache cumulative metrics", "student_id", studentID, "error", err)
			}
		}
		return metrics, nil
	}

	return s.buildTopicMetrics(ctx, studentID, classID, testID, scope)
}

func (s *metricService) buildTopicMetrics(ctx context.Context, studentID string, classID, testID uint, scope models.MetricScope) ([]models.TopicMetric, error) {
	outcomes, err := s.repo.Outcome().GetByStudent(ctx, studentID, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes: %w", err)
	}
	return aggregateTopics(outcomes, scope), nil
}

func (s *metricService) BuildClassTopicMetrics(ctx context.Context, studentIDs []string, classID, testID uint) ([]models.TopicMetric, error) {
	scope := models.ScopePerTest
	if testID == 0 {
		scope = models.ScopeCumulative
	}
	outcomes, err := s.repo.Outcome().GetByStudents(ctx, studentIDs, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load class outcomes: %w", err)
	}
	return aggregateTopics(outcomes, scope), nil
}

func (s *metricService) BuildSubtopicMetrics(ctx context.Context, studentID string, classID, testID uint) ([]models.SubtopicMetric, error) {
	outcomes, err := s.repo.Outcome().GetByStudent(ctx, studentID, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes: %w", err)
	}
	return aggregateSubtopics(outcomes), nil
}

// ===== AGGREGATION =====

type topicKey struct {
	subject string
	topic   string
}

// aggregateTopics folds outcomes into TopicMetrics. TotalInScope counts
// every question, Attempted only answered ones; accuracy and the
// weighted score are computed over attempted questions, matching how
// the selection policies interpret "how well did the student do when
// they tried".
func aggregateTopics(outcomes []*models.QuestionOutcome, scope models.MetricScope) []models.TopicMetric {
	if len(outcomes) == 0 {
		return []models.TopicMetric{}
	}

	type tally struct {
		chapter      string
		totalInScope int
		attempted    int
		correct      int
		questionIDs  []uint
		byTest       map[int]*models.SeriesPoint
	}

	tallies := make(map[topicKey]*tally)
	var order []topicKey

	for _, o := range outcomes {
		key := topicKey{subject: o.Subject, topic: o.Topic}
		tl, ok := tallies[key]
		if !ok {
			tl = &tally{chapter: o.Chapter, byTest: make(map[int]*models.SeriesPoint)}
			tallies[key] = tl
			order = append(order, key)
		}

		tl.totalInScope++
		tl.questionIDs = append(tl.questionIDs, o.QuestionID)
		if o.WasAttempted {
			tl.attempted++
			if o.IsCorrect {
				tl.correct++
			}
		}

		pt, ok := tl.byTest[o.TestNum]
		if !ok {
			pt = &models.SeriesPoint{TestNum: o.TestNum}
			tl.byTest[o.TestNum] = pt
		}
		if o.WasAttempted {
			pt.Total++
			if o.IsCorrect {
				pt.Correct++
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].subject != order[j].subject {
			return order[i].subject < order[j].subject
		}
		return order[i].topic < order[j].topic
	})

	metrics := make([]models.TopicMetric, 0, len(order))
	for _, key := range order {
		tl := tallies[key]

		var accuracy float64
		if tl.attempted > 0 {
			accuracy = float64(tl.correct) / float64(tl.attempted)
		}

		series := buildSeries(tl.byTest)
		accSeries := make([]float64, len(series))
		for i, pt := range series {
			accSeries[i] = pt.Accuracy
		}

		metrics = append(metrics, models.TopicMetric{
			Subject:          key.subject,
			Chapter:          tl.chapter,
			Topic:            key.topic,
			Scope:            scope,
			TotalInScope:     tl.totalInScope,
			Attempted:        tl.attempted,
			Correct:          tl.correct,
			Accuracy:         accuracy,
			WeightedAccuracy: scoring.WeightedAccuracy(tl.correct, tl.attempted),
			ImprovementRate:  scoring.ImprovementRate(accSeries),
			Series:           series,
			QuestionIDs:      tl.questionIDs,
		})
	}
	return metrics
}

func buildSeries(byTest map[int]*models.SeriesPoint) []models.SeriesPoint {
	series := make([]models.SeriesPoint, 0, len(byTest))
	for _, pt := range byTest {
		if pt.Total > 0 {
			pt.Accuracy = float64(pt.Correct) / float64(pt.Total)
		}
		series = append(series, *pt)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].TestNum < series[j].TestNum })
	return series
}

type subtopicKey struct {
	subject  string
	topic    string
	subtopic string
}

func aggregateSubtopics(outcomes []*models.QuestionOutcome) []models.SubtopicMetric {
	if len(outcomes) == 0 {
		return []models.SubtopicMetric{}
	}

	type tally struct {
		totalInScope int
		attempted    int
		correct      int
		citations    []models.SubtopicCitation
	}

	tallies := make(map[subtopicKey]*tally)
	var order []subtopicKey

	for _, o := range outcomes {
		if o.Subtopic == "" {
			continue
		}
		key := subtopicKey{subject: o.Subject, topic: o.Topic, subtopic: o.Subtopic}
		tl, ok := tallies[key]
		if !ok {
			tl = &tally{}
			tallies[key] = tl
			order = append(order, key)
		}

		tl.totalInScope++
		if o.WasAttempted {
			tl.attempted++
			if o.IsCorrect {
				tl.correct++
			} else {
				// Only misses are cited: they are the evidence a
				// subtopic needs attention.
				tl.citations = append(tl.citations, models.SubtopicCitation{
					TestNum:     o.TestNum,
					QuestionNum: o.QuestionNum,
				})
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].subject != order[j].subject {
			return order[i].subject < order[j].subject
		}
		if order[i].topic != order[j].topic {
			return order[i].topic < order[j].topic
		}
		return order[i].subtopic < order[j].subtopic
	})

	metrics := make([]models.SubtopicMetric, 0, len(order))
	for _, key := range order {
		tl := tallies[key]
		var accuracy float64
		if tl.attempted > 0 {
			accuracy = float64(tl.correct) / float64(tl.attempted)
		}
		metrics = append(metrics, models.SubtopicMetric{
			Subject:      key.subject,
			Topic:        key.topic,
			Subtopic:     key.subtopic,
			TotalInScope: tl.totalInScope,
			Attempted:    tl.attempted,
			Correct:      tl.correct,
			Accuracy:     accuracy,
			Citations:    tl.citations,
		})
	}
	return metrics
}
