package services

import (
	"log/slog"
	"sort"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/scoring"
)

// SelectionService holds the named policies that pick topics out of
// aggregated metrics. Every policy is deterministic for a given input
// ordering, never duplicates a topic within a subject, and attaches the
// question IDs that justify each pick.
type SelectionService interface {
	// TopKByScore returns the k strongest topics, ordered by
	// (weighted_accuracy, improvement_rate) descending, keeping at most
	// perSubjectCap entries per subject.
	TopKByScore(metrics []models.TopicMetric, k, perSubjectCap int) []models.SelectionResult

	// BottomKByScore mirrors TopKByScore with ascending order: the k
	// weakest topics.
	BottomKByScore(metrics []models.TopicMetric, k, perSubjectCap int) []models.SelectionResult

	// ThresholdCascade selects topics whose weighted accuracy falls
	// below primary; when none qualify it retries with the looser
	// fallback. Empty after both passes means a genuinely strong
	// performer, not a fault.
	ThresholdCascade(metrics []models.TopicMetric, primary, fallback float64) []models.SelectionResult

	// RoundRobinAllocate interleaves the weakest topics across
	// subjects: round 0 of every subject, then round 1, until totalCap
	// is reached or subjects run out. Subjects are visited in input
	// order.
	RoundRobinAllocate(metrics []models.TopicMetric, perSubjectCap, totalCap int) []models.SelectionResult

	// ConsistencyRank returns the k least consistent topics per
	// subject. Topics with fewer than two observed test points are not
	// eligible.
	ConsistencyRank(metrics []models.TopicMetric, k int) []models.SelectionResult
}

type selectionService struct {
	logger *slog.Logger
}

func NewSelectionService(logger *slog.Logger) SelectionService {
	return &selectionService{logger: logger}
}

func toResult(m models.TopicMetric) models.SelectionResult {
	return models.SelectionResult{
		Subject:   m.Subject,
		Topic:     m.Topic,
		Metric:    m,
		Citations: m.QuestionIDs,
	}
}

// dedupe keeps the first occurrence of every (subject, topic) pair,
// preserving input order.
func dedupe(metrics []models.TopicMetric) []models.TopicMetric {
	seen := make(map[topicKey]struct{}, len(metrics))
	out := make([]models.TopicMetric, 0, len(metrics))
	for _, m := range metrics {
		key := topicKey{subject: m.Subject, topic: m.Topic}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// scoreLess orders by (weighted_accuracy, improvement_rate) ascending.
func scoreLess(a, b models.TopicMetric) bool {
	if a.WeightedAccuracy != b.WeightedAccuracy {
		return a.WeightedAccuracy < b.WeightedAccuracy
	}
	return a.ImprovementRate < b.ImprovementRate
}

func (s *selectionService) TopKByScore(metrics []models.TopicMetric, k, perSubjectCap int) []models.SelectionResult {
	return rankByScore(metrics, k, perSubjectCap, true)
}

func (s *selectionService) BottomKByScore(metrics []models.TopicMetric, k, perSubjectCap int) []models.SelectionResult {
	return rankByScore(metrics, k, perSubjectCap, false)
}

func rankByScore(metrics []models.TopicMetric, k, perSubjectCap int, descending bool) []models.SelectionResult {
	candidates := dedupe(metrics)
	sort.SliceStable(candidates, func(i, j int) bool {
		if descending {
			return scoreLess(candidates[j], candidates[i])
		}
		return scoreLess(candidates[i], candidates[j])
	})

	results := make([]models.SelectionResult, 0, k)
	perSubject := make(map[string]int)
	for _, m := range candidates {
		if len(results) >= k {
			break
		}
		if perSubjectCap > 0 && perSubject[m.Subject] >= perSubjectCap {
			continue
		}
		perSubject[m.Subject]++
		results = append(results, toResult(m))
	}
	return results
}

func (s *selectionService) ThresholdCascade(metrics []models.TopicMetric, primary, fallback float64) []models.SelectionResult {
	candidates := dedupe(metrics)

	below := func(threshold float64) []models.SelectionResult {
		var out []models.SelectionResult
		for _, m := range candidates {
			if m.Attempted > 0 && m.WeightedAccuracy < threshold {
				out = append(out, toResult(m))
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return scoreLess(out[i].Metric, out[j].Metric)
		})
		return out
	}

	results := below(primary)
	if len(results) == 0 {
		s.logger.Debug("threshold cascade falling back", "primary", primary, "fallback", fallback)
		results = below(fallback)
	}
	if results == nil {
		results = []models.SelectionResult{}
	}
	return results
}

func (s *selectionService) RoundRobinAllocate(metrics []models.TopicMetric, perSubjectCap, totalCap int) []models.SelectionResult {
	candidates := dedupe(metrics)

	// Bucket per subject in input order, each bucket sorted weakest
	// first.
	buckets := make(map[string][]models.TopicMetric)
	var subjects []string
	for _, m := range candidates {
		if _, ok := buckets[m.Subject]; !ok {
			subjects = append(subjects, m.Subject)
		}
		buckets[m.Subject] = append(buckets[m.Subject], m)
	}
	for _, subject := range subjects {
		bucket := buckets[subject]
		sort.SliceStable(bucket, func(i, j int) bool { return scoreLess(bucket[i], bucket[j]) })
		if perSubjectCap > 0 && len(bucket) > perSubjectCap {
			bucket = bucket[:perSubjectCap]
		}
		buckets[subject] = bucket
	}

	// Interleave: one entry per subject per round, so no subject
	// dominates just by having more weak topics.
	results := make([]models.SelectionResult, 0, totalCap)
	for round := 0; ; round++ {
		progressed := false
		for _, subject := range subjects {
			bucket := buckets[subject]
			if round >= len(bucket) {
				continue
			}
			progressed = true
			if totalCap > 0 && len(results) >= totalCap {
				return results
			}
			results = append(results, toResult(bucket[round]))
		}
		if !progressed {
			return results
		}
	}
}

func (s *selectionService) ConsistencyRank(metrics []models.TopicMetric, k int) []models.SelectionResult {
	candidates := dedupe(metrics)

	type scored struct {
		metric models.TopicMetric
		score  float64
	}
	buckets := make(map[string][]scored)
	var subjects []string
	for _, m := range candidates {
		if len(m.Series) < 2 {
			continue
		}
		accuracies := make([]float64, len(m.Series))
		for i, pt := range m.Series {
			accuracies[i] = pt.Accuracy
		}
		if _, ok := buckets[m.Subject]; !ok {
			subjects = append(subjects, m.Subject)
		}
		buckets[m.Subject] = append(buckets[m.Subject], scored{
			metric: m,
			score:  scoring.ConsistencyScore(accuracies),
		})
	}

	var results []models.SelectionResult
	for _, subject := range subjects {
		bucket := buckets[subject]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].score < bucket[j].score })
		if k > 0 && len(bucket) > k {
			bucket = bucket[:k]
		}
		for _, sc := range bucket {
			results = append(results, toResult(sc.metric))
		}
	}
	if results == nil {
		results = []models.SelectionResult{}
	}
	return results
}
