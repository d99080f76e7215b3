package models

// MetricScope distinguishes single-test metrics from metrics across the
// whole class history.
type MetricScope string

const (
	ScopePerTest    MetricScope = "per_test"
	ScopeCumulative MetricScope = "cumulative"
)

// SeriesPoint is one chronological accuracy observation, keyed by test
// number, feeding improvement-rate computation.
type SeriesPoint struct {
	TestNum  int     `json:"test_num"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// TopicMetric is a derived aggregate over question outcomes for one
// (subject, topic). It is recomputed on demand (optionally cached) and
// never the source of truth.
//
// TotalInScope counts every question in scope while Attempted counts
// only answered ones; consumers needing "how much signal is there" use
// the former, consumers computing hit rates the latter. The two must
// never be conflated.
type TopicMetric struct {
	Subject string      `json:"subject"`
	Chapter string      `json:"chapter"`
	Topic   string      `json:"topic"`
	Scope   MetricScope `json:"scope"`

	TotalInScope int `json:"total_in_scope"`
	Attempted    int `json:"attempted"`
	Correct      int `json:"correct"`

	Accuracy         float64 `json:"accuracy"`
	WeightedAccuracy float64 `json:"weighted_accuracy"`
	ImprovementRate  float64 `json:"improvement_rate"`

	Series []SeriesPoint `json:"series,omitempty"`

	// QuestionIDs back every selection citing this metric.
	QuestionIDs []uint `json:"question_ids,omitempty"`
}

// SubtopicMetric mirrors TopicMetric one level down; subtopic rankings
// cite (test_num, question_num) coordinates rather than raw IDs.
type SubtopicMetric struct {
	Subject  string `json:"subject"`
	Topic    string `json:"topic"`
	Subtopic string `json:"subtopic"`

	TotalInScope int     `json:"total_in_scope"`
	Attempted    int     `json:"attempted"`
	Correct      int     `json:"correct"`
	Accuracy     float64 `json:"accuracy"`

	Citations []SubtopicCitation `json:"citations,omitempty"`
}

// SelectionResult is one entry of an ordered selection produced by a
// selection policy, with the metric snapshot and citation evidence that
// justified it. Ephemeral: recomputed per request, never persisted.
type SelectionResult struct {
	Subject   string      `json:"subject"`
	Topic     string      `json:"topic"`
	Metric    TopicMetric `json:"metric"`
	Citations []uint      `json:"citations"`
}
