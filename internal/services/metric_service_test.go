package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/insight-service/internal/models"
)

func outcome(studentID string, classID, testID uint, testNum int, questionID uint, subject, topic string, attempted, correct bool) *models.QuestionOutcome {
	return &models.QuestionOutcome{
		TestID:       testID,
		StudentID:    studentID,
		ClassID:      classID,
		QuestionID:   questionID,
		TestNum:      testNum,
		QuestionNum:  int(questionID),
		Subject:      subject,
		Topic:        topic,
		WasAttempted: attempted,
		IsCorrect:    correct,
	}
}

func TestMetricService_BuildTopicMetrics_EmptyScope(t *testing.T) {
	svc := NewMetricService(newStubRepo(), nil, testLogger())

	metrics, err := svc.BuildTopicMetrics(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestMetricService_BuildTopicMetrics_AttemptedVsTotal(t *testing.T) {
	repo := newStubRepo()
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "math", "algebra", true, true),
		outcome("s1", 1, 5, 1, 2, "math", "algebra", true, false),
		outcome("s1", 1, 5, 1, 3, "math", "algebra", false, false), // blank
	}
	svc := NewMetricService(repo, nil, testLogger())

	metrics, err := svc.BuildTopicMetrics(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, 3, m.TotalInScope)
	assert.Equal(t, 2, m.Attempted)
	assert.Equal(t, 1, m.Correct)
	assert.InDelta(t, 0.5, m.Accuracy, 1e-9)
	assert.Equal(t, models.ScopePerTest, m.Scope)
	assert.ElementsMatch(t, []uint{1, 2, 3}, m.QuestionIDs)
}

func TestMetricService_BuildTopicMetrics_CumulativeSeries(t *testing.T) {
	repo := newStubRepo()
	// Test 1: 1/2 correct, test 2: 2/2 correct on the same topic.
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "math", "algebra", true, true),
		outcome("s1", 1, 5, 1, 2, "math", "algebra", true, false),
		outcome("s1", 1, 6, 2, 3, "math", "algebra", true, true),
		outcome("s1", 1, 6, 2, 4, "math", "algebra", true, true),
	}
	svc := NewMetricService(repo, nil, testLogger())

	metrics, err := svc.BuildTopicMetrics(context.Background(), "s1", 1, 0)

	require.NoError(t, err)
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, models.ScopeCumulative, m.Scope)
	require.Len(t, m.Series, 2)
	assert.Equal(t, 1, m.Series[0].TestNum)
	assert.InDelta(t, 0.5, m.Series[0].Accuracy, 1e-9)
	assert.Equal(t, 2, m.Series[1].TestNum)
	assert.InDelta(t, 1.0, m.Series[1].Accuracy, 1e-9)
	// 0.5 -> 1.0 is a +100% step.
	assert.InDelta(t, 100.0, m.ImprovementRate, 1e-9)
}

func TestMetricService_BuildTopicMetrics_DeterministicOrder(t *testing.T) {
	repo := newStubRepo()
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "physics", "waves", true, true),
		outcome("s1", 1, 5, 1, 2, "math", "geometry", true, true),
		outcome("s1", 1, 5, 1, 3, "math", "algebra", true, true),
	}
	svc := NewMetricService(repo, nil, testLogger())

	metrics, err := svc.BuildTopicMetrics(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, "algebra", metrics[0].Topic)
	assert.Equal(t, "geometry", metrics[1].Topic)
	assert.Equal(t, "waves", metrics[2].Topic)
}

func TestMetricService_BuildClassTopicMetrics_MergesStudents(t *testing.T) {
	repo := newStubRepo()
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "math", "algebra", true, true),
		outcome("s2", 1, 5, 1, 1, "math", "algebra", true, false),
		outcome("s3", 1, 5, 1, 1, "math", "algebra", true, true), // excluded from selection below
	}
	svc := NewMetricService(repo, nil, testLogger())

	metrics, err := svc.BuildClassTopicMetrics(context.Background(), []string{"s1", "s2"}, 1, 5)

	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 2, metrics[0].Attempted)
	assert.Equal(t, 1, metrics[0].Correct)
}

func TestMetricService_BuildSubtopicMetrics_CitesMissesOnly(t *testing.T) {
	repo := newStubRepo()
	miss := outcome("s1", 1, 5, 2, 7, "math", "algebra", true, false)
	miss.Subtopic = "factoring"
	hit := outcome("s1", 1, 5, 2, 8, "math", "algebra", true, true)
	hit.Subtopic = "factoring"
	noSub := outcome("s1", 1, 5, 2, 9, "math", "algebra", true, false)
	repo.outcomes = []*models.QuestionOutcome{miss, hit, noSub}
	svc := NewMetricService(repo, nil, testLogger())

	metrics, err := svc.BuildSubtopicMetrics(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, "factoring", m.Subtopic)
	assert.Equal(t, 2, m.Attempted)
	require.Len(t, m.Citations, 1)
	assert.Equal(t, 2, m.Citations[0].TestNum)
	assert.Equal(t, 7, m.Citations[0].QuestionNum)
}
