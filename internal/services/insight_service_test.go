package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/insight-service/internal/models"
)

// scriptedGenerator answers prompts by keyword, recording every call.
type scriptedGenerator struct {
	responses map[string]string // prompt substring -> response
	fallback  string
	calls     []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt, model string, fallbacks []string) (string, error) {
	g.calls = append(g.calls, prompt)
	for marker, response := range g.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return g.fallback, nil
}

func seedOutcomes(repo *stubRepo) {
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "math", "algebra", true, false),
		outcome("s1", 1, 5, 1, 2, "math", "algebra", true, false),
		outcome("s1", 1, 5, 1, 3, "physics", "waves", true, true),
	}
}

func newInsightFixture(repo *stubRepo, gen TextGenerator) InsightService {
	logger := testLogger()
	metrics := NewMetricService(repo, nil, logger)
	selection := NewSelectionService(logger)
	return NewInsightService(repo, metrics, selection, gen, InsightConfig{Model: "model-a"}, logger)
}

func TestInsightService_EmptyScopeIsNoOp(t *testing.T) {
	repo := newStubRepo()
	gen := &scriptedGenerator{}
	svc := newInsightFixture(repo, gen)

	err := svc.GenerateStudentInsights(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	assert.Empty(t, gen.calls)
	assert.Empty(t, repo.insights)
}

func TestInsightService_GeneratesAndUpsertsEveryCategory(t *testing.T) {
	repo := newStubRepo()
	seedOutcomes(repo)
	gen := &scriptedGenerator{
		responses: map[string]string{
			"performance overview": `{"summary": "Solid in physics, struggling in algebra.", "strengths": ["waves"], "weaknesses": ["algebra"]}`,
			"strength bullets":     `[{"subject": "math", "strengths": ["effort", "pace"], "weaknesses": ["accuracy", "recall"]}]`,
			"study actions":        `[{"topic": "algebra", "subject": "math", "accuracy": 0.0, "action": "Redo the missed factoring drills."}]`,
			"checklist entries":    `[{"topic": "algebra", "subject": "math", "accuracy": 0.0, "problem": "Sign errors when expanding."}]`,
			"study tip":            `[{"subject": "math", "tip": "Practice ten factoring problems daily."}]`,
			"checkpoints":          `[{"topic": "algebra", "subject": "math", "accuracy": 0.0, "checkpoint": "80% on a retake", "action": "Timed drills", "citation": [1, 2]}]`,
		},
		fallback: `{}`,
	}
	svc := newInsightFixture(repo, gen)

	err := svc.GenerateStudentInsights(context.Background(), "s1", 1, 5)

	require.NoError(t, err)
	// One record per category, including the empty subtopics payload
	// (no subtopic data was seeded).
	assert.Len(t, repo.insights, len(models.AllCategories))

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategoryActionPlan)
	require.NoError(t, err)
	var items []models.ActionPlanItem
	require.NoError(t, json.Unmarshal(rec.Payload, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "algebra", items[0].Topic)
}

func TestInsightService_SWOTBulletsTruncatedToTwo(t *testing.T) {
	repo := newStubRepo()
	seedOutcomes(repo)
	gen := &scriptedGenerator{
		responses: map[string]string{
			"strength bullets": `[{"subject": "math", "strengths": ["a", "b", "c", "d"], "weaknesses": ["e", "f", "g"]}]`,
		},
		fallback: "",
	}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategorySWOT)
	require.NoError(t, err)
	var entries []models.SWOTEntry
	require.NoError(t, json.Unmarshal(rec.Payload, &entries))
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Strengths, models.SWOTBulletsPerSubject)
	assert.Len(t, entries[0].Weaknesses, models.SWOTBulletsPerSubject)
}

func TestInsightService_RegeneratesUpToThreeTimesThenEmpty(t *testing.T) {
	repo := newStubRepo()
	seedOutcomes(repo)
	// Valid JSON shape but zero valid records (missing required fields).
	gen := &scriptedGenerator{fallback: `[{"subject": ""}]`}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	// SWOT alone should have been attempted exactly three times.
	swotCalls := 0
	for _, prompt := range gen.calls {
		if strings.Contains(prompt, "strength bullets") {
			swotCalls++
		}
	}
	assert.Equal(t, 3, swotCalls)

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategorySWOT)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(rec.Payload))
}

func TestInsightService_InvalidNeverOverwritesValid(t *testing.T) {
	repo := newStubRepo()
	seedOutcomes(repo)
	prior := &models.InsightRecord{
		OwnerID:  "s1",
		ClassID:  1,
		TestID:   5,
		Category: models.CategorySWOT,
		Payload:  datatypes.JSON(`[{"subject":"math","strengths":["kept"],"weaknesses":["kept"]}]`),
	}
	require.NoError(t, repo.Insight().Upsert(context.Background(), prior))

	// Every generation yields garbage.
	gen := &scriptedGenerator{fallback: "no json here at all"}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategorySWOT)
	require.NoError(t, err)
	assert.Contains(t, string(rec.Payload), "kept")
}

func TestInsightService_ExhaustedClientPersistsEmptyWithoutReprompt(t *testing.T) {
	repo := newStubRepo()
	seedOutcomes(repo)
	// Empty string is the client's exhaustion signal.
	gen := &scriptedGenerator{fallback: ""}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	swotCalls := 0
	for _, prompt := range gen.calls {
		if strings.Contains(prompt, "strength bullets") {
			swotCalls++
		}
	}
	assert.Equal(t, 1, swotCalls)

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategorySWOT)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(rec.Payload))
}

func TestInsightService_CheckpointsRespectSubjectCap(t *testing.T) {
	repo := newStubRepo()
	repo.outcomes = []*models.QuestionOutcome{
		outcome("s1", 1, 5, 1, 1, "math", "algebra", true, false),
		outcome("s1", 1, 5, 1, 2, "math", "geometry", true, false),
		outcome("s1", 1, 5, 1, 3, "math", "calculus", true, false),
	}
	gen := &scriptedGenerator{
		responses: map[string]string{
			"checkpoints": `[
				{"topic": "algebra", "subject": "math", "accuracy": 0, "checkpoint": "c1", "action": "a1", "citation": [1]},
				{"topic": "geometry", "subject": "math", "accuracy": 0, "checkpoint": "c2", "action": "a2", "citation": [2]},
				{"topic": "calculus", "subject": "math", "accuracy": 0, "checkpoint": "c3", "action": "a3", "citation": [3]}
			]`,
		},
		fallback: "",
	}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategoryCheckpoints)
	require.NoError(t, err)
	var items []models.CheckpointItem
	require.NoError(t, json.Unmarshal(rec.Payload, &items))
	assert.Len(t, items, models.MaxCheckpointsPerSubject)
}

func TestInsightService_SubtopicCitationsComeFromOutcomes(t *testing.T) {
	repo := newStubRepo()
	miss := outcome("s1", 1, 5, 3, 7, "math", "algebra", true, false)
	miss.Subtopic = "factoring"
	miss.QuestionNum = 7
	seed := outcome("s1", 1, 5, 3, 8, "math", "algebra", true, true)
	seed.Subtopic = "factoring"
	repo.outcomes = []*models.QuestionOutcome{miss, seed}
	gen := &scriptedGenerator{
		responses: map[string]string{
			// The model claims its own citations; they must be replaced.
			"rank the subtopics": `{"math": [{"subtopic": "factoring", "rank": 1, "reason": "Half the attempts missed.", "citations": [{"test_num": 99, "question_num": 99}]}]}`,
		},
		fallback: "",
	}
	svc := newInsightFixture(repo, gen)

	require.NoError(t, svc.GenerateStudentInsights(context.Background(), "s1", 1, 5))

	rec, err := svc.GetInsight(context.Background(), "s1", 1, 5, models.CategorySubtopics)
	require.NoError(t, err)
	var payload models.SubtopicsPayload
	require.NoError(t, json.Unmarshal(rec.Payload, &payload))
	require.Len(t, payload["math"], 1)
	require.Len(t, payload["math"][0].Citations, 1)
	assert.Equal(t, 3, payload["math"][0].Citations[0].TestNum)
	assert.Equal(t, 7, payload["math"][0].Citations[0].QuestionNum)
}
