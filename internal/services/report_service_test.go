package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/insight-service/internal/models"
)

func TestReportService_NoInsights(t *testing.T) {
	repo := newStubRepo()
	repo.teacher = "t1"
	svc := NewReportService(repo, testLogger())

	_, err := svc.ExportClassReport(context.Background(), 1, 5)

	assert.ErrorIs(t, err, ErrInsightNotFound)
}

func TestReportService_ExportsSheetPerCategory(t *testing.T) {
	repo := newStubRepo()
	repo.teacher = "t1"
	seed := []struct {
		category models.InsightCategory
		payload  string
	}{
		{models.CategoryOverview, `{"summary":"Mixed results.","strengths":["waves"],"weaknesses":["algebra"]}`},
		{models.CategoryActionPlan, `[{"topic":"algebra","subject":"math","accuracy":0.3,"action":"Drill factoring."}]`},
		{models.CategoryStudyTips, `[]`}, // empty payloads get no sheet
	}
	for _, sd := range seed {
		require.NoError(t, repo.Insight().Upsert(context.Background(), &models.InsightRecord{
			OwnerID:  "t1",
			ClassID:  1,
			TestID:   5,
			Category: sd.category,
			Payload:  datatypes.JSON(sd.payload),
		}))
	}
	svc := NewReportService(repo, testLogger())

	data, err := svc.ExportClassReport(context.Background(), 1, 5)

	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Overview")
	assert.Contains(t, sheets, "Action Plan")
	assert.NotContains(t, sheets, "Study Tips")

	action, err := f.GetCellValue("Action Plan", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Drill factoring.", action)
}
