package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
)

// ReportService renders persisted class insight records into a
// downloadable workbook, one sheet per category.
type ReportService interface {
	ExportClassReport(ctx context.Context, classID, testID uint) ([]byte, error)
}

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

func (s *reportService) ExportClassReport(ctx context.Context, classID, testID uint) ([]byte, error) {
	teacherID, err := s.repo.Roster().GetTeacher(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve class teacher: %w", err)
	}
	records, err := s.repo.Insight().GetByOwner(ctx, teacherID, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load class insights: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrInsightNotFound
	}

	byCategory := make(map[models.InsightCategory]*models.InsightRecord, len(records))
	for _, rec := range records {
		byCategory[rec.Category] = rec
	}

	f := excelize.NewFile()
	first := true
	for _, category := range classCategories {
		rec, ok := byCategory[category]
		if !ok || emptyPayload(rec.Payload) {
			continue
		}
		sheetName := sheetTitle(category)
		if first {
			// Rename the default sheet rather than leaving it empty.
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return nil, fmt.Errorf("failed to create sheet %s: %w", sheetName, err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return nil, fmt.Errorf("failed to create sheet %s: %w", sheetName, err)
			}
		}
		if err := s.writeSheet(f, sheetName, category, rec.Payload); err != nil {
			return nil, err
		}
	}
	if first {
		return nil, ErrInsightNotFound
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sheetTitle(category models.InsightCategory) string {
	switch category {
	case models.CategoryOverview:
		return "Overview"
	case models.CategorySWOT:
		return "SWOT"
	case models.CategoryActionPlan:
		return "Action Plan"
	case models.CategoryChecklist:
		return "Checklist"
	case models.CategoryStudyTips:
		return "Study Tips"
	case models.CategoryCheckpoints:
		return "Checkpoints"
	case models.CategorySubtopics:
		return "Subtopics"
	}
	return string(category)
}

func (s *reportService) writeSheet(f *excelize.File, sheetName string, category models.InsightCategory, payload []byte) error {
	switch category {
	case models.CategoryOverview:
		var p models.OverviewPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", category, err)
		}
		writeRows(f, sheetName, []string{"Section", "Content"}, overviewRows(p))
	case models.CategorySWOT:
		var entries []models.SWOTEntry
		if err := json.Unmarshal(payload, &entries); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", category, err)
		}
		rows := make([][]interface{}, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []interface{}{e.Subject, joinLines(e.Strengths), joinLines(e.Weaknesses)})
		}
		writeRows(f, sheetName, []string{"Subject", "Strengths", "Weaknesses"}, rows)
	case models.CategoryActionPlan:
		var items []models.ActionPlanItem
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", category, err)
		}
		rows := make([][]interface{}, 0, len(items))
		for _, item := range items {
			rows = append(rows, []interface{}{item.Subject, item.Topic, item.Accuracy, item.Action})
		}
		writeRows(f, sheetName, []string{"Subject", "Topic", "Accuracy", "Action"}, rows)
	case models.CategoryChecklist:
		var items []models.ChecklistItem
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", category, err)
		}
		rows := make([][]interface{}, 0, len(items))
		for _, item := range items {
			rows = append(rows, []interface{}{item.Subject, item.Topic, item.Accuracy, item.Problem})
		}
		writeRows(f, sheetName, []string{"Subject", "Topic", "Accuracy", "Problem"}, rows)
	case models.CategoryStudyTips:
		var tips []models.StudyTip
		if err := json.Unmarshal(payload, &tips); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", category, err)
		}
		rows := make([][]interface{}, 0, len(tips))
		for _, tip := range tips {
			rows = append(rows, []interface{}{tip.Subject, tip.Tip})
		}
		writeRows(f, sheetName, []string{"Subject", "Tip"}, rows)
	default:
		s.logger.Warn("no sheet layout for category, skipping", "category", category)
	}
	return nil
}

func overviewRows(p models.OverviewPayload) [][]interface{} {
	rows := [][]interface{}{{"Summary", p.Summary}}
	for _, s := range p.Strengths {
		rows = append(rows, []interface{}{"Strength", s})
	}
	for _, w := range p.Weaknesses {
		rows = append(rows, []interface{}{"Weakness", w})
	}
	return rows
}

func writeRows(f *excelize.File, sheetName string, headers []string, rows [][]interface{}) {
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
