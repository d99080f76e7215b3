package postgres

import (
	"context"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutcomePostgreSQL struct {
	db *gorm.DB
}

func NewOutcomePostgreSQL(db *gorm.DB) repositories.OutcomeRepository {
	return &OutcomePostgreSQL{db: db}
}

func (o OutcomePostgreSQL) CreateBatch(ctx context.Context, outcomes []*models.QuestionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	// Outcomes are immutable; conflicting identities are skipped so a
	// re-run of the scoring pass is a no-op for already-scored rows.
	return o.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "test_id"}, {Name: "question_id"}},
			DoNothing: true,
		}).
		CreateInBatches(outcomes, 200).Error
}

func (o OutcomePostgreSQL) GetByStudent(ctx context.Context, studentID string, classID, testID uint) ([]*models.QuestionOutcome, error) {
	var outcomes []*models.QuestionOutcome
	query := o.db.WithContext(ctx).
		Where("student_id = ? AND class_id = ?", studentID, classID)
	if testID != 0 {
		query = query.Where("test_id = ?", testID)
	}
	if err := query.Order("test_num, question_num").Find(&outcomes).Error; err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (o OutcomePostgreSQL) GetByStudents(ctx context.Context, studentIDs []string, classID, testID uint) ([]*models.QuestionOutcome, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var outcomes []*models.QuestionOutcome
	query := o.db.WithContext(ctx).
		Where("student_id IN ? AND class_id = ?", studentIDs, classID)
	if testID != 0 {
		query = query.Where("test_id = ?", testID)
	}
	if err := query.Order("test_num, question_num").Find(&outcomes).Error; err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (o OutcomePostgreSQL) ExistingQuestionIDs(ctx context.Context, studentID string, testID uint) (map[uint]struct{}, error) {
	var ids []uint
	if err := o.db.WithContext(ctx).
		Model(&models.QuestionOutcome{}).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Pluck("question_id", &ids).Error; err != nil {
		return nil, err
	}
	existing := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing, nil
}
