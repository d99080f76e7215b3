package postgres

import (
	"context"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q QuestionPostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("question_num").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.Response, error) {
	var responses []*models.Response
	if err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r ResponsePostgreSQL) GetByStudentAndTest(ctx context.Context, studentID string, testID uint) ([]*models.Response, error) {
	var responses []*models.Response
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r ResponsePostgreSQL) StudentsWithResponses(ctx context.Context, classID, testID uint) ([]string, error) {
	var students []string
	if err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("class_id = ? AND test_id = ?", classID, testID).
		Distinct().
		Order("student_id").
		Pluck("student_id", &students).Error; err != nil {
		return nil, err
	}
	return students, nil
}
