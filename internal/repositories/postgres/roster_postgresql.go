package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"gorm.io/gorm"
)

type RosterPostgreSQL struct {
	db *gorm.DB
}

func NewRosterPostgreSQL(db *gorm.DB) repositories.RosterRepository {
	return &RosterPostgreSQL{db: db}
}

func (r RosterPostgreSQL) GetStudents(ctx context.Context, classID uint) ([]string, error) {
	var students []string
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("class_id = ?", classID).
		Order("student_id").
		Pluck("student_id", &students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r RosterPostgreSQL) GetTeacher(ctx context.Context, classID uint) (string, error) {
	var teacherID string
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("class_id = ? AND teacher_id <> ''", classID).
		Limit(1).
		Pluck("teacher_id", &teacherID).Error
	if err != nil {
		return "", err
	}
	return teacherID, nil
}

func (r RosterPostgreSQL) GetTest(ctx context.Context, testID uint) (*models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).First(&test, testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &test, nil
}

func (r RosterPostgreSQL) GetTestsByClass(ctx context.Context, classID uint) ([]*models.Test, error) {
	var tests []*models.Test
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("test_num").
		Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}
