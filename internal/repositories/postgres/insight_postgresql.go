package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InsightPostgreSQL struct {
	db *gorm.DB
}

func NewInsightPostgreSQL(db *gorm.DB) repositories.InsightRepository {
	return &InsightPostgreSQL{db: db}
}

func (i InsightPostgreSQL) Upsert(ctx context.Context, record *models.InsightRecord) error {
	record.UpdatedAt = time.Now()
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "class_id"}, {Name: "test_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(record).Error
}

func (i InsightPostgreSQL) Get(ctx context.Context, ownerID string, classID, testID uint, category models.InsightCategory) (*models.InsightRecord, error) {
	var record models.InsightRecord
	err := i.db.WithContext(ctx).
		Where("owner_id = ? AND class_id = ? AND test_id = ? AND category = ?",
			ownerID, classID, testID, category).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (i InsightPostgreSQL) GetByOwner(ctx context.Context, ownerID string, classID, testID uint) ([]*models.InsightRecord, error) {
	var records []*models.InsightRecord
	if err := i.db.WithContext(ctx).
		Where("owner_id = ? AND class_id = ? AND test_id = ?", ownerID, classID, testID).
		Order("category").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (i InsightPostgreSQL) GetByOwners(ctx context.Context, ownerIDs []string, classID, testID uint, category models.InsightCategory) ([]*models.InsightRecord, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var records []*models.InsightRecord
	if err := i.db.WithContext(ctx).
		Where("owner_id IN ? AND class_id = ? AND test_id = ? AND category = ?",
			ownerIDs, classID, testID, category).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
