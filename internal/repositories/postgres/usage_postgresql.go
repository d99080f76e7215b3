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

type UsagePostgreSQL struct {
	db *gorm.DB
}

func NewUsagePostgreSQL(db *gorm.DB) repositories.UsageRepository {
	return &UsagePostgreSQL{db: db}
}

// Increment is a single atomic INSERT ... ON CONFLICT DO UPDATE, so
// concurrent workers bumping the same window never lose counts.
func (u UsagePostgreSQL) Increment(ctx context.Context, credential, model string, window models.UsageWindow, windowStart time.Time, requests, tokens int64) error {
	row := &models.GenerationUsage{
		Credential:   credential,
		Model:        model,
		Window:       window,
		WindowStart:  windowStart,
		RequestCount: requests,
		TokenCount:   tokens,
	}
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "credential"}, {Name: "model"}, {Name: "window"}, {Name: "window_start"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"request_count": gorm.Expr("generation_usage.request_count + ?", requests),
				"token_count":   gorm.Expr("generation_usage.token_count + ?", tokens),
				"updated_at":    time.Now(),
			}),
		}).
		Create(row).Error
}

func (u UsagePostgreSQL) Get(ctx context.Context, credential, model string, window models.UsageWindow, windowStart time.Time) (*models.GenerationUsage, error) {
	var usage models.GenerationUsage
	err := u.db.WithContext(ctx).
		Where("credential = ? AND model = ? AND window = ? AND window_start = ?",
			credential, model, window, windowStart).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
