package postgres

import (
	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository bundles all postgres-backed repositories behind the
// repositories.Repository facade.
type Repository struct {
	outcome  repositories.OutcomeRepository
	question repositories.QuestionRepository
	response repositories.ResponseRepository
	insight  repositories.InsightRepository
	usage    repositories.UsageRepository
	roster   repositories.RosterRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		outcome:  NewOutcomePostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		response: NewResponsePostgreSQL(db),
		insight:  NewInsightPostgreSQL(db),
		usage:    NewUsagePostgreSQL(db),
		roster:   NewRosterPostgreSQL(db),
	}
}

func (r *Repository) Outcome() repositories.OutcomeRepository   { return r.outcome }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Response() repositories.ResponseRepository { return r.response }
func (r *Repository) Insight() repositories.InsightRepository   { return r.insight }
func (r *Repository) Usage() repositories.UsageRepository       { return r.usage }
func (r *Repository) Roster() repositories.RosterRepository     { return r.roster }

// AutoMigrate creates or updates the schema for every model this
// service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Test{},
		&models.Enrollment{},
		&models.Question{},
		&models.Response{},
		&models.QuestionOutcome{},
		&models.InsightRecord{},
		&models.GenerationUsage{},
	)
}
