package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/insight-service/internal/models"
	"github.com/SAP-F-2025/insight-service/internal/repositories"
)

// StoreUsageRecorder persists per-(credential, model) usage windows
// through the usage repository: one minute row and one day row per
// successful call, both via atomic increment-or-create. Recording
// failures are logged and swallowed; accounting must never fail a
// generation that already succeeded.
type StoreUsageRecorder struct {
	usage  repositories.UsageRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewStoreUsageRecorder(usage repositories.UsageRepository, logger *slog.Logger) *StoreUsageRecorder {
	return &StoreUsageRecorder{usage: usage, logger: logger, now: time.Now}
}

func (r *StoreUsageRecorder) Record(ctx context.Context, credential, model string, usage Usage) {
	tokens := int64(usage.PromptTokens + usage.OutputTokens)
	now := r.now()

	for _, window := range []models.UsageWindow{models.WindowMinute, models.WindowDay} {
		start := window.Truncate(now)
		if err := r.usage.Increment(ctx, credential, model, window, start, 1, tokens); err != nil {
			r.logger.Error("failed to record generation usage",
				"credential", credential,
				"model", model,
				"window", string(window),
				"error", err)
		}
	}
}
