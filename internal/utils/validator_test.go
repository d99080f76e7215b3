package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/insight-service/internal/errors"
	"github.com/SAP-F-2025/insight-service/internal/models"
)

func TestValidator_InsightCategoryRule(t *testing.T) {
	v := NewValidator()

	valid := models.InsightRecord{OwnerID: "s1", Category: models.CategorySWOT}
	require.NoError(t, v.Validate(&valid))

	unknown := models.InsightRecord{OwnerID: "s1", Category: "swoot"}
	err := v.Validate(&unknown)
	require.Error(t, err)

	// Failures surface as the domain's field-error list, named by json tag.
	var converted apperrors.ValidationErrors
	require.ErrorAs(t, err, &converted)
	require.Len(t, converted, 1)
	assert.Equal(t, "category", converted[0].Field)
	assert.Equal(t, "insight_category", converted[0].Rule)
}

func TestParseCategory(t *testing.T) {
	category, ok := ParseCategory("  Action_Plan ")
	require.True(t, ok)
	assert.Equal(t, models.CategoryActionPlan, category)

	_, ok = ParseCategory("swoot")
	assert.False(t, ok)
}
