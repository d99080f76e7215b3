package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/SAP-F-2025/insight-service/internal/errors"
	"github.com/SAP-F-2025/insight-service/internal/models"
)

// Validator wraps struct-tag validation with the domain's custom rules.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterValidation("insight_category", validateInsightCategory)

	// Report field names by json tag for readable error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: validate}
}

// Validate checks struct tags and converts failures into the domain's
// field-level error list.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func validateInsightCategory(fl validator.FieldLevel) bool {
	value := models.InsightCategory(fl.Field().String())
	for _, category := range models.AllCategories {
		if category == value {
			return true
		}
	}
	return false
}

// ParseCategory maps a request string onto a known insight category.
func ParseCategory(raw string) (models.InsightCategory, bool) {
	value := models.InsightCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, category := range models.AllCategories {
		if category == value {
			return value, true
		}
	}
	return "", false
}
