package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

var validate = validator.New()

// Validate checks the struct tags of req and reports failures as a
// VALIDATION_FAILED domain error keyed by lower-cased field name.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		details[name] = fe.Tag()
		fields = append(fields, name)
	}
	return apperrors.NewValidationError(strings.Join(fields, ", ")+" invalid", details)
}
