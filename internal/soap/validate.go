package soap

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/physiolab/soapnote/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use json tag names for field names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the record's struct tags and cross-field date rules.
// Returns a VALIDATION error listing every violation so a corrective
// re-prompt can quote them all at once.
func (r *Record) Validate() error {
	var messages []string

	if err := getValidator().Struct(r); err != nil {
		var fieldErrors validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrors); !ok {
			return apperrors.Validation(err.Error())
		}
		for _, fe := range fieldErrors {
			messages = append(messages, fe.Field()+" "+formatFieldError(fe))
		}
	}

	switch {
	case r.SessionDate.IsZero():
		messages = append(messages, "session_date is required")
	case r.SessionDate.After(Today()):
		messages = append(messages, "session_date must not be in the future")
	}
	if !r.FollowUpDate.IsZero() {
		if r.SessionDate.IsZero() {
			messages = append(messages, "follow_up_date requires a session_date")
		} else if !r.FollowUpDate.After(r.SessionDate) {
			messages = append(messages, "follow_up_date must be after session_date")
		}
	}

	if len(messages) == 0 {
		return nil
	}
	appErr := apperrors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"violations": messages}
	return appErr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

// formatFieldError creates a human-readable error message.
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
