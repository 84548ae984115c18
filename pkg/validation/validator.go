package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxPlateLength is the longest plate the lot accepts
const MaxPlateLength = 16

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	// Letters, digits, spaces and hyphens
	plateRegex = regexp.MustCompile(`^[\p{L}\p{N} \-]+$`)

	ginOnce sync.Once
	ginErr  error
)

func init() {
	Validate = validator.New()
	_ = registerRules(Validate)
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("plate", validatePlate); err != nil {
		return fmt.Errorf("register plate rule: %w", err)
	}
	return nil
}

// RegisterGinValidators adds the custom rules to gin's binding engine so
// `binding:"plate"` works in request structs. Safe to call more than once.
func RegisterGinValidators() error {
	ginOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			ginErr = fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
			return
		}
		ginErr = registerRules(v)
	})
	return ginErr
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

func validatePlate(fl validator.FieldLevel) bool {
	return ValidatePlate(fl.Field().String())
}

// ValidatePlate reports whether a licence plate is acceptable after trimming
func ValidatePlate(plate string) bool {
	plate = strings.TrimSpace(plate)
	n := len([]rune(plate))
	return n > 0 && n <= MaxPlateLength && plateRegex.MatchString(plate)
}

// ValidationError collects per-field validation messages
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// NewValidationError converts validator errors into field messages
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		ve.AddError(fieldName(fe), messageFor(fe))
	}
	return ve
}

// AddError records a message for a field
func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Error renders the messages in field order
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e.Errors[f]
	}
	return strings.Join(parts, "; ")
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "plate":
		return fmt.Sprintf("must be 1-%d letters, digits, spaces or hyphens", MaxPlateLength)
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
