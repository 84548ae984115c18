package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ValidatePlate
// ---------------------------------------------------------------------------

func TestValidatePlate(t *testing.T) {
	tests := []struct {
		name   string
		plate  string
		expect bool
	}{
		{"mercosur style", "ABC1D23", true},
		{"old style with hyphen", "ABC-1234", true},
		{"with inner space", "AB 1234", true},
		{"lowercase", "abc1234", true},
		{"accented letters", "ÇÃO1234", true},
		{"surrounding spaces trimmed", "  ABC1234  ", true},
		{"exactly max length", strings.Repeat("A", MaxPlateLength), true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"too long", strings.Repeat("A", MaxPlateLength+1), false},
		{"punctuation", "ABC.1234", false},
		{"slash", "ABC/1234", false},
		{"emoji", "ABC🚗", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ValidatePlate(tt.plate))
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateStruct
// ---------------------------------------------------------------------------

type plateRequest struct {
	Plate string `validate:"required,plate"`
	Model string `validate:"max=8"`
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(plateRequest{Plate: "ABC1234", Model: "Gol"}))
}

func TestValidateStruct_CollectsFieldErrors(t *testing.T) {
	err := ValidateStruct(plateRequest{Plate: "ABC.1234", Model: "Volkswagen Gol"})
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, ve.HasErrors())
	assert.Contains(t, ve.Errors["plate"], "letters, digits")
	assert.Equal(t, "must be at most 8 characters", ve.Errors["model"])
	assert.Equal(t, "model: must be at most 8 characters; plate: "+ve.Errors["plate"], ve.Error())
}

func TestValidateStruct_Required(t *testing.T) {
	err := ValidateStruct(plateRequest{})
	require.Error(t, err)

	ve := err.(*ValidationError)
	assert.Equal(t, "is required", ve.Errors["plate"])
}

func TestValidationError_AddError(t *testing.T) {
	var ve ValidationError
	assert.False(t, ve.HasErrors())

	ve.AddError("entry_time", "cannot be in the future")
	assert.True(t, ve.HasErrors())
	assert.Equal(t, "entry_time: cannot be in the future", ve.Error())
}

// ---------------------------------------------------------------------------
// Gin engine registration
// ---------------------------------------------------------------------------

func TestRegisterGinValidators(t *testing.T) {
	require.NoError(t, RegisterGinValidators())
	require.NoError(t, RegisterGinValidators())

	v := validator.New()
	require.NoError(t, registerRules(v))
	assert.NoError(t, v.Var("XYZ-9876", "plate"))
	assert.Error(t, v.Var("XYZ_9876", "plate"))
}
