package dtos

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Phone string `validate:"required,e164"`
	Code  string `validate:"len=6,numeric"`
	Note  string `validate:"max=3"`
}

func TestValidationDetails(t *testing.T) {
	err := validator.New().Struct(sample{Code: "12a", Note: "toolong"})
	details := ValidationDetails(err)

	require.Equal(t, []ValidationErrorDetail{
		{Field: "phone", Message: "is required", Code: "required"},
		{Field: "code", Message: "must be 6 characters", Code: "len"},
		{Field: "note", Message: "must be at most 3 characters", Code: "max"},
	}, details)
}

func TestValidationDetailsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, ValidationDetails(errors.New("boom")))
	require.Nil(t, ValidationDetails(nil))
}
