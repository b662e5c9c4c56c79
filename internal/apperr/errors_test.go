package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePrefersUpstreamText(t *testing.T) {
	err := fmt.Errorf("create post: %w", &UpstreamError{Status: 400, Message: "price is invalid"})
	assert.Equal(t, "price is invalid", Message(err, "something went wrong"))
	assert.Equal(t, "something went wrong", Message(ErrTransport, "something went wrong"))
	assert.Equal(t, "something went wrong", Message(&UpstreamError{Status: 500}, "something went wrong"))
}

func TestFromValidator(t *testing.T) {
	type form struct {
		Mileage string `json:"mileage" validate:"required,numeric"`
		Email   string `json:"email" validate:"required,email"`
	}
	v := validator.New()
	err := FromValidator(v.Struct(form{Mileage: "12k", Email: "nope"}))

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 2)
	assert.Equal(t, "Mileage", ve[0].Field)
	assert.Equal(t, "numeric", ve[0].Tag)
	assert.Equal(t, "Mileage must contain digits only", ve[0].Message)
	assert.Equal(t, "email", ve[1].Tag)
	assert.Equal(t, "Mileage must contain digits only", Message(err, "x"))

	assert.Nil(t, FromValidator(nil))
	assert.Same(t, ErrBadRequest, FromValidator(ErrBadRequest))
}
