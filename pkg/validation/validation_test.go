package validation

import (
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"eqfield=Password"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "short", Password2: "other"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{
		"email":     "must be a valid email",
		"password":  "must be at least 8",
		"password2": "must match password",
		"quantity":  "must be greater than 0",
	}, typed.Details())
}

func TestStructAcceptsValidPayload(t *testing.T) {
	require.NoError(t, Struct(signup{Email: "a@b.co", Password: "longenough", Password2: "longenough", Quantity: 1}))
}
