package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"a","password":"b","extra":1}`))
	var body loginBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyValidatesTags(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"a"}`))
	var body loginBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["password"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/history?limit=5", nil)
	v, err := ParseQueryInt(req, "limit", 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	req = httptest.NewRequest("GET", "/history", nil)
	v, err = ParseQueryInt(req, "limit", 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	req = httptest.NewRequest("GET", "/history?limit=99", nil)
	_, err = ParseQueryInt(req, "limit", 10, 1, 20)
	require.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString(" abc ", 0))
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "สมช", SanitizeString(" สมชาย ", 3))
}
