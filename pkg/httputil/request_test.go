package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme"}`))

	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(req, &body))
	assert.Equal(t, "acme", body.Name)
}

func TestParseJSONOrError_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	var body map[string]string
	assert.False(t, ParseJSONOrError(rec, req, &body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathInt64(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/teams/42", nil),
		map[string]string{"teamID": "42"})

	val, err := ParsePathInt64(req, "teamID")
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)
}

func TestParsePathInt64_NotANumber(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/teams/abc", nil),
		map[string]string{"teamID": "abc"})

	_, err := ParsePathInt64(req, "teamID")
	assert.Error(t, err)
}

func TestParseQueryInt64(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25", nil)

	val, err := ParseQueryInt64(req, "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), val)

	val, err = ParseQueryInt64(req, "offset", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), val)
}

func TestRequireNonEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "value", "name"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "name"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}
