package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfkeeper/shelfkeeper/internal/errors"
)

func transform(t *testing.T, status string, v any) map[string]any {
	t.Helper()

	result, err := EnvelopeTransformer(nil, status, v)
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	out := transform(t, "200", map[string]string{"id": "col-1", "title": "Berserk"})

	assert.Equal(t, float64(1), out["v"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"id": "col-1", "title": "Berserk"}, out["data"])
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_NilData(t *testing.T) {
	out := transform(t, "200", nil)

	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
	assert.NotContains(t, out, "version", "the version field is named v")
}

func TestEnvelopeTransformer_APIError(t *testing.T) {
	out := transform(t, "409", &APIError{
		status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: "Entity already exists",
		Details: map[string]string{"existing_id": "abc-123"},
	})

	assert.Equal(t, false, out["success"])
	assert.NotContains(t, out, "data")
	errObj, ok := out["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", errObj["code"])
	assert.Equal(t, "Entity already exists", errObj["message"])
	assert.Equal(t, map[string]any{"existing_id": "abc-123"}, errObj["details"])
}

func TestEnvelopeTransformer_DomainError(t *testing.T) {
	out := transform(t, "404", domainerrors.NotFound("collection not found"))

	assert.Equal(t, false, out["success"])
	errObj, ok := out["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
	assert.Equal(t, "collection not found", errObj["message"])
}

func TestEnvelopeTransformer_PassesEnvelopesThrough(t *testing.T) {
	env := &Envelope{Version: EnvelopeVersion, Success: true, Data: "x"}

	result, err := EnvelopeTransformer(nil, "200", env)
	require.NoError(t, err)
	assert.Same(t, env, result)
}

func TestNewAPIError_MapsDomainAndStoreErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"domain validation", domainerrors.Validation("bad input"), http.StatusBadRequest, "VALIDATION"},
		{"domain unauthorized", domainerrors.Unauthorized("no"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := newAPIError(http.StatusInternalServerError, "unexpected error occurred", tt.err)
			assert.Equal(t, tt.wantStatus, se.GetStatus())
			apiErr, ok := se.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}
