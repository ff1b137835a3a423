package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	assert.Equal(t, http.StatusOK, a.StatusCodeFor(nil))
	assert.Equal(t, http.StatusBadRequest, a.StatusCodeFor(ValidationError("x").Build()))
	assert.Equal(t, http.StatusNotFound, a.StatusCodeFor(NotFoundError("x").Build()))
	assert.Equal(t, http.StatusUnprocessableEntity, a.StatusCodeFor(GenerationError("x").Build()))
	assert.Equal(t, http.StatusBadGateway, a.StatusCodeFor(PublishError("x").Build()))
	assert.Equal(t, http.StatusServiceUnavailable, a.StatusCodeFor(DaemonError("x").Build()))
	assert.Equal(t, http.StatusInternalServerError, a.StatusCodeFor(stderrors.New("x")))
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)

	a.WriteErrorResponse(rec, req, StorageError("artifact write failed").WithContext("hash", "abc").Build())

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "artifact write failed", body.Error)
	assert.Equal(t, "storage", body.Code)
	assert.True(t, body.Retryable)
	assert.Equal(t, "abc", body.Details["hash"])
}
