package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	tests := []struct {
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{ValidationError, http.StatusBadRequest, CodeValidationError},
		{NotFound, http.StatusNotFound, CodeNotFound},
		{Forbidden, http.StatusForbidden, CodeForbidden},
		{InternalError, http.StatusInternalServerError, CodeInternalError},
		{Unavailable, http.StatusServiceUnavailable, CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, "boom")

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "boom", body.Error.Message)
		})
	}
}
