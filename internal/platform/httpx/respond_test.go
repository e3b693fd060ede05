package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		detail bool
	}{
		{fmt.Errorf("%w: entry 4", ErrNotFound), http.StatusNotFound, true},
		{fmt.Errorf("%w: invoice INV-1", ErrDuplicate), http.StatusConflict, true},
		{ErrConflict, http.StatusConflict, true},
		{fmt.Errorf("%w: amount must not be negative", ErrValidation), http.StatusBadRequest, true},
		{ErrForbidden, http.StatusForbidden, true},
		{ErrUnauthorized, http.StatusUnauthorized, true},
		{errors.New("connection reset"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		RespondError(rr, tt.err)

		require.Equal(t, tt.status, rr.Code, tt.err.Error())
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tt.status, body.Status)
		if tt.detail {
			assert.Equal(t, tt.err.Error(), body.Detail)
		} else {
			assert.Empty(t, body.Detail)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ok", target.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
}
