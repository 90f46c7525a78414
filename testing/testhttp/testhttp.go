// Package testhttp drives a gin router with JSON requests and decodes the
// response envelope.
package testhttp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Response is the decoded envelope. Data stays raw so each test picks its
// own target type.
type Response struct {
	Code    int
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends body (marshalled unless it is nil or already a string) and decodes
// the envelope.
func Do(t *testing.T, handler http.Handler, method, path string, body any) Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := Response{Code: w.Code}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

// Decode unmarshals the payload into v.
func (r Response) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "data: %s", string(r.Data))
}

// IsNull reports whether the payload is JSON null.
func (r Response) IsNull() bool {
	return len(r.Data) == 0 || string(r.Data) == "null"
}
