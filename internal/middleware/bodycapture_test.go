package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSensitive = map[string]bool{
	"password":      true,
	"token":         true,
	"authorization": true,
	"api_key":       true,
	"secret":        true,
}

func TestMaskJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]interface{}
	}{
		{
			name:  "top level sensitive key",
			input: `{"username":"alice","password":"hunter2"}`,
			expected: map[string]interface{}{
				"username": "alice",
				"password": MaskToken,
			},
		},
		{
			name:  "nested sensitive key",
			input: `{"user":{"name":"alice","token":"abc"}}`,
			expected: map[string]interface{}{
				"user": map[string]interface{}{
					"name":  "alice",
					"token": MaskToken,
				},
			},
		},
		{
			name:  "sensitive key with object value masks whole value",
			input: `{"secret":{"inner":"v"},"ok":1}`,
			expected: map[string]interface{}{
				"secret": MaskToken,
				"ok":     float64(1),
			},
		},
		{
			name:  "arrays are recursed",
			input: `{"items":[{"password":"x"},{"name":"y"}]}`,
			expected: map[string]interface{}{
				"items": []interface{}{
					map[string]interface{}{"password": MaskToken},
					map[string]interface{}{"name": "y"},
				},
			},
		},
		{
			name:  "case insensitive key match",
			input: `{"Password":"x"}`,
			expected: map[string]interface{}{
				"Password": MaskToken,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &decoded))
			assert.Equal(t, tt.expected, MaskJSON(decoded, testSensitive))
		})
	}
}

func TestMaskJSONIdempotent(t *testing.T) {
	var decoded interface{}
	require.NoError(t, json.Unmarshal(
		[]byte(`{"password":"x","user":{"token":"y","name":"z"}}`), &decoded))

	once := MaskJSON(decoded, testSensitive)
	twice := MaskJSON(once, testSensitive)
	assert.Equal(t, once, twice)
}

func TestMaskHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Authorization", "Bearer abc")
	headers.Set("X-Api-Token", "v")
	headers.Add("Accept", "application/json")
	headers.Add("Accept", "text/plain")

	masked := MaskHeaders(headers, testSensitive)

	assert.Equal(t, "application/json", masked["Content-Type"])
	assert.Equal(t, MaskToken, masked["Authorization"])
	assert.Equal(t, "application/json, text/plain", masked["Accept"])
	// Not in the sensitive set and not Authorization.
	assert.Equal(t, "v", masked["X-Api-Token"])
}

func TestMaskHeadersAuthorizationAlwaysMasked(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "ApiKey secret")

	masked := MaskHeaders(headers, nil)
	assert.Equal(t, MaskToken, masked["Authorization"])
}

func TestMaskQueryParams(t *testing.T) {
	params := url.Values{}
	params.Set("q", "search")
	params.Set("token", "abc")

	masked := MaskQueryParams(params, testSensitive)
	assert.Equal(t, "search", masked["q"])
	assert.Equal(t, MaskToken, masked["token"])
}

func TestTruncate(t *testing.T) {
	body := strings.Repeat("a", 100)

	t.Run("over limit", func(t *testing.T) {
		out := Truncate(body, 10)
		assert.Equal(t, strings.Repeat("a", 10)+TruncationMarker, out)
		assert.Len(t, out, 10+len(TruncationMarker))
		assert.True(t, strings.HasPrefix(out, body[:10]))
	})

	t.Run("at limit", func(t *testing.T) {
		assert.Equal(t, body, Truncate(body, 100))
	})

	t.Run("under limit", func(t *testing.T) {
		assert.Equal(t, body, Truncate(body, 1000))
	})

	t.Run("zero disables truncation", func(t *testing.T) {
		assert.Equal(t, body, Truncate(body, 0))
	})
}

func TestCaptureRequestBody(t *testing.T) {
	cfg := CaptureConfig{MaxBodyLength: 10000, SensitiveFields: testSensitive}

	t.Run("json body is masked", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/login",
			strings.NewReader(`{"username":"alice","password":"hunter2"}`))
		r.Header.Set("Content-Type", "application/json")

		out, ok := CaptureRequestBody(r, cfg)
		require.True(t, ok)
		assert.Contains(t, out, `"username":"alice"`)
		assert.Contains(t, out, `"password":"`+MaskToken+`"`)
		assert.NotContains(t, out, "hunter2")
	})

	t.Run("body is restored for downstream handlers", func(t *testing.T) {
		payload := `{"name":"widget"}`
		r := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(payload))

		_, ok := CaptureRequestBody(r, cfg)
		require.True(t, ok)

		restored, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, string(restored))
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		out, ok := CaptureRequestBody(r, cfg)
		assert.False(t, ok)
		assert.Empty(t, out)
	})

	t.Run("multipart upload yields descriptor", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/upload",
			bytes.NewReader([]byte("raw-bytes")))
		r.Header.Set("Content-Type", "multipart/form-data; boundary=x")

		out, ok := CaptureRequestBody(r, cfg)
		require.True(t, ok)
		assert.Contains(t, out, "file_upload_info")
		assert.Contains(t, out, "<file content not logged>")
		assert.NotContains(t, out, "raw-bytes")
	})

	t.Run("path keyword detection without content type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/upload/report.pdf", nil)

		out, ok := CaptureRequestBody(r, cfg)
		require.True(t, ok)
		assert.Contains(t, out, "file_upload_info")
		assert.Contains(t, out, "report.pdf")
	})

	t.Run("non-json body is captured raw", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader("plain text"))

		out, ok := CaptureRequestBody(r, cfg)
		require.True(t, ok)
		assert.Equal(t, "plain text", out)
	})

	t.Run("truncation applied after masking", func(t *testing.T) {
		small := CaptureConfig{MaxBodyLength: 20, SensitiveFields: testSensitive}
		r := httptest.NewRequest(http.MethodPost, "/api/items",
			strings.NewReader(`{"description":"`+strings.Repeat("x", 100)+`"}`))

		out, ok := CaptureRequestBody(r, small)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(out, TruncationMarker))
		assert.Len(t, out, 20+len(TruncationMarker))
	})
}

func TestCaptureResponseBody(t *testing.T) {
	cfg := CaptureConfig{MaxBodyLength: 10000, SensitiveFields: testSensitive}

	t.Run("json body is masked", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Content-Type", "application/json")

		out, ok := CaptureResponseBody([]byte(`{"token":"abc","id":1}`), headers, cfg)
		require.True(t, ok)
		assert.Contains(t, out, `"token":"`+MaskToken+`"`)
		assert.NotContains(t, out, "abc")
	})

	t.Run("attachment yields descriptor with filename", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Content-Type", "application/pdf")
		headers.Set("Content-Disposition", `attachment; filename="report.pdf"`)

		out, ok := CaptureResponseBody([]byte("%PDF-1.4"), headers, cfg)
		require.True(t, ok)
		assert.Contains(t, out, "file_download_info")
		assert.Contains(t, out, "report.pdf")
		assert.NotContains(t, out, "%PDF-1.4")
	})

	t.Run("binary content type without disposition", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Content-Type", "application/octet-stream")

		out, ok := CaptureResponseBody([]byte{0x1, 0x2}, headers, cfg)
		require.True(t, ok)
		assert.Contains(t, out, "file_download_info")
	})

	t.Run("empty body", func(t *testing.T) {
		out, ok := CaptureResponseBody(nil, http.Header{}, cfg)
		assert.False(t, ok)
		assert.Empty(t, out)
	})
}
