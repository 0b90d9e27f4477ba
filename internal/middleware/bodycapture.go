package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

const (
	// MaskToken replaces sensitive values in logged output.
	MaskToken = "******"

	// TruncationMarker is appended to bodies cut at the configured maximum.
	TruncationMarker = "... [truncated]"

	fileContentMarker = "<file content not logged>"
)

// fileContentTypePrefixes identifies binary or file-transfer payloads that
// must never be logged raw.
var fileContentTypePrefixes = []string{
	"multipart/form-data",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"image/",
	"audio/",
	"video/",
	"application/vnd.openxmlformats-officedocument",
	"application/vnd.ms-excel",
	"application/msword",
	"application/vnd.ms-powerpoint",
}

// filePathKeywords marks request paths that carry file payloads regardless
// of the declared content type.
var filePathKeywords = []string{"/upload", "/file", "/download", "/attachment"}

var contentDispositionFilename = regexp.MustCompile(`filename="?([^";]+)"?`)

// marshalDescriptor serializes a file descriptor without HTML escaping so
// the fileContentMarker appears literally in log output.
func marshalDescriptor(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CaptureConfig bounds and filters captured bodies.
type CaptureConfig struct {
	MaxBodyLength   int
	SensitiveFields map[string]bool
	Logger          observability.Logger
}

type fileInfo struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename,omitempty"`
}

type uploadDescriptor struct {
	Info    fileInfo `json:"file_upload_info"`
	Message string   `json:"message"`
}

type downloadDescriptor struct {
	Info    fileInfo `json:"file_download_info"`
	Message string   `json:"message"`
}

// MaskJSON returns a copy of a decoded JSON value with every value under a
// sensitive key replaced by the mask token. Masking recurses into nested
// objects and arrays under non-sensitive keys; a sensitive key's entire
// value is replaced regardless of its type. The operation is idempotent.
func MaskJSON(v interface{}, sensitive map[string]bool) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		masked := make(map[string]interface{}, len(val))
		for k, child := range val {
			if sensitive[strings.ToLower(k)] {
				masked[k] = MaskToken
			} else {
				masked[k] = MaskJSON(child, sensitive)
			}
		}
		return masked
	case []interface{}:
		masked := make([]interface{}, len(val))
		for i, child := range val {
			masked[i] = MaskJSON(child, sensitive)
		}
		return masked
	default:
		return v
	}
}

// MaskHeaders returns headers with sensitive values replaced. The
// Authorization header is always masked regardless of configuration.
func MaskHeaders(headers http.Header, sensitive map[string]bool) map[string]string {
	masked := make(map[string]string, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(name)
		if sensitive[lower] || lower == "authorization" {
			masked[name] = MaskToken
		} else {
			masked[name] = strings.Join(values, ", ")
		}
	}
	return masked
}

// MaskQueryParams returns query parameters with sensitive values replaced.
func MaskQueryParams(params url.Values, sensitive map[string]bool) map[string]string {
	masked := make(map[string]string, len(params))
	for key, values := range params {
		if sensitive[strings.ToLower(key)] {
			masked[key] = MaskToken
		} else {
			masked[key] = strings.Join(values, ", ")
		}
	}
	return masked
}

// Truncate bounds a body string to max bytes, appending the truncation
// marker when content was cut.
func Truncate(body string, max int) string {
	if max > 0 && len(body) > max {
		return body[:max] + TruncationMarker
	}
	return body
}

// maskAndTruncate JSON-parses a body, masks it, and bounds its length. A
// body that does not parse as JSON is returned as raw text, still bounded.
func maskAndTruncate(body []byte, cfg CaptureConfig) string {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Truncate(string(body), cfg.MaxBodyLength)
	}

	masked := MaskJSON(decoded, cfg.SensitiveFields)
	serialized, err := json.Marshal(masked)
	if err != nil {
		return Truncate(string(body), cfg.MaxBodyLength)
	}
	return Truncate(string(serialized), cfg.MaxBodyLength)
}

// isFileContentType reports whether a content type denotes a file payload.
func isFileContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range fileContentTypePrefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

// isFileRequest reports whether the request carries a file payload, by
// content type or by path keyword.
func isFileRequest(r *http.Request) bool {
	if isFileContentType(r.Header.Get("Content-Type")) {
		return true
	}
	path := strings.ToLower(r.URL.Path)
	for _, keyword := range filePathKeywords {
		if strings.Contains(path, keyword) {
			return true
		}
	}
	return false
}

// requestFilename guesses a filename from an upload path, if one is
// present.
func requestFilename(path string) string {
	if !strings.Contains(path, "/upload/") {
		return ""
	}
	for _, part := range strings.Split(path, "/") {
		if strings.Contains(part, ".") {
			return part
		}
	}
	return ""
}

// CaptureRequestBody returns a loggable rendition of the request body. File
// payloads yield a small descriptor instead of content. The body stream is
// restored so downstream handlers can read it; a read failure is logged and
// reported as no body, never propagated.
func CaptureRequestBody(r *http.Request, cfg CaptureConfig) (string, bool) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	if isFileRequest(r) {
		desc := uploadDescriptor{
			Info: fileInfo{
				Type:        "file_upload",
				ContentType: r.Header.Get("Content-Type"),
				Filename:    requestFilename(r.URL.Path),
			},
			Message: fileContentMarker,
		}
		serialized, err := marshalDescriptor(desc)
		if err != nil {
			return "", false
		}
		return string(serialized), true
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("failed to read request body for logging", observability.Error(err))
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return "", false
	}

	// Restore the stream for downstream handlers.
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return "", false
	}
	return maskAndTruncate(body, cfg), true
}

// isFileResponse reports whether the response is a file download, by
// Content-Disposition or content type.
func isFileResponse(headers http.Header) bool {
	disposition := strings.ToLower(headers.Get("Content-Disposition"))
	if strings.Contains(disposition, "attachment") || strings.Contains(disposition, "inline") {
		return true
	}
	return isFileContentType(headers.Get("Content-Type"))
}

// CaptureResponseBody returns a loggable rendition of a buffered response
// body, keyed off the response headers.
func CaptureResponseBody(body []byte, headers http.Header, cfg CaptureConfig) (string, bool) {
	if isFileResponse(headers) {
		info := fileInfo{
			Type:        "file_download",
			ContentType: headers.Get("Content-Type"),
		}
		if m := contentDispositionFilename.FindStringSubmatch(headers.Get("Content-Disposition")); m != nil {
			info.Filename = m[1]
		}
		serialized, err := marshalDescriptor(downloadDescriptor{Info: info, Message: fileContentMarker})
		if err != nil {
			return "", false
		}
		return string(serialized), true
	}

	if len(body) == 0 {
		return "", false
	}
	return maskAndTruncate(body, cfg), true
}

// bodyCaptureWriter wraps a gin ResponseWriter and keeps a copy of the
// written body for logging.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func newBodyCaptureWriter(w gin.ResponseWriter) *bodyCaptureWriter {
	return &bodyCaptureWriter{ResponseWriter: w}
}

// Write captures the response bytes while passing them through.
func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString captures string writes while passing them through.
func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Body returns the captured response bytes.
func (w *bodyCaptureWriter) Body() []byte {
	return w.buf.Bytes()
}
