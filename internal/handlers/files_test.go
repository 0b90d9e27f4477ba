package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjoonchoi/httpgate/internal/config"
	"github.com/minjoonchoi/httpgate/internal/observability"
)

func newFilesEngine(t *testing.T, maxSize int64) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	engine := gin.New()
	NewFilesHandler(config.UploadConfig{Path: dir, MaxFileSize: maxSize}, observability.NopLogger()).Register(engine)
	return engine, dir
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestUpload(t *testing.T) {
	engine, dir := newFilesEngine(t, 1<<20)

	body, contentType := multipartUpload(t, "report.txt", []byte("contents"))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	engine.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filename":"report.txt"`)

	saved, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "contents", string(saved))
}

func TestUploadErrors(t *testing.T) {
	t.Run("missing form field", func(t *testing.T) {
		engine, _ := newFilesEngine(t, 0)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(nil))
		engine.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("path traversal filename is stripped to base name", func(t *testing.T) {
		engine, dir := newFilesEngine(t, 0)

		body, contentType := multipartUpload(t, "../../etc/passwd", []byte("x"))
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		r.Header.Set("Content-Type", contentType)
		engine.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		_, err := os.Stat(filepath.Join(dir, "passwd"))
		assert.NoError(t, err)
	})
}

func TestDownload(t *testing.T) {
	engine, dir := newFilesEngine(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte{0x1, 0x2}, 0o644))

	t.Run("existing file", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/data.bin", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="data.bin"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, []byte{0x1, 0x2}, w.Body.Bytes())
	})

	t.Run("missing file", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/nope.bin", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
