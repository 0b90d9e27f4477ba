package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemsEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewItemsHandler().Register(engine)
	return engine
}

func TestItemsCRUD(t *testing.T) {
	engine := newItemsEngine()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/items",
		strings.NewReader(`{"name":"widget","description":"a widget","price":9.99}`))
	r.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "widget", created.Name)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var fetched Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created, fetched)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Items []Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.Equal(t, created, listed.Items[0])
}

func TestItemsErrors(t *testing.T) {
	engine := newItemsEngine()

	t.Run("missing name", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"price":1}`))
		r.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/99", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
