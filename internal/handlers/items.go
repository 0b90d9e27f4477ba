package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
)

// Item is a demo resource served from memory.
type Item struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// ItemsHandler serves a small in-memory item collection.
type ItemsHandler struct {
	mu     sync.RWMutex
	items  map[int]Item
	nextID int
}

// NewItemsHandler creates an items handler.
func NewItemsHandler() *ItemsHandler {
	return &ItemsHandler{
		items:  make(map[int]Item),
		nextID: 1,
	}
}

// Register mounts the item routes.
func (h *ItemsHandler) Register(r gin.IRouter) {
	r.GET("/api/items", h.list)
	r.POST("/api/items", h.create)
	r.GET("/api/items/:id", h.get)
}

type createItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func (h *ItemsHandler) list(c *gin.Context) {
	h.mu.RLock()
	items := make([]Item, 0, len(h.items))
	for _, item := range h.items {
		items = append(items, item)
	}
	h.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ItemsHandler) create(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "name is required"})
		return
	}

	h.mu.Lock()
	item := Item{
		ID:          h.nextID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	h.items[item.ID] = item
	h.nextID++
	h.mu.Unlock()

	c.JSON(http.StatusCreated, item)
}

func (h *ItemsHandler) get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "item id must be an integer"})
		return
	}

	h.mu.RLock()
	item, ok := h.items[id]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Item not found."})
		return
	}
	c.JSON(http.StatusOK, item)
}
