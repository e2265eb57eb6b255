// Package shopping 購物清單路由
package shopping

import (
	"net/http"

	"kitchen-api/internal/api/handlers"
	"kitchen-api/internal/api/middleware"
	"kitchen-api/internal/core/shopping"

	"github.com/gin-gonic/gin"
)

// Handler 購物清單處理程序
type Handler struct {
	svc *shopping.Service
}

// NewHandler 創建購物清單處理程序
func NewHandler(svc *shopping.Service) *Handler {
	return &Handler{svc: svc}
}

// ClearResponse 清除已勾選項目的結果
type ClearResponse struct {
	Removed int `json:"removed"`
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/items", h.List)
	group.POST("/items", h.Add)
	group.PATCH("/items/:itemId", h.Update)
	group.POST("/items/:itemId/toggle", h.Toggle)
	group.DELETE("/items/:itemId", h.Remove)
	group.POST("/clear-checked", h.ClearChecked)
}

// List 列出清單項目
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context(), middleware.HouseholdID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Add 手動新增項目
func (h *Handler) Add(c *gin.Context) {
	var in shopping.ItemInput
	if !handlers.BindJSON(c, &in) {
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), middleware.HouseholdID(c), in)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update 編輯項目
func (h *Handler) Update(c *gin.Context) {
	var patch shopping.ItemPatch
	if !handlers.BindJSON(c, &patch) {
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), middleware.HouseholdID(c), c.Param("itemId"), patch)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Toggle 切換勾選
func (h *Handler) Toggle(c *gin.Context) {
	item, err := h.svc.Toggle(c.Request.Context(), middleware.HouseholdID(c), c.Param("itemId"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Remove 移除項目
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.HouseholdID(c), c.Param("itemId")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearChecked 清除已勾選項目
func (h *Handler) ClearChecked(c *gin.Context) {
	n, err := h.svc.ClearChecked(c.Request.Context(), middleware.HouseholdID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClearResponse{Removed: n})
}
