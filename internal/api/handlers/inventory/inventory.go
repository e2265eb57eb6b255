// Package inventory 庫存路由
package inventory

import (
	"net/http"

	"kitchen-api/internal/api/handlers"
	"kitchen-api/internal/api/middleware"
	"kitchen-api/internal/core/inventory"

	"github.com/gin-gonic/gin"
)

// Handler 庫存處理程序
type Handler struct {
	svc *inventory.Service
}

// NewHandler 創建庫存處理程序
func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{svc: svc}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.PUT("/:itemId", h.Update)
	group.DELETE("/:itemId", h.Delete)
}

// List 列出庫存
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), middleware.HouseholdID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create 新增庫存項目
func (h *Handler) Create(c *gin.Context) {
	h.upsert(c, "", http.StatusCreated)
}

// Update 更新庫存項目
func (h *Handler) Update(c *gin.Context) {
	h.upsert(c, c.Param("itemId"), http.StatusOK)
}

func (h *Handler) upsert(c *gin.Context, itemID string, status int) {
	var in inventory.ItemInput
	if !handlers.BindJSON(c, &in) {
		return
	}
	item, err := h.svc.Upsert(c.Request.Context(), middleware.HouseholdID(c), itemID, in)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(status, item)
}

// Delete 刪除庫存項目
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.HouseholdID(c), c.Param("itemId")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
