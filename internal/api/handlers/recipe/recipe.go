// Package recipe 食譜、可烹飪性與煮食相關路由
package recipe

import (
	"net/http"

	"kitchen-api/internal/api/handlers"
	"kitchen-api/internal/api/middleware"
	"kitchen-api/internal/core/cook"
	recipeService "kitchen-api/internal/core/recipe"
	"kitchen-api/internal/core/shopping"
	"kitchen-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜處理程序
type Handler struct {
	recipes  *recipeService.Service
	cook     *cook.Service
	shopping *shopping.Service
}

// NewHandler 創建新的食譜處理程序
func NewHandler(recipes *recipeService.Service, cookSvc *cook.Service, shoppingSvc *shopping.Service) *Handler {
	return &Handler{
		recipes:  recipes,
		cook:     cookSvc,
		shopping: shoppingSvc,
	}
}

// AddMissingResponse 補齊缺少食材的結果
type AddMissingResponse struct {
	Added int `json:"added"`
}

// Register 註冊路由；dedup 套用在會寫入的 POST 上
func (h *Handler) Register(group *gin.RouterGroup, dedup gin.HandlerFunc) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Delete)
	group.GET("/:id/cookability", h.Cookability)
	group.GET("/:id/cook-plan", h.CookPlan)
	group.POST("/:id/shopping-list", dedup, h.AddMissing)
	group.POST("/:id/cook", dedup, h.Cook)
}

// List 依可烹飪性排序的食譜列表
func (h *Handler) List(c *gin.Context) {
	var q recipeService.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handlers.RespondError(c, common.WithMessage(common.ErrInvalidRequest, "invalid query"))
		return
	}

	res, err := h.recipes.List(c.Request.Context(), middleware.HouseholdID(c), q)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create 新增食譜
func (h *Handler) Create(c *gin.Context) {
	var req recipeService.CreateRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	r, err := h.recipes.Create(c.Request.Context(), middleware.HouseholdID(c), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Get 取得食譜
func (h *Handler) Get(c *gin.Context) {
	r, err := h.recipes.Get(c.Request.Context(), middleware.HouseholdID(c), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Delete 刪除食譜
func (h *Handler) Delete(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), middleware.HouseholdID(c), c.Param("id")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cookability 單一食譜的可烹飪性
func (h *Handler) Cookability(c *gin.Context) {
	view, err := h.recipes.Cookability(c.Request.Context(), middleware.HouseholdID(c), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CookPlan 預覽煮食會扣減與補買的內容
func (h *Handler) CookPlan(c *gin.Context) {
	plan, err := h.cook.Preview(c.Request.Context(), middleware.HouseholdID(c), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// AddMissing 將缺少的食材加入購物清單
func (h *Handler) AddMissing(c *gin.Context) {
	added, err := h.shopping.AddMissing(c.Request.Context(), middleware.HouseholdID(c), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AddMissingResponse{Added: added})
}

// Cook 執行煮食交易
func (h *Handler) Cook(c *gin.Context) {
	var opts cook.Options
	if !handlers.BindOptionalJSON(c, &opts) {
		return
	}

	householdID := middleware.HouseholdID(c)
	common.LogInfo("開始處理煮食請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("household_id", householdID),
		zap.String("recipe_id", c.Param("id")),
		zap.Bool("add_missing_to_list", opts.AddMissingToList),
	)

	out, err := h.cook.Cook(c.Request.Context(), householdID, c.Param("id"), opts)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
