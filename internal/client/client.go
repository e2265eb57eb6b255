// Package client 廚房 API 的 HTTP 用戶端
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kitchen-api/internal/core/cook"
	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/core/recipe"
	"kitchen-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// APIError 伺服器回傳的錯誤
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("kitchen api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("kitchen api: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
}

// Client 廚房 API 用戶端
type Client struct {
	http *resty.Client
}

// New 創建用戶端；所有請求都帶上家庭識別
func New(baseURL, householdID string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("X-Household-ID", householdID).
		SetError(&common.ErrorResponse{})
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// ListRecipes 依條件列出食譜
func (c *Client) ListRecipes(ctx context.Context, q recipe.ListQuery) (*pantry.RankResult, error) {
	var out pantry.RankResult
	params := map[string]string{}
	for k, v := range map[string]string{"q": q.Query, "tag": q.Tag, "cookability": q.Cookability, "sort": q.Sort} {
		if v != "" {
			params[k] = v
		}
	}
	req := c.http.R().SetContext(ctx).SetQueryParams(params).SetResult(&out)
	if err := do(req, http.MethodGet, "/api/v1/recipes"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cookability 查詢單一食譜的可烹飪性
func (c *Client) Cookability(ctx context.Context, recipeID string) (*recipe.CookabilityView, error) {
	var out recipe.CookabilityView
	req := c.http.R().SetContext(ctx).SetPathParam("id", recipeID).SetResult(&out)
	if err := do(req, http.MethodGet, "/api/v1/recipes/{id}/cookability"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CookPlan 預覽煮食計畫
func (c *Client) CookPlan(ctx context.Context, recipeID string) (*cook.Plan, error) {
	var out cook.Plan
	req := c.http.R().SetContext(ctx).SetPathParam("id", recipeID).SetResult(&out)
	if err := do(req, http.MethodGet, "/api/v1/recipes/{id}/cook-plan"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cook 執行煮食
func (c *Client) Cook(ctx context.Context, recipeID string, opts cook.Options) (*cook.Outcome, error) {
	var out cook.Outcome
	req := c.http.R().SetContext(ctx).SetPathParam("id", recipeID).SetBody(opts).SetResult(&out)
	if err := do(req, http.MethodPost, "/api/v1/recipes/{id}/cook"); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMissing 將缺少食材加入購物清單，回傳新增數量
func (c *Client) AddMissing(ctx context.Context, recipeID string) (int, error) {
	var out struct {
		Added int `json:"added"`
	}
	req := c.http.R().SetContext(ctx).SetPathParam("id", recipeID).SetResult(&out)
	if err := do(req, http.MethodPost, "/api/v1/recipes/{id}/shopping-list"); err != nil {
		return 0, err
	}
	return out.Added, nil
}

// ShoppingItems 列出購物清單
func (c *Client) ShoppingItems(ctx context.Context) ([]common.ShoppingListItem, error) {
	var out struct {
		Items []common.ShoppingListItem `json:"items"`
	}
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if err := do(req, http.MethodGet, "/api/v1/shopping-list/items"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Inventory 列出庫存
func (c *Client) Inventory(ctx context.Context) ([]common.InventoryItem, error) {
	var out struct {
		Items []common.InventoryItem `json:"items"`
	}
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if err := do(req, http.MethodGet, "/api/v1/inventory"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func do(req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to send request to kitchen api: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*common.ErrorResponse); ok && body != nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
