package recipe

import (
	"strings"

	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/pkg/common"
)

// CreateRequest 新增食譜請求
type CreateRequest struct {
	Title       string                    `json:"title" binding:"required"`
	Description string                    `json:"description"`
	Tags        []string                  `json:"tags"`
	Servings    int                       `json:"servings"`
	PrepMinutes *int                      `json:"prep_minutes"`
	CookMinutes *int                      `json:"cook_minutes"`
	Ingredients []common.RecipeIngredient `json:"ingredients"`
}

// ListQuery 食譜列表查詢參數
type ListQuery struct {
	Query       string `form:"q"`
	Tag         string `form:"tag"`
	Cookability string `form:"cookability"`
	Sort        string `form:"sort"`
}

// CookabilityView 單一食譜的可烹飪性
type CookabilityView struct {
	RecipeID string `json:"recipe_id"`
	pantry.Result
	Bucket pantry.Bucket `json:"bucket"`
}

// Validate 驗證並整理請求內容
func (r *CreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return common.NewValidationError("title is required")
	}
	if r.Servings < 0 {
		return common.NewValidationError("servings must not be negative")
	}
	if (r.PrepMinutes != nil && *r.PrepMinutes < 0) || (r.CookMinutes != nil && *r.CookMinutes < 0) {
		return common.NewValidationError("minutes must not be negative")
	}
	for i, ing := range r.Ingredients {
		if ing.Quantity != nil && *ing.Quantity < 0 {
			return common.NewValidationError("ingredient quantity must not be negative")
		}
		r.Ingredients[i].Name = strings.TrimSpace(ing.Name)
		r.Ingredients[i].Unit = strings.TrimSpace(ing.Unit)
	}

	tags := make([]string, 0, len(r.Tags))
	seen := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	r.Tags = tags
	return nil
}

// options 將查詢參數轉為排序選項
func (q ListQuery) options() (pantry.Options, error) {
	opts := pantry.Options{
		Query: q.Query,
		Tag:   q.Tag,
		Sort:  pantry.ParseSortMode(q.Sort),
	}
	if c := strings.TrimSpace(q.Cookability); c != "" && c != "all" {
		b := pantry.Bucket(c)
		if !b.Valid() {
			return opts, common.NewValidationError("cookability must be one of cook-now, almost, missing")
		}
		opts.Cookability = b
	}
	return opts, nil
}
