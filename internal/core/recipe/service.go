// Package recipe 食譜管理與可烹飪性查詢
package recipe

import (
	"context"
	"strings"

	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 食譜服務
type Service struct {
	store store.Store
}

// NewService 創建新的食譜服務
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Create 新增食譜
func (s *Service) Create(ctx context.Context, householdID string, req CreateRequest) (*common.Recipe, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, common.WithMessage(common.ErrInvalidRequest, err.Error())
	}

	r := &common.Recipe{
		HouseholdID: householdID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Servings:    req.Servings,
		PrepMinutes: req.PrepMinutes,
		CookMinutes: req.CookMinutes,
		Ingredients: req.Ingredients,
	}
	if r.Ingredients == nil {
		r.Ingredients = []common.RecipeIngredient{}
	}
	if err := s.store.CreateRecipe(ctx, r); err != nil {
		return nil, store.Classify(err)
	}

	common.LogInfo("新增食譜",
		zap.String("household_id", householdID),
		zap.String("recipe_id", r.ID),
		zap.Int("ingredients", len(r.Ingredients)),
	)
	return r, nil
}

// Get 取得食譜
func (s *Service) Get(ctx context.Context, householdID, recipeID string) (*common.Recipe, error) {
	if err := requireIDs(householdID, recipeID); err != nil {
		return nil, err
	}
	r, err := s.store.GetRecipe(ctx, householdID, recipeID)
	return r, store.Classify(err)
}

// Delete 刪除食譜
func (s *Service) Delete(ctx context.Context, householdID, recipeID string) error {
	if err := requireIDs(householdID, recipeID); err != nil {
		return err
	}
	return store.Classify(s.store.DeleteRecipe(ctx, householdID, recipeID))
}

// Cookability 以當下庫存快照評估單一食譜
func (s *Service) Cookability(ctx context.Context, householdID, recipeID string) (*CookabilityView, error) {
	if err := requireIDs(householdID, recipeID); err != nil {
		return nil, err
	}
	r, err := s.store.GetRecipe(ctx, householdID, recipeID)
	if err != nil {
		return nil, store.Classify(err)
	}
	snapshot, err := s.snapshot(ctx, householdID)
	if err != nil {
		return nil, err
	}

	res := pantry.Evaluate(r.Ingredients, snapshot)
	return &CookabilityView{RecipeID: r.ID, Result: res, Bucket: res.Bucket()}, nil
}

// List 篩選並排序家庭食譜，附整體分類統計
func (s *Service) List(ctx context.Context, householdID string, q ListQuery) (*pantry.RankResult, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	opts, err := q.options()
	if err != nil {
		return nil, common.WithMessage(common.ErrInvalidRequest, err.Error())
	}

	recipes, err := s.store.ListRecipes(ctx, householdID)
	if err != nil {
		return nil, store.Classify(err)
	}
	snapshot, err := s.snapshot(ctx, householdID)
	if err != nil {
		return nil, err
	}

	res := pantry.Rank(recipes, snapshot, opts)
	return &res, nil
}

func (s *Service) snapshot(ctx context.Context, householdID string) ([]common.PantryItem, error) {
	items, err := s.store.ListInventory(ctx, householdID)
	if err != nil {
		return nil, store.Classify(err)
	}
	return common.Snapshot(items), nil
}

func requireHousehold(householdID string) error {
	if strings.TrimSpace(householdID) == "" {
		return common.ErrHouseholdRequired
	}
	return nil
}

func requireIDs(householdID, recipeID string) error {
	if err := requireHousehold(householdID); err != nil {
		return err
	}
	if strings.TrimSpace(recipeID) == "" {
		return common.WithMessage(common.ErrInvalidRequest, "recipe id is required")
	}
	return nil
}
