// Package seed 從 YAML 檔載入範例家庭資料
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File 種子檔結構
type File struct {
	Households []Household `yaml:"households"`
}

// Household 單一家庭的庫存與食譜
type Household struct {
	ID        string                 `yaml:"id"`
	Inventory []common.InventoryItem `yaml:"inventory"`
	Recipes   []common.Recipe        `yaml:"recipes"`
}

// Load 讀取並解析種子檔
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse 解析種子內容
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, h := range f.Households {
		if strings.TrimSpace(h.ID) == "" {
			return nil, fmt.Errorf("household #%d: id is required", i+1)
		}
		for j, r := range h.Recipes {
			if strings.TrimSpace(r.Title) == "" {
				return nil, fmt.Errorf("household %s recipe #%d: title is required", h.ID, j+1)
			}
		}
		for j, it := range h.Inventory {
			if strings.TrimSpace(it.Name) == "" || it.Quantity < 0 {
				return nil, fmt.Errorf("household %s inventory #%d: name and non-negative quantity are required", h.ID, j+1)
			}
		}
	}
	return &f, nil
}

// Apply 將種子資料寫入儲存；已有庫存或食譜的家庭會略過，重啟時不會重複寫入
func Apply(ctx context.Context, s store.Store, f *File) error {
	for _, h := range f.Households {
		empty, err := isEmpty(ctx, s, h.ID)
		if err != nil {
			return fmt.Errorf("check household %s: %w", h.ID, err)
		}
		if !empty {
			common.LogInfo("家庭已有資料，略過種子", zap.String("household_id", h.ID))
			continue
		}

		for _, it := range h.Inventory {
			item := it
			item.HouseholdID = h.ID
			if err := s.UpsertInventoryItem(ctx, &item); err != nil {
				return fmt.Errorf("seed inventory %q: %w", item.Name, err)
			}
		}
		for _, r := range h.Recipes {
			recipe := r
			recipe.HouseholdID = h.ID
			if recipe.Ingredients == nil {
				recipe.Ingredients = []common.RecipeIngredient{}
			}
			if err := s.CreateRecipe(ctx, &recipe); err != nil {
				return fmt.Errorf("seed recipe %q: %w", recipe.Title, err)
			}
		}

		common.LogInfo("已載入種子資料",
			zap.String("household_id", h.ID),
			zap.Int("inventory", len(h.Inventory)),
			zap.Int("recipes", len(h.Recipes)),
		)
	}
	return nil
}

func isEmpty(ctx context.Context, s store.Store, householdID string) (bool, error) {
	inventory, err := s.ListInventory(ctx, householdID)
	if err != nil {
		return false, err
	}
	if len(inventory) > 0 {
		return false, nil
	}
	recipes, err := s.ListRecipes(ctx, householdID)
	if err != nil {
		return false, err
	}
	return len(recipes) == 0, nil
}
