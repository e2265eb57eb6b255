// Package shopping 購物清單：補齊缺少食材與清單項目維護
package shopping

import (
	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/pkg/common"
)

// Reconcile 將食譜缺少的食材轉為待新增的購物清單項目
//
// 已存在同名（正規化後）且未勾選的項目會略過；已勾選的項目代表過去的採買，不阻擋再次加入。
func Reconcile(recipe common.Recipe, snapshot []common.PantryItem, existing []common.ShoppingListItem) []common.ShoppingListItem {
	result := pantry.Evaluate(recipe.Ingredients, snapshot)

	pending := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		if it.Checked {
			continue
		}
		if key := pantry.Normalize(it.Name); key != "" {
			pending[key] = struct{}{}
		}
	}

	staged := make([]common.ShoppingListItem, 0, len(result.MissingLabels))
	for _, label := range result.MissingLabels {
		key := pantry.Normalize(label)
		if _, ok := pending[key]; ok {
			continue
		}
		pending[key] = struct{}{}

		item := common.ShoppingListItem{
			Name:     label,
			Source:   common.SourceFromRecipe,
			RecipeID: recipe.ID,
		}
		if ing, ok := firstIngredient(recipe.Ingredients, key); ok {
			if ing.Quantity != nil {
				q := *ing.Quantity
				item.Quantity = &q
			}
			item.Unit = ing.Unit
		}
		staged = append(staged, item)
	}
	return staged
}

// firstIngredient 取得第一個對應 key 的必要食材
func firstIngredient(ingredients []common.RecipeIngredient, key string) (common.RecipeIngredient, bool) {
	for _, ing := range ingredients {
		if pantry.IsOptional(ing) {
			continue
		}
		if pantry.Normalize(ing.MatchLabel()) == key {
			return ing, true
		}
	}
	return common.RecipeIngredient{}, false
}
