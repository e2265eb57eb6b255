// Package cook 煮食交易：規劃扣減並以單一交易單元套用
package cook

import (
	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/pkg/common"
)

// MissingReason 食材無法扣減的原因
type MissingReason string

const (
	ReasonNotInPantry  MissingReason = "not-in-pantry"
	ReasonUnitMismatch MissingReason = "unit-mismatch"
	ReasonInsufficient MissingReason = "insufficient"
)

// Deduction 單一庫存列的扣減；同一列的多筆需求已合併
type Deduction struct {
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Amount float64 `json:"amount"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// MissingItem 需要補買的食材
type MissingItem struct {
	Label    string        `json:"label"`
	Quantity *float64      `json:"quantity,omitempty"`
	Unit     string        `json:"unit,omitempty"`
	Reason   MissingReason `json:"reason"`
}

// Plan 煮食計畫，不含任何副作用
type Plan struct {
	RecipeID   string        `json:"recipe_id"`
	Deductions []Deduction   `json:"deductions"`
	Missing    []MissingItem `json:"missing"`
}

// BuildPlan 依快照規劃扣減與缺少清單
//
// 比對規則與可烹飪性評估相同：空標籤略過、選用食材不阻擋。
// 有數量的食材需要同單位且剩餘量足夠的庫存列，否則列為缺少，不做部分扣減或單位換算。
func BuildPlan(recipe common.Recipe, snapshot []common.PantryItem) Plan {
	rows := make(map[string][]int, len(snapshot))
	for i, item := range snapshot {
		key := pantry.Normalize(item.Name)
		if key == "" {
			continue
		}
		rows[key] = append(rows[key], i)
	}

	remaining := make([]float64, len(snapshot))
	for i, item := range snapshot {
		remaining[i] = item.Quantity
	}

	plan := Plan{
		RecipeID:   recipe.ID,
		Deductions: make([]Deduction, 0),
		Missing:    make([]MissingItem, 0),
	}
	deductionIdx := make(map[int]int)

	// 每個缺少的食材各一筆，同名食材各自保留數量與單位
	addMissing := func(ing common.RecipeIngredient, reason MissingReason) {
		plan.Missing = append(plan.Missing, MissingItem{
			Label:    ing.MatchLabel(),
			Quantity: copyQuantity(ing.Quantity),
			Unit:     ing.Unit,
			Reason:   reason,
		})
	}

	for _, ing := range recipe.Ingredients {
		key := pantry.Normalize(ing.MatchLabel())
		if key == "" || pantry.IsOptional(ing) {
			continue
		}

		candidates, ok := rows[key]
		if !ok {
			addMissing(ing, ReasonNotInPantry)
			continue
		}

		// 未標數量：存在即可，不扣減
		if ing.Quantity == nil || *ing.Quantity <= 0 {
			continue
		}
		need := *ing.Quantity

		chosen := -1
		unitMatched := false
		for _, idx := range candidates {
			if snapshot[idx].Unit != ing.Unit {
				continue
			}
			unitMatched = true
			if remaining[idx] >= need {
				chosen = idx
				break
			}
		}
		if chosen == -1 {
			reason := ReasonUnitMismatch
			if unitMatched {
				reason = ReasonInsufficient
			}
			addMissing(ing, reason)
			continue
		}

		remaining[chosen] -= need
		if pos, exists := deductionIdx[chosen]; exists {
			plan.Deductions[pos].Amount += need
			plan.Deductions[pos].After = remaining[chosen]
			continue
		}
		deductionIdx[chosen] = len(plan.Deductions)
		row := snapshot[chosen]
		plan.Deductions = append(plan.Deductions, Deduction{
			ItemID: row.ID,
			Name:   row.Name,
			Unit:   row.Unit,
			Amount: need,
			Before: row.Quantity,
			After:  remaining[chosen],
		})
	}

	return plan
}

// ShoppingItems 將缺少食材轉為購物清單項目（不與既有項目去重）
func (p Plan) ShoppingItems() []common.ShoppingListItem {
	items := make([]common.ShoppingListItem, 0, len(p.Missing))
	for _, m := range p.Missing {
		items = append(items, common.ShoppingListItem{
			Name:     m.Label,
			Quantity: copyQuantity(m.Quantity),
			Unit:     m.Unit,
			Source:   common.SourceFromRecipe,
			RecipeID: p.RecipeID,
		})
	}
	return items
}

func copyQuantity(q *float64) *float64 {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
