package common

import (
	"time"
)

// IngredientMapping 食材與庫存標籤的明確對應
type IngredientMapping struct {
	InventoryItemLabel string `json:"inventory_item_label,omitempty" yaml:"inventory_item_label"`
}

// RecipeIngredient 食譜所需食材
type RecipeIngredient struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	Quantity *float64           `json:"quantity,omitempty" yaml:"quantity"`
	Unit     string             `json:"unit,omitempty" yaml:"unit"`
	Note     string             `json:"note,omitempty" yaml:"note"`
	Mapping  *IngredientMapping `json:"mapping,omitempty" yaml:"mapping"`
}

// MatchLabel 比對用標籤：優先使用 mapping，否則使用名稱
func (i RecipeIngredient) MatchLabel() string {
	if i.Mapping != nil && i.Mapping.InventoryItemLabel != "" {
		return i.Mapping.InventoryItemLabel
	}
	return i.Name
}

// Recipe 食譜
type Recipe struct {
	ID           string             `json:"id" yaml:"id"`
	HouseholdID  string             `json:"household_id" yaml:"-"`
	Title        string             `json:"title" yaml:"title"`
	Description  string             `json:"description,omitempty" yaml:"description"`
	Tags         []string           `json:"tags" yaml:"tags"`
	Servings     int                `json:"servings,omitempty" yaml:"servings"`
	PrepMinutes  *int               `json:"prep_minutes,omitempty" yaml:"prep_minutes"`
	CookMinutes  *int               `json:"cook_minutes,omitempty" yaml:"cook_minutes"`
	Ingredients  []RecipeIngredient `json:"ingredients" yaml:"ingredients"`
	LastCookedAt *time.Time         `json:"last_cooked_at,omitempty" yaml:"-"`
	CreatedAt    time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time          `json:"updated_at" yaml:"-"`
}

// TotalMinutes 總時間；兩者皆未宣告時回傳 false
func (r Recipe) TotalMinutes() (int, bool) {
	if r.PrepMinutes == nil && r.CookMinutes == nil {
		return 0, false
	}
	total := 0
	if r.PrepMinutes != nil {
		total += *r.PrepMinutes
	}
	if r.CookMinutes != nil {
		total += *r.CookMinutes
	}
	return total, true
}

// InventoryItem 庫存項目
type InventoryItem struct {
	ID          string    `json:"id" yaml:"id"`
	HouseholdID string    `json:"household_id" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	Quantity    float64   `json:"quantity" yaml:"quantity"`
	Unit        string    `json:"unit" yaml:"unit"`
	Category    string    `json:"category,omitempty" yaml:"category"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// PantryItem 某一時間點的庫存快照列
type PantryItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Snapshot 將庫存項目轉為快照
func Snapshot(items []InventoryItem) []PantryItem {
	out := make([]PantryItem, len(items))
	for i, it := range items {
		out[i] = PantryItem{ID: it.ID, Name: it.Name, Quantity: it.Quantity, Unit: it.Unit}
	}
	return out
}

// ItemSource 購物清單項目來源
type ItemSource string

const (
	SourceManual     ItemSource = "manual"
	SourceFromRecipe ItemSource = "from-recipe"
	SourceLowStock   ItemSource = "low-stock"
)

// Valid 檢查來源是否合法
func (s ItemSource) Valid() bool {
	switch s {
	case SourceManual, SourceFromRecipe, SourceLowStock:
		return true
	}
	return false
}

// ShoppingList 家庭購物清單
type ShoppingList struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShoppingListItem 購物清單項目
type ShoppingListItem struct {
	ID        string     `json:"id"`
	ListID    string     `json:"list_id"`
	Name      string     `json:"name"`
	Quantity  *float64   `json:"quantity,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	Category  string     `json:"category,omitempty"`
	Checked   bool       `json:"checked"`
	Note      string     `json:"note,omitempty"`
	Source    ItemSource `json:"source"`
	RecipeID  string     `json:"recipe_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
