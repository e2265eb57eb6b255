package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kitchen-api/internal/pkg/common"
)

// MemoryStore 記憶體實作，供開發與測試使用
type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	recipes   map[string]memRecipe
	inventory map[string]common.InventoryItem
	lists     map[string]common.ShoppingList // key: household id
	items     map[string]memItem
	now       func() time.Time
}

type memRecipe struct {
	recipe common.Recipe
	seq    int64
}

type memItem struct {
	item        common.ShoppingListItem
	householdID string
	seq         int64
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes:   make(map[string]memRecipe),
		inventory: make(map[string]common.InventoryItem),
		lists:     make(map[string]common.ShoppingList),
		items:     make(map[string]memItem),
		now:       time.Now,
	}
}

// SetClock 測試用：替換時間來源
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Ping 記憶體儲存永遠可用
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close 無需釋放資源
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func cloneRecipe(r common.Recipe) common.Recipe {
	out := r
	out.Tags = append([]string(nil), r.Tags...)
	out.Ingredients = make([]common.RecipeIngredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		c := ing
		if ing.Quantity != nil {
			q := *ing.Quantity
			c.Quantity = &q
		}
		if ing.Mapping != nil {
			mp := *ing.Mapping
			c.Mapping = &mp
		}
		out.Ingredients[i] = c
	}
	if r.PrepMinutes != nil {
		v := *r.PrepMinutes
		out.PrepMinutes = &v
	}
	if r.CookMinutes != nil {
		v := *r.CookMinutes
		out.CookMinutes = &v
	}
	if r.LastCookedAt != nil {
		t := *r.LastCookedAt
		out.LastCookedAt = &t
	}
	return out
}

func cloneItem(it common.ShoppingListItem) common.ShoppingListItem {
	out := it
	if it.Quantity != nil {
		q := *it.Quantity
		out.Quantity = &q
	}
	return out
}

// CreateRecipe 新增食譜
func (m *MemoryStore) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].ID == "" {
			recipe.Ingredients[i].ID = common.GenerateUUID()
		}
	}
	if _, exists := m.recipes[recipe.ID]; exists {
		return common.WithMessage(common.ErrConflict, "recipe id already exists")
	}
	now := m.now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	m.recipes[recipe.ID] = memRecipe{recipe: cloneRecipe(*recipe), seq: m.nextSeq()}
	return nil
}

// GetRecipe 取得食譜
func (m *MemoryStore) GetRecipe(ctx context.Context, householdID, recipeID string) (*common.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.recipe.HouseholdID != householdID {
		return nil, common.ErrRecipeNotFound
	}
	out := cloneRecipe(r.recipe)
	return &out, nil
}

// ListRecipes 列出家庭所有食譜（依建立順序）
func (m *MemoryStore) ListRecipes(ctx context.Context, householdID string) ([]common.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]memRecipe, 0)
	for _, r := range m.recipes {
		if r.recipe.HouseholdID == householdID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]common.Recipe, len(rows))
	for i, r := range rows {
		out[i] = cloneRecipe(r.recipe)
	}
	return out, nil
}

// DeleteRecipe 刪除食譜
func (m *MemoryStore) DeleteRecipe(ctx context.Context, householdID, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.recipe.HouseholdID != householdID {
		return common.ErrRecipeNotFound
	}
	delete(m.recipes, recipeID)
	return nil
}

// ListInventory 列出庫存（依名稱排序）
func (m *MemoryStore) ListInventory(ctx context.Context, householdID string) ([]common.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]common.InventoryItem, 0)
	for _, it := range m.inventory {
		if it.HouseholdID == householdID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertInventoryItem 新增或更新庫存項目
func (m *MemoryStore) UpsertInventoryItem(ctx context.Context, item *common.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = common.GenerateUUID()
	} else if existing, ok := m.inventory[item.ID]; ok && existing.HouseholdID != item.HouseholdID {
		return common.WithMessage(common.ErrNotFound, "inventory item not found")
	}
	item.UpdatedAt = m.now()
	m.inventory[item.ID] = *item
	return nil
}

// DeleteInventoryItem 刪除庫存項目
func (m *MemoryStore) DeleteInventoryItem(ctx context.Context, householdID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.inventory[itemID]
	if !ok || it.HouseholdID != householdID {
		return common.WithMessage(common.ErrNotFound, "inventory item not found")
	}
	delete(m.inventory, itemID)
	return nil
}

// GetShoppingList 取得家庭購物清單
func (m *MemoryStore) GetShoppingList(ctx context.Context, householdID string) (*common.ShoppingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lists[householdID]
	if !ok {
		return nil, common.WithMessage(common.ErrNotFound, "shopping list not found")
	}
	return &l, nil
}

// ListShoppingItems 列出購物清單項目（依加入順序）
func (m *MemoryStore) ListShoppingItems(ctx context.Context, householdID string) ([]common.ShoppingListItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]memItem, 0)
	for _, it := range m.items {
		if it.householdID == householdID {
			rows = append(rows, it)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]common.ShoppingListItem, len(rows))
	for i, r := range rows {
		out[i] = cloneItem(r.item)
	}
	return out, nil
}

// GetShoppingItem 取得單一購物清單項目
func (m *MemoryStore) GetShoppingItem(ctx context.Context, householdID, itemID string) (*common.ShoppingListItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[itemID]
	if !ok || it.householdID != householdID {
		return nil, common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	out := cloneItem(it.item)
	return &out, nil
}

// UpdateShoppingItem 更新購物清單項目
func (m *MemoryStore) UpdateShoppingItem(ctx context.Context, householdID string, item *common.ShoppingListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[item.ID]
	if !ok || existing.householdID != householdID {
		return common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	updated := cloneItem(*item)
	updated.ListID = existing.item.ListID
	updated.CreatedAt = existing.item.CreatedAt
	existing.item = updated
	m.items[item.ID] = existing
	return nil
}

// DeleteShoppingItem 刪除購物清單項目
func (m *MemoryStore) DeleteShoppingItem(ctx context.Context, householdID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[itemID]
	if !ok || it.householdID != householdID {
		return common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	delete(m.items, itemID)
	return nil
}

// ClearCheckedItems 清除已勾選項目
func (m *MemoryStore) ClearCheckedItems(ctx context.Context, householdID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, it := range m.items {
		if it.householdID == householdID && it.item.Checked {
			delete(m.items, id)
			count++
		}
	}
	return count, nil
}

// Begin 開啟記憶體交易單元
func (m *MemoryStore) Begin(ctx context.Context, householdID string) (UnitOfWork, error) {
	return &memoryUnit{store: m, householdID: householdID}, nil
}

type stagedDecrement struct {
	itemID string
	unit   string
	amount float64
}

type stagedItems struct {
	listID string
	items  []common.ShoppingListItem
}

// memoryUnit 暫存所有寫入，Commit 時在寫鎖內重新驗證後一次套用
type memoryUnit struct {
	store       *MemoryStore
	householdID string
	closed      bool

	decrements []stagedDecrement
	newListID  string
	items      []stagedItems
	cooked     map[string]time.Time
}

func (u *memoryUnit) DecrementInventory(ctx context.Context, itemID, unit string, amount float64) error {
	if u.closed {
		return ErrUnitClosed
	}
	if amount < 0 {
		return common.WithMessage(common.ErrInvalidRequest, "decrement amount must not be negative")
	}
	u.decrements = append(u.decrements, stagedDecrement{itemID: itemID, unit: unit, amount: amount})
	return nil
}

func (u *memoryUnit) EnsureShoppingList(ctx context.Context) (string, error) {
	if u.closed {
		return "", ErrUnitClosed
	}
	if u.newListID != "" {
		return u.newListID, nil
	}

	u.store.mu.RLock()
	l, ok := u.store.lists[u.householdID]
	u.store.mu.RUnlock()
	if ok {
		return l.ID, nil
	}

	u.newListID = common.GenerateUUID()
	return u.newListID, nil
}

func (u *memoryUnit) AddShoppingItems(ctx context.Context, listID string, items []common.ShoppingListItem) error {
	if u.closed {
		return ErrUnitClosed
	}
	staged := make([]common.ShoppingListItem, len(items))
	for i, it := range items {
		staged[i] = cloneItem(it)
	}
	u.items = append(u.items, stagedItems{listID: listID, items: staged})
	return nil
}

func (u *memoryUnit) MarkRecipeCooked(ctx context.Context, recipeID string, at time.Time) error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.cooked == nil {
		u.cooked = make(map[string]time.Time)
	}
	u.cooked[recipeID] = at
	return nil
}

func (u *memoryUnit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true

	m := u.store
	m.mu.Lock()
	defer m.mu.Unlock()

	// 驗證階段：任何一項失敗都不套用
	remaining := make(map[string]float64)
	for _, d := range u.decrements {
		item, ok := m.inventory[d.itemID]
		if !ok || item.HouseholdID != u.householdID {
			return common.Wrap(common.ErrInsufficientInventory, fmt.Errorf("inventory item %s no longer exists", d.itemID))
		}
		if item.Unit != d.unit {
			return common.Wrap(common.ErrInsufficientInventory, fmt.Errorf("inventory item %s unit changed to %q", d.itemID, item.Unit))
		}
		left, seen := remaining[d.itemID]
		if !seen {
			left = item.Quantity
		}
		if left < d.amount {
			return common.Wrap(common.ErrInsufficientInventory, fmt.Errorf("inventory item %s has %.2f %s, need %.2f", d.itemID, left, item.Unit, d.amount))
		}
		remaining[d.itemID] = left - d.amount
	}
	for recipeID := range u.cooked {
		r, ok := m.recipes[recipeID]
		if !ok || r.recipe.HouseholdID != u.householdID {
			return common.ErrRecipeNotFound
		}
	}

	// 套用階段
	now := m.now()
	for id, qty := range remaining {
		item := m.inventory[id]
		item.Quantity = qty
		item.UpdatedAt = now
		m.inventory[id] = item
	}

	listID := ""
	if existing, ok := m.lists[u.householdID]; ok {
		listID = existing.ID
	} else if u.newListID != "" || len(u.items) > 0 {
		listID = u.newListID
		if listID == "" {
			listID = common.GenerateUUID()
		}
		m.lists[u.householdID] = common.ShoppingList{
			ID:          listID,
			HouseholdID: u.householdID,
			Name:        "Shopping List",
			CreatedAt:   now,
		}
	}

	for _, batch := range u.items {
		for _, it := range batch.items {
			if it.ID == "" {
				it.ID = common.GenerateUUID()
			}
			if it.Source == "" {
				it.Source = common.SourceManual
			}
			// 同時建立清單的競爭下一律歸入既有清單
			it.ListID = listID
			it.CreatedAt = now
			m.items[it.ID] = memItem{item: it, householdID: u.householdID, seq: m.nextSeq()}
		}
	}

	for recipeID, at := range u.cooked {
		r := m.recipes[recipeID]
		t := at
		r.recipe.LastCookedAt = &t
		r.recipe.UpdatedAt = now
		m.recipes[recipeID] = r
	}

	return nil
}

func (u *memoryUnit) Rollback(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	u.decrements = nil
	u.items = nil
	u.cooked = nil
	return nil
}
