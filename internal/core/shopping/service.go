package shopping

import (
	"context"
	"strings"
	"time"

	"kitchen-api/internal/core/lock"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"
	"kitchen-api/internal/pkg/metrics"

	"go.uber.org/zap"
)

// ItemInput 手動新增項目
type ItemInput struct {
	Name     string            `json:"name"`
	Quantity *float64          `json:"quantity,omitempty"`
	Unit     string            `json:"unit,omitempty"`
	Category string            `json:"category,omitempty"`
	Note     string            `json:"note,omitempty"`
	Source   common.ItemSource `json:"source,omitempty"`
}

// ItemPatch 編輯項目；nil 欄位不變更
type ItemPatch struct {
	Name     *string  `json:"name,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Category *string  `json:"category,omitempty"`
	Note     *string  `json:"note,omitempty"`
	Checked  *bool    `json:"checked,omitempty"`
}

// Service 購物清單服務
type Service struct {
	store   store.Store
	locker  lock.Locker
	metrics *metrics.Recorder
}

// NewService 創建購物清單服務
func NewService(s store.Store, locker lock.Locker, recorder *metrics.Recorder) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker(0)
	}
	return &Service{store: s, locker: locker, metrics: recorder}
}

// AddMissing 將食譜缺少的食材加入清單，回傳實際新增的數量
func (s *Service) AddMissing(ctx context.Context, householdID, recipeID string) (int, error) {
	if err := requireHousehold(householdID); err != nil {
		return 0, err
	}
	if strings.TrimSpace(recipeID) == "" {
		return 0, common.WithMessage(common.ErrInvalidRequest, "recipe id is required")
	}

	unlock, err := s.locker.Lock(ctx, lock.HouseholdKey(householdID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	start := time.Now()
	recipe, err := s.store.GetRecipe(ctx, householdID, recipeID)
	if err != nil {
		return 0, store.Classify(err)
	}
	inventory, err := s.store.ListInventory(ctx, householdID)
	if err != nil {
		return 0, store.Classify(err)
	}
	existing, err := s.store.ListShoppingItems(ctx, householdID)
	if err != nil {
		return 0, store.Classify(err)
	}

	staged := Reconcile(*recipe, common.Snapshot(inventory), existing)
	if len(staged) == 0 {
		common.LogInfo("缺少食材皆已在清單中",
			zap.String("household_id", householdID),
			zap.String("recipe_id", recipeID),
		)
		return 0, nil
	}

	err = store.RunInUnit(ctx, s.store, householdID, func(u store.UnitOfWork) error {
		listID, err := u.EnsureShoppingList(ctx)
		if err != nil {
			return err
		}
		return u.AddShoppingItems(ctx, listID, staged)
	})
	if err != nil {
		common.LogError("加入缺少食材失敗",
			zap.String("household_id", householdID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return 0, store.Classify(err)
	}

	s.metrics.ObserveReconcile(len(staged))
	common.LogInfo("已加入缺少食材",
		zap.String("household_id", householdID),
		zap.String("recipe_id", recipeID),
		zap.Int("added", len(staged)),
		zap.Duration("耗時", time.Since(start)),
	)
	return len(staged), nil
}

// ListItems 列出清單項目
func (s *Service) ListItems(ctx context.Context, householdID string) ([]common.ShoppingListItem, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	items, err := s.store.ListShoppingItems(ctx, householdID)
	return items, store.Classify(err)
}

// AddItem 手動新增項目
func (s *Service) AddItem(ctx context.Context, householdID string, in ItemInput) (*common.ShoppingListItem, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.WithMessage(common.ErrInvalidRequest, "item name is required")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, common.WithMessage(common.ErrInvalidRequest, "quantity must not be negative")
	}
	source := in.Source
	if source == "" {
		source = common.SourceManual
	}
	if !source.Valid() {
		return nil, common.WithMessage(common.ErrInvalidRequest, "unknown item source")
	}

	item := common.ShoppingListItem{
		ID:       common.GenerateUUID(),
		Name:     name,
		Quantity: in.Quantity,
		Unit:     strings.TrimSpace(in.Unit),
		Category: strings.TrimSpace(in.Category),
		Note:     in.Note,
		Source:   source,
	}
	err := store.RunInUnit(ctx, s.store, householdID, func(u store.UnitOfWork) error {
		listID, err := u.EnsureShoppingList(ctx)
		if err != nil {
			return err
		}
		return u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{item})
	})
	if err != nil {
		return nil, store.Classify(err)
	}

	created, err := s.store.GetShoppingItem(ctx, householdID, item.ID)
	return created, store.Classify(err)
}

// UpdateItem 編輯項目
func (s *Service) UpdateItem(ctx context.Context, householdID, itemID string, patch ItemPatch) (*common.ShoppingListItem, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	item, err := s.store.GetShoppingItem(ctx, householdID, itemID)
	if err != nil {
		return nil, store.Classify(err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, common.WithMessage(common.ErrInvalidRequest, "item name must not be empty")
		}
		item.Name = name
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, common.WithMessage(common.ErrInvalidRequest, "quantity must not be negative")
		}
		q := *patch.Quantity
		item.Quantity = &q
	}
	if patch.Unit != nil {
		item.Unit = strings.TrimSpace(*patch.Unit)
	}
	if patch.Category != nil {
		item.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Note != nil {
		item.Note = *patch.Note
	}
	if patch.Checked != nil {
		item.Checked = *patch.Checked
	}

	if err := s.store.UpdateShoppingItem(ctx, householdID, item); err != nil {
		return nil, store.Classify(err)
	}
	return item, nil
}

// Toggle 切換勾選狀態
func (s *Service) Toggle(ctx context.Context, householdID, itemID string) (*common.ShoppingListItem, error) {
	if err := requireHousehold(householdID); err != nil {
		return nil, err
	}
	item, err := s.store.GetShoppingItem(ctx, householdID, itemID)
	if err != nil {
		return nil, store.Classify(err)
	}
	checked := !item.Checked
	return s.UpdateItem(ctx, householdID, itemID, ItemPatch{Checked: &checked})
}

// Remove 移除項目
func (s *Service) Remove(ctx context.Context, householdID, itemID string) error {
	if err := requireHousehold(householdID); err != nil {
		return err
	}
	return store.Classify(s.store.DeleteShoppingItem(ctx, householdID, itemID))
}

// ClearChecked 清除所有已勾選項目
func (s *Service) ClearChecked(ctx context.Context, householdID string) (int, error) {
	if err := requireHousehold(householdID); err != nil {
		return 0, err
	}
	n, err := s.store.ClearCheckedItems(ctx, householdID)
	if err != nil {
		return 0, store.Classify(err)
	}
	common.LogInfo("已清除勾選項目", zap.String("household_id", householdID), zap.Int("count", n))
	return n, nil
}

func requireHousehold(householdID string) error {
	if strings.TrimSpace(householdID) == "" {
		return common.ErrHouseholdRequired
	}
	return nil
}
