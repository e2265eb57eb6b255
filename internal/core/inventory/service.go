// Package inventory 家庭庫存維護
package inventory

import (
	"context"
	"strings"

	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"

	"go.uber.org/zap"
)

// ItemInput 新增或更新庫存項目
type ItemInput struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

// Service 庫存服務
type Service struct {
	store store.Store
}

// NewService 創建庫存服務
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// List 列出家庭庫存
func (s *Service) List(ctx context.Context, householdID string) ([]common.InventoryItem, error) {
	if strings.TrimSpace(householdID) == "" {
		return nil, common.ErrHouseholdRequired
	}
	items, err := s.store.ListInventory(ctx, householdID)
	return items, store.Classify(err)
}

// Upsert 新增（itemID 為空）或更新庫存項目
func (s *Service) Upsert(ctx context.Context, householdID, itemID string, in ItemInput) (*common.InventoryItem, error) {
	if strings.TrimSpace(householdID) == "" {
		return nil, common.ErrHouseholdRequired
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.WithMessage(common.ErrInvalidRequest, "item name is required")
	}
	if in.Quantity < 0 {
		return nil, common.WithMessage(common.ErrInvalidRequest, "quantity must not be negative")
	}

	item := &common.InventoryItem{
		ID:          itemID,
		HouseholdID: householdID,
		Name:        name,
		Quantity:    in.Quantity,
		Unit:        strings.TrimSpace(in.Unit),
		Category:    strings.TrimSpace(in.Category),
	}
	if err := s.store.UpsertInventoryItem(ctx, item); err != nil {
		return nil, store.Classify(err)
	}

	common.LogDebug("庫存已更新",
		zap.String("household_id", householdID),
		zap.String("item_id", item.ID),
		zap.Float64("quantity", item.Quantity),
	)
	return item, nil
}

// Delete 刪除庫存項目
func (s *Service) Delete(ctx context.Context, householdID, itemID string) error {
	if strings.TrimSpace(householdID) == "" {
		return common.ErrHouseholdRequired
	}
	return store.Classify(s.store.DeleteInventoryItem(ctx, householdID, itemID))
}
