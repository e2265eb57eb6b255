// Package store 定義廚房資料的持久化介面與交易單元
package store

import (
	"context"
	"errors"
	"time"

	"kitchen-api/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrUnitClosed 交易單元已提交或回滾
var ErrUnitClosed = errors.New("unit of work already closed")

// Store 廚房資料存取介面
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateRecipe(ctx context.Context, recipe *common.Recipe) error
	GetRecipe(ctx context.Context, householdID, recipeID string) (*common.Recipe, error)
	ListRecipes(ctx context.Context, householdID string) ([]common.Recipe, error)
	DeleteRecipe(ctx context.Context, householdID, recipeID string) error

	ListInventory(ctx context.Context, householdID string) ([]common.InventoryItem, error)
	UpsertInventoryItem(ctx context.Context, item *common.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, householdID, itemID string) error

	GetShoppingList(ctx context.Context, householdID string) (*common.ShoppingList, error)
	ListShoppingItems(ctx context.Context, householdID string) ([]common.ShoppingListItem, error)
	GetShoppingItem(ctx context.Context, householdID, itemID string) (*common.ShoppingListItem, error)
	UpdateShoppingItem(ctx context.Context, householdID string, item *common.ShoppingListItem) error
	DeleteShoppingItem(ctx context.Context, householdID, itemID string) error
	ClearCheckedItems(ctx context.Context, householdID string) (int, error)

	// Begin 開啟一個家庭範圍的交易單元
	Begin(ctx context.Context, householdID string) (UnitOfWork, error)
}

// UnitOfWork 交易單元：暫存寫入，Commit 時整批生效，任何失敗皆不留下部分結果
type UnitOfWork interface {
	// DecrementInventory 扣減庫存；提交時重新驗證單位與數量，不足則整筆交易失敗
	DecrementInventory(ctx context.Context, itemID, unit string, amount float64) error
	// EnsureShoppingList 取得或建立家庭購物清單（以家庭為鍵 upsert）
	EnsureShoppingList(ctx context.Context) (string, error)
	AddShoppingItems(ctx context.Context, listID string, items []common.ShoppingListItem) error
	MarkRecipeCooked(ctx context.Context, recipeID string, at time.Time) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RunInUnit 在交易單元中執行 fn，fn 失敗或提交失敗時整批回滾
func RunInUnit(ctx context.Context, s Store, householdID string, fn func(UnitOfWork) error) error {
	unit, err := s.Begin(ctx, householdID)
	if err != nil {
		return err
	}

	if err := fn(unit); err != nil {
		if rbErr := unit.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, ErrUnitClosed) {
			common.LogWarn("交易回滾失敗",
				zap.String("household_id", householdID),
				zap.Error(rbErr),
			)
		}
		return err
	}

	return unit.Commit(ctx)
}

// Classify 保留已分類的領域錯誤，其餘視為持久化失敗
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return err
	}
	return common.Wrap(common.ErrPersistence, err)
}
