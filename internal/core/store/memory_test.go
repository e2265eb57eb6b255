package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-api/internal/pkg/common"
)

const household = "house-1"

func seedInventory(t *testing.T, s *MemoryStore, name string, qty float64, unit string) common.InventoryItem {
	t.Helper()
	item := common.InventoryItem{HouseholdID: household, Name: name, Quantity: qty, Unit: unit}
	require.NoError(t, s.UpsertInventoryItem(context.Background(), &item))
	return item
}

func seedRecipe(t *testing.T, s *MemoryStore, title string) common.Recipe {
	t.Helper()
	r := common.Recipe{HouseholdID: household, Title: title, Ingredients: []common.RecipeIngredient{{Name: "Rice"}}}
	require.NoError(t, s.CreateRecipe(context.Background(), &r))
	return r
}

func quantityOf(t *testing.T, s *MemoryStore, id string) float64 {
	t.Helper()
	items, err := s.ListInventory(context.Background(), household)
	require.NoError(t, err)
	for _, it := range items {
		if it.ID == id {
			return it.Quantity
		}
	}
	t.Fatalf("inventory item %s not found", id)
	return 0
}

func TestMemoryStore_Recipes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	r := seedRecipe(t, s, "Fried Rice")
	require.NotEmpty(t, r.ID)
	require.NotEmpty(t, r.Ingredients[0].ID)

	t.Run("household scoped", func(t *testing.T) {
		_, err := s.GetRecipe(ctx, "other", r.ID)
		assert.ErrorIs(t, err, common.ErrRecipeNotFound)
	})

	t.Run("returned copies are isolated", func(t *testing.T) {
		got, err := s.GetRecipe(ctx, household, r.ID)
		require.NoError(t, err)
		got.Ingredients[0].Name = "Changed"

		again, err := s.GetRecipe(ctx, household, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "Rice", again.Ingredients[0].Name)
	})

	t.Run("list keeps creation order", func(t *testing.T) {
		seedRecipe(t, s, "Another")
		list, err := s.ListRecipes(ctx, household)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Fried Rice", list[0].Title)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteRecipe(ctx, household, r.ID))
		assert.ErrorIs(t, s.DeleteRecipe(ctx, household, r.ID), common.ErrRecipeNotFound)
	})
}

func TestMemoryStore_UnitCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cookedAt := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

	rice := seedInventory(t, s, "Rice", 5, "cup")
	recipe := seedRecipe(t, s, "Tomato Rice")

	err := RunInUnit(ctx, s, household, func(u UnitOfWork) error {
		require.NoError(t, u.DecrementInventory(ctx, rice.ID, "cup", 2))
		listID, err := u.EnsureShoppingList(ctx)
		require.NoError(t, err)
		require.NoError(t, u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{
			{Name: "Salt", Source: common.SourceFromRecipe, RecipeID: recipe.ID},
		}))
		return u.MarkRecipeCooked(ctx, recipe.ID, cookedAt)
	})
	require.NoError(t, err)

	assert.Equal(t, 3.0, quantityOf(t, s, rice.ID))

	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Salt", items[0].Name)
	assert.Equal(t, common.SourceFromRecipe, items[0].Source)

	list, err := s.GetShoppingList(ctx, household)
	require.NoError(t, err)
	assert.Equal(t, list.ID, items[0].ListID)

	got, err := s.GetRecipe(ctx, household, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCookedAt)
	assert.True(t, got.LastCookedAt.Equal(cookedAt))
}

func TestMemoryStore_UnitCommitRevalidates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rice := seedInventory(t, s, "Rice", 5, "cup")
	oil := seedInventory(t, s, "Oil", 1, "cup")
	recipe := seedRecipe(t, s, "Tomato Rice")

	unit, err := s.Begin(ctx, household)
	require.NoError(t, err)
	require.NoError(t, unit.DecrementInventory(ctx, rice.ID, "cup", 2))
	require.NoError(t, unit.DecrementInventory(ctx, oil.ID, "cup", 1))
	listID, err := unit.EnsureShoppingList(ctx)
	require.NoError(t, err)
	require.NoError(t, unit.AddShoppingItems(ctx, listID, []common.ShoppingListItem{{Name: "Salt"}}))
	require.NoError(t, unit.MarkRecipeCooked(ctx, recipe.ID, time.Now()))

	// 並行修改：oil 在提交前被用掉
	oil.Quantity = 0.5
	require.NoError(t, s.UpsertInventoryItem(ctx, &oil))

	err = unit.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInsufficientInventory)

	assert.Equal(t, 5.0, quantityOf(t, s, rice.ID))
	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = s.GetShoppingList(ctx, household)
	assert.ErrorIs(t, err, common.ErrNotFound)
	got, err := s.GetRecipe(ctx, household, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastCookedAt)
}

func TestMemoryStore_UnitCumulativeDecrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eggs := seedInventory(t, s, "Eggs", 3, "count")

	err := RunInUnit(ctx, s, household, func(u UnitOfWork) error {
		require.NoError(t, u.DecrementInventory(ctx, eggs.ID, "count", 2))
		return u.DecrementInventory(ctx, eggs.ID, "count", 2)
	})
	assert.ErrorIs(t, err, common.ErrInsufficientInventory)
	assert.Equal(t, 3.0, quantityOf(t, s, eggs.ID))
}

func TestMemoryStore_UnitUnitMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	flour := seedInventory(t, s, "Flour", 500, "g")

	err := RunInUnit(ctx, s, household, func(u UnitOfWork) error {
		return u.DecrementInventory(ctx, flour.ID, "kg", 0.2)
	})
	assert.ErrorIs(t, err, common.ErrInsufficientInventory)
	assert.Equal(t, 500.0, quantityOf(t, s, flour.ID))
}

func TestMemoryStore_RunInUnitRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rice := seedInventory(t, s, "Rice", 5, "cup")
	boom := errors.New("boom")

	err := RunInUnit(ctx, s, household, func(u UnitOfWork) error {
		require.NoError(t, u.DecrementInventory(ctx, rice.ID, "cup", 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5.0, quantityOf(t, s, rice.ID))
}

func TestMemoryStore_UnitClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	unit, err := s.Begin(ctx, household)
	require.NoError(t, err)
	require.NoError(t, unit.Commit(ctx))

	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
	assert.ErrorIs(t, unit.Rollback(ctx), ErrUnitClosed)
	assert.ErrorIs(t, unit.DecrementInventory(ctx, "x", "g", 1), ErrUnitClosed)
}

func TestMemoryStore_EnsureShoppingListRace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := RunInUnit(ctx, s, household, func(u UnitOfWork) error {
				listID, err := u.EnsureShoppingList(ctx)
				if err != nil {
					return err
				}
				return u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{{Name: "Milk"}})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.GetShoppingList(ctx, household)
	require.NoError(t, err)
	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	require.Len(t, items, workers)
	for _, it := range items {
		assert.Equal(t, list.ID, it.ListID)
	}
}

func TestMemoryStore_ShoppingItems(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, RunInUnit(ctx, s, household, func(u UnitOfWork) error {
		listID, err := u.EnsureShoppingList(ctx)
		if err != nil {
			return err
		}
		return u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{
			{Name: "Milk"}, {Name: "Bread"}, {Name: "Eggs"},
		})
	}))

	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Milk", "Bread", "Eggs"}, []string{items[0].Name, items[1].Name, items[2].Name})

	items[0].Checked = true
	require.NoError(t, s.UpdateShoppingItem(ctx, household, &items[0]))
	items[2].Checked = true
	require.NoError(t, s.UpdateShoppingItem(ctx, household, &items[2]))

	cleared, err := s.ClearCheckedItems(ctx, household)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	left, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Bread", left[0].Name)

	assert.ErrorIs(t, s.DeleteShoppingItem(ctx, "other", left[0].ID), common.ErrNotFound)
	require.NoError(t, s.DeleteShoppingItem(ctx, household, left[0].ID))
	_, err = s.GetShoppingItem(ctx, household, left[0].ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
