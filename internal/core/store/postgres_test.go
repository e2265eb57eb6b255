package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/pkg/common"
)

// 需要 KITCHEN_TEST_DATABASE_URL 指向可寫入的 PostgreSQL
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("KITCHEN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KITCHEN_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := NewPostgresStore(ctx, config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		DSN:             dsn,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_CookUnit(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	hh := "test-" + common.GenerateUUID()

	rice := common.InventoryItem{HouseholdID: hh, Name: "Rice", Quantity: 5, Unit: "cup"}
	require.NoError(t, s.UpsertInventoryItem(ctx, &rice))
	recipe := common.Recipe{HouseholdID: hh, Title: "Tomato Rice", Ingredients: []common.RecipeIngredient{{Name: "Rice"}}}
	require.NoError(t, s.CreateRecipe(ctx, &recipe))

	cookedAt := time.Now().UTC().Truncate(time.Second)
	err := RunInUnit(ctx, s, hh, func(u UnitOfWork) error {
		if err := u.DecrementInventory(ctx, rice.ID, "cup", 2); err != nil {
			return err
		}
		listID, err := u.EnsureShoppingList(ctx)
		if err != nil {
			return err
		}
		if err := u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{
			{Name: "Tomato", Source: common.SourceFromRecipe, RecipeID: recipe.ID},
		}); err != nil {
			return err
		}
		return u.MarkRecipeCooked(ctx, recipe.ID, cookedAt)
	})
	require.NoError(t, err)

	inv, err := s.ListInventory(ctx, hh)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 3.0, inv[0].Quantity)

	items, err := s.ListShoppingItems(ctx, hh)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, common.SourceFromRecipe, items[0].Source)

	got, err := s.GetRecipe(ctx, hh, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCookedAt)
	assert.True(t, got.LastCookedAt.Equal(cookedAt))
}

func TestPostgresStore_InsufficientRollsBack(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	hh := "test-" + common.GenerateUUID()

	rice := common.InventoryItem{HouseholdID: hh, Name: "Rice", Quantity: 1, Unit: "cup"}
	require.NoError(t, s.UpsertInventoryItem(ctx, &rice))

	err := RunInUnit(ctx, s, hh, func(u UnitOfWork) error {
		listID, err := u.EnsureShoppingList(ctx)
		if err != nil {
			return err
		}
		if err := u.AddShoppingItems(ctx, listID, []common.ShoppingListItem{{Name: "Salt"}}); err != nil {
			return err
		}
		return u.DecrementInventory(ctx, rice.ID, "cup", 2)
	})
	assert.ErrorIs(t, err, common.ErrInsufficientInventory)

	inv, err := s.ListInventory(ctx, hh)
	require.NoError(t, err)
	assert.Equal(t, 1.0, inv[0].Quantity)
	_, err = s.GetShoppingList(ctx, hh)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
