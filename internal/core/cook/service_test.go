package cook

import (
	"context"
	"sync"
	"testing"
	"time"

	"kitchen-api/internal/core/lock"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const household = "house-1"

var cookedAt = time.Date(2026, 10, 19, 19, 30, 0, 0, time.UTC)

// racingStore 在提交前執行 beforeCommit，模擬並行修改
type racingStore struct {
	*store.MemoryStore
	beforeCommit func()
}

func (r *racingStore) Begin(ctx context.Context, householdID string) (store.UnitOfWork, error) {
	u, err := r.MemoryStore.Begin(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return &racingUnit{UnitOfWork: u, before: r.beforeCommit}, nil
}

type racingUnit struct {
	store.UnitOfWork
	before func()
}

func (u *racingUnit) Commit(ctx context.Context) error {
	if u.before != nil {
		u.before()
	}
	return u.UnitOfWork.Commit(ctx)
}

func setup(t *testing.T) (*store.MemoryStore, common.Recipe, common.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	rice := common.InventoryItem{HouseholdID: household, Name: "Rice", Quantity: 5, Unit: "cup"}
	require.NoError(t, s.UpsertInventoryItem(ctx, &rice))

	recipe := tomatoRice()
	recipe.ID = ""
	recipe.HouseholdID = household
	require.NoError(t, s.CreateRecipe(ctx, &recipe))
	return s, recipe, rice
}

func inventoryQuantity(t *testing.T, s store.Store, id string) float64 {
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

func TestService_CookTomatoRice(t *testing.T) {
	ctx := context.Background()
	s, recipe, rice := setup(t)
	svc := NewService(s, lock.NewLocalLocker(time.Second), nil)
	svc.SetClock(func() time.Time { return cookedAt })

	out, err := svc.Cook(ctx, household, recipe.ID, Options{AddMissingToList: true})
	require.NoError(t, err)
	assert.Equal(t, &Outcome{InventoryUpdated: 1, MissingAdded: 1}, out)

	assert.Equal(t, 3.0, inventoryQuantity(t, s, rice.ID))

	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Salt", items[0].Name)
	assert.Equal(t, common.SourceFromRecipe, items[0].Source)
	assert.Equal(t, recipe.ID, items[0].RecipeID)

	got, err := s.GetRecipe(ctx, household, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCookedAt)
	assert.True(t, got.LastCookedAt.Equal(cookedAt))
}

func TestService_CookAddsFreshRowsEachRun(t *testing.T) {
	ctx := context.Background()
	s, recipe, _ := setup(t)
	svc := NewService(s, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Cook(ctx, household, recipe.ID, Options{AddMissingToList: true})
		require.NoError(t, err)
	}

	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestService_CookWithoutList(t *testing.T) {
	ctx := context.Background()
	s, recipe, rice := setup(t)
	svc := NewService(s, nil, nil)

	out, err := svc.Cook(ctx, household, recipe.ID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.InventoryUpdated)
	assert.Equal(t, 0, out.MissingAdded)
	assert.Equal(t, 3.0, inventoryQuantity(t, s, rice.ID))

	items, err := s.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = s.GetShoppingList(ctx, household)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_CookIsAtomicUnderConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	mem, recipe, rice := setup(t)

	racing := &racingStore{MemoryStore: mem}
	racing.beforeCommit = func() {
		// 另一位家庭成員在提交前用掉了米
		changed := rice
		changed.Quantity = 1
		require.NoError(t, mem.UpsertInventoryItem(ctx, &changed))
	}
	svc := NewService(racing, nil, nil)
	svc.SetClock(func() time.Time { return cookedAt })

	out, err := svc.Cook(ctx, household, recipe.ID, Options{AddMissingToList: true})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, common.ErrInsufficientInventory)

	assert.Equal(t, 1.0, inventoryQuantity(t, mem, rice.ID))

	items, err := mem.ListShoppingItems(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err := mem.GetRecipe(ctx, household, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastCookedAt)
}

func TestService_ConcurrentCooksNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	rice := common.InventoryItem{HouseholdID: household, Name: "Rice", Quantity: 3, Unit: "cup"}
	require.NoError(t, s.UpsertInventoryItem(ctx, &rice))
	recipe := common.Recipe{
		HouseholdID: household,
		Title:       "Plain Rice",
		Ingredients: []common.RecipeIngredient{{Name: "Rice", Quantity: qty(2), Unit: "cup"}},
	}
	require.NoError(t, s.CreateRecipe(ctx, &recipe))

	svc := NewService(s, lock.NewLocalLocker(5*time.Second), nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Cook(ctx, household, recipe.ID, Options{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			updated += out.InventoryUpdated
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, updated)
	assert.Equal(t, 1.0, inventoryQuantity(t, s, rice.ID))
}

func TestService_CookErrors(t *testing.T) {
	ctx := context.Background()
	s, recipe, _ := setup(t)
	svc := NewService(s, nil, nil)

	t.Run("missing household", func(t *testing.T) {
		_, err := svc.Cook(ctx, "", recipe.ID, Options{})
		assert.ErrorIs(t, err, common.ErrHouseholdRequired)
	})

	t.Run("missing recipe id", func(t *testing.T) {
		_, err := svc.Cook(ctx, household, " ", Options{})
		assert.ErrorIs(t, err, common.ErrInvalidRequest)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := svc.Cook(ctx, household, "nope", Options{})
		assert.ErrorIs(t, err, common.ErrRecipeNotFound)
	})

	t.Run("other household", func(t *testing.T) {
		_, err := svc.Cook(ctx, "house-2", recipe.ID, Options{})
		assert.ErrorIs(t, err, common.ErrRecipeNotFound)
	})
}

func TestService_CookBusyHousehold(t *testing.T) {
	ctx := context.Background()
	s, recipe, rice := setup(t)
	locker := lock.NewLocalLocker(20 * time.Millisecond)
	svc := NewService(s, locker, nil)

	unlock, err := locker.Lock(ctx, lock.HouseholdKey(household))
	require.NoError(t, err)
	defer unlock()

	_, err = svc.Cook(ctx, household, recipe.ID, Options{})
	assert.ErrorIs(t, err, common.ErrHouseholdBusy)
	assert.Equal(t, 5.0, inventoryQuantity(t, s, rice.ID))
}

func TestService_Preview(t *testing.T) {
	ctx := context.Background()
	s, recipe, rice := setup(t)
	svc := NewService(s, nil, nil)

	plan, err := svc.Preview(ctx, household, recipe.ID)
	require.NoError(t, err)
	require.Len(t, plan.Deductions, 1)
	assert.Equal(t, rice.ID, plan.Deductions[0].ItemID)
	require.Len(t, plan.Missing, 1)

	// 預覽不寫入
	assert.Equal(t, 5.0, inventoryQuantity(t, s, rice.ID))
}
