package recipe

import (
	"context"
	"testing"

	"kitchen-api/internal/core/pantry"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const household = "house-1"

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	rice := common.InventoryItem{HouseholdID: household, Name: "Rice", Quantity: 5, Unit: "cup"}
	require.NoError(t, s.UpsertInventoryItem(context.Background(), &rice))
	return NewService(s), s
}

func tomatoRice() CreateRequest {
	return CreateRequest{
		Title: " Tomato Rice ",
		Tags:  []string{"dinner", " dinner", "", "quick"},
		Ingredients: []common.RecipeIngredient{
			{Name: "Rice", Quantity: common.Float64Ptr(2), Unit: "cup"},
			{Name: "Tomato", Quantity: common.Float64Ptr(3), Unit: "count", Note: "optional"},
			{Name: "Salt"},
		},
	}
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	r, err := svc.Create(ctx, household, tomatoRice())
	require.NoError(t, err)
	assert.Equal(t, "Tomato Rice", r.Title)
	assert.Equal(t, []string{"dinner", "quick"}, r.Tags)

	got, err := svc.Get(ctx, household, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Len(t, got.Ingredients, 3)

	require.NoError(t, svc.Delete(ctx, household, r.ID))
	_, err = svc.Get(ctx, household, r.ID)
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"empty title", CreateRequest{Title: "  "}},
		{"negative servings", CreateRequest{Title: "x", Servings: -1}},
		{"negative minutes", CreateRequest{Title: "x", PrepMinutes: common.IntPtr(-5)}},
		{"negative quantity", CreateRequest{Title: "x", Ingredients: []common.RecipeIngredient{{Name: "a", Quantity: common.Float64Ptr(-1)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, household, tt.req)
			assert.ErrorIs(t, err, common.ErrInvalidRequest)
		})
	}

	_, err := svc.Create(ctx, "", tomatoRice())
	assert.ErrorIs(t, err, common.ErrHouseholdRequired)
}

func TestService_Cookability(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	r, err := svc.Create(ctx, household, tomatoRice())
	require.NoError(t, err)

	view, err := svc.Cookability(ctx, household, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.MissingCount)
	assert.Equal(t, []string{"Salt"}, view.MissingLabels)
	assert.Equal(t, 2, view.AvailableCount)
	assert.Equal(t, pantry.BucketAlmost, view.Bucket)

	_, err = svc.Cookability(ctx, household, "unknown")
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, household, tomatoRice())
	require.NoError(t, err)
	_, err = svc.Create(ctx, household, CreateRequest{
		Title:       "Plain Rice",
		Ingredients: []common.RecipeIngredient{{Name: "rice"}},
	})
	require.NoError(t, err)

	res, err := svc.List(ctx, household, ListQuery{})
	require.NoError(t, err)
	require.Len(t, res.Recipes, 2)
	assert.Equal(t, "Plain Rice", res.Recipes[0].Recipe.Title)
	assert.Equal(t, pantry.Summary{Total: 2, CookNow: 1, Almost: 1}, res.Summary)

	res, err = svc.List(ctx, household, ListQuery{Cookability: "almost"})
	require.NoError(t, err)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, "Tomato Rice", res.Recipes[0].Recipe.Title)
	assert.Equal(t, 2, res.Summary.Total)

	_, err = svc.List(ctx, household, ListQuery{Cookability: "someday"})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}
