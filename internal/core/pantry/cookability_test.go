package pantry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-api/internal/pkg/common"
)

func qty(v float64) *float64 { return &v }

func tomatoRiceIngredients() []common.RecipeIngredient {
	return []common.RecipeIngredient{
		{ID: "i1", Name: "Rice", Quantity: qty(2), Unit: "cup"},
		{ID: "i2", Name: "Tomato", Quantity: qty(3), Unit: "count", Note: "optional"},
		{ID: "i3", Name: "Salt"},
	}
}

func TestEvaluate_TomatoRice(t *testing.T) {
	pantry := []common.PantryItem{{ID: "p1", Name: "Rice", Quantity: 5, Unit: "cup"}}

	res := Evaluate(tomatoRiceIngredients(), pantry)

	assert.Equal(t, 1, res.MissingCount)
	assert.Equal(t, []string{"Salt"}, res.MissingLabels)
	assert.Equal(t, 2, res.AvailableCount)
	assert.Equal(t, BucketAlmost, res.Bucket())
}

func TestEvaluate_OptionalNeverBlocks(t *testing.T) {
	ingredients := []common.RecipeIngredient{
		{Name: "Parsley", Note: "Optional, for garnish"},
		{Name: "Black Pepper", Note: "TO TASTE"},
		{Name: "Chili Flakes", Note: "add to taste"},
	}

	res := Evaluate(ingredients, nil)

	assert.Zero(t, res.MissingCount)
	assert.Empty(t, res.MissingLabels)
	assert.Equal(t, 3, res.AvailableCount)
	assert.Equal(t, BucketCookNow, res.Bucket())
}

func TestEvaluate_MissingDeduplicated(t *testing.T) {
	ingredients := []common.RecipeIngredient{
		{Name: "Green Onion"},
		{Name: "Butter"},
		{Name: "green  onion!"},
		{Name: "BUTTER"},
	}

	res := Evaluate(ingredients, nil)

	require.Equal(t, 2, res.MissingCount)
	assert.Equal(t, []string{"Green Onion", "Butter"}, res.MissingLabels)
	assert.Zero(t, res.AvailableCount)
}

func TestEvaluate_MappingOverridesName(t *testing.T) {
	pantry := []common.PantryItem{{Name: "Scallions", Quantity: 1, Unit: "bunch"}}

	t.Run("mapped label found", func(t *testing.T) {
		ing := []common.RecipeIngredient{{
			Name:    "green onion",
			Mapping: &common.IngredientMapping{InventoryItemLabel: "scallions"},
		}}
		res := Evaluate(ing, pantry)
		assert.Equal(t, 1, res.AvailableCount)
		assert.Zero(t, res.MissingCount)
	})

	t.Run("mapped label reported when missing", func(t *testing.T) {
		ing := []common.RecipeIngredient{{
			Name:    "Scallions",
			Mapping: &common.IngredientMapping{InventoryItemLabel: "Leeks"},
		}}
		res := Evaluate(ing, pantry)
		assert.Equal(t, []string{"Leeks"}, res.MissingLabels)
	})

	t.Run("empty mapping falls back to name", func(t *testing.T) {
		ing := []common.RecipeIngredient{{
			Name:    "Scallions",
			Mapping: &common.IngredientMapping{},
		}}
		res := Evaluate(ing, pantry)
		assert.Equal(t, 1, res.AvailableCount)
	})
}

func TestEvaluate_EmptyLabelsSkipped(t *testing.T) {
	ingredients := []common.RecipeIngredient{
		{ID: "blank"},
		{Name: "  ...  "},
		{Name: "", Note: "optional"},
	}

	res := Evaluate(ingredients, nil)

	assert.Zero(t, res.MissingCount)
	assert.Zero(t, res.AvailableCount)
}

func TestEvaluate_PresenceNotQuantity(t *testing.T) {
	pantry := []common.PantryItem{
		{Name: "Eggs", Quantity: 0, Unit: "count"},
		{Name: "eggs", Quantity: 1, Unit: "dozen"},
	}
	ingredients := []common.RecipeIngredient{{Name: "Eggs", Quantity: qty(12), Unit: "count"}}

	res := Evaluate(ingredients, pantry)

	assert.Equal(t, 1, res.AvailableCount)
	assert.Zero(t, res.MissingCount)
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		missing int
		want    Bucket
	}{
		{0, BucketCookNow},
		{1, BucketAlmost},
		{2, BucketAlmost},
		{3, BucketAlmost},
		{4, BucketMissing},
		{12, BucketMissing},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFor(tt.missing), "missing=%d", tt.missing)
	}
}
