package shopping

import (
	"testing"

	"kitchen-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func soup() common.Recipe {
	return common.Recipe{
		ID:    "soup",
		Title: "Onion Soup",
		Ingredients: []common.RecipeIngredient{
			{Name: "Onion", Quantity: common.Float64Ptr(4), Unit: "count"},
			{Name: "Beef stock", Quantity: common.Float64Ptr(1), Unit: "l"},
			{Name: "Thyme", Note: "to taste"},
			{Name: "Butter", Quantity: common.Float64Ptr(2), Unit: "tbsp"},
			{Name: "onion", Quantity: common.Float64Ptr(1), Unit: "count"},
		},
	}
}

func TestReconcile(t *testing.T) {
	snapshot := []common.PantryItem{{ID: "b", Name: "Butter", Quantity: 1, Unit: "tbsp"}}

	t.Run("stages missing with quantity and unit", func(t *testing.T) {
		staged := Reconcile(soup(), snapshot, nil)

		require.Len(t, staged, 2)
		assert.Equal(t, "Onion", staged[0].Name)
		assert.Equal(t, 4.0, *staged[0].Quantity)
		assert.Equal(t, "count", staged[0].Unit)
		assert.Equal(t, "Beef stock", staged[1].Name)
		for _, it := range staged {
			assert.Equal(t, common.SourceFromRecipe, it.Source)
			assert.Equal(t, "soup", it.RecipeID)
		}
	})

	t.Run("unchecked items block", func(t *testing.T) {
		existing := []common.ShoppingListItem{{Name: "  ONION "}}
		staged := Reconcile(soup(), snapshot, existing)

		require.Len(t, staged, 1)
		assert.Equal(t, "Beef stock", staged[0].Name)
	})

	t.Run("checked items do not block", func(t *testing.T) {
		existing := []common.ShoppingListItem{{Name: "Onion", Checked: true}, {Name: "Beef stock", Checked: true}}
		staged := Reconcile(soup(), snapshot, existing)

		assert.Len(t, staged, 2)
	})

	t.Run("second run stages nothing", func(t *testing.T) {
		first := Reconcile(soup(), snapshot, nil)
		second := Reconcile(soup(), snapshot, first)

		assert.Empty(t, second)
	})

	t.Run("unspecified quantity stays unset", func(t *testing.T) {
		r := common.Recipe{ID: "r", Ingredients: []common.RecipeIngredient{{Name: "Salt"}}}
		staged := Reconcile(r, nil, nil)

		require.Len(t, staged, 1)
		assert.Nil(t, staged[0].Quantity)
		assert.Empty(t, staged[0].Unit)
	})
}
