package cook

import (
	"context"
	"errors"
	"strings"
	"time"

	"kitchen-api/internal/core/lock"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/pkg/common"
	"kitchen-api/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Options 煮食選項
type Options struct {
	AddMissingToList bool `json:"add_missing_to_list"`
}

// Outcome 煮食結果
type Outcome struct {
	InventoryUpdated int `json:"inventory_updated"`
	MissingAdded     int `json:"missing_added"`
}

// Service 煮食交易服務
type Service struct {
	store   store.Store
	locker  lock.Locker
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewService 創建煮食服務；locker 為 nil 時使用本地鎖
func NewService(s store.Store, locker lock.Locker, recorder *metrics.Recorder) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker(0)
	}
	return &Service{
		store:   s,
		locker:  locker,
		metrics: recorder,
		now:     time.Now,
	}
}

// SetClock 測試用：替換時間來源
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Preview 只計算煮食計畫，不寫入
func (s *Service) Preview(ctx context.Context, householdID, recipeID string) (*Plan, error) {
	if err := validate(householdID, recipeID); err != nil {
		return nil, err
	}

	recipe, snapshot, err := s.load(ctx, householdID, recipeID)
	if err != nil {
		return nil, err
	}
	plan := BuildPlan(*recipe, snapshot)
	return &plan, nil
}

// Cook 扣減庫存、視需要加入缺少食材並標記已煮，全部在同一交易單元完成
func (s *Service) Cook(ctx context.Context, householdID, recipeID string, opts Options) (*Outcome, error) {
	start := time.Now()
	out, err := s.cook(ctx, householdID, recipeID, opts)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.ObserveCook(outcomeLabel(err), 0, 0, elapsed)
		common.LogCook(householdID, recipeID, 0, 0, elapsed, err)
		return nil, err
	}
	s.metrics.ObserveCook(metrics.OutcomeSuccess, out.InventoryUpdated, out.MissingAdded, elapsed)
	common.LogCook(householdID, recipeID, out.InventoryUpdated, out.MissingAdded, elapsed, nil)
	return out, nil
}

func (s *Service) cook(ctx context.Context, householdID, recipeID string, opts Options) (*Outcome, error) {
	if err := validate(householdID, recipeID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.HouseholdKey(householdID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	recipe, snapshot, err := s.load(ctx, householdID, recipeID)
	if err != nil {
		return nil, err
	}
	plan := BuildPlan(*recipe, snapshot)

	common.LogDebug("煮食計畫",
		zap.String("recipe_id", recipe.ID),
		zap.Int("deductions", len(plan.Deductions)),
		zap.Int("missing", len(plan.Missing)),
	)

	out := &Outcome{}
	err = store.RunInUnit(ctx, s.store, householdID, func(u store.UnitOfWork) error {
		for _, d := range plan.Deductions {
			if err := u.DecrementInventory(ctx, d.ItemID, d.Unit, d.Amount); err != nil {
				return err
			}
		}

		if opts.AddMissingToList && len(plan.Missing) > 0 {
			listID, err := u.EnsureShoppingList(ctx)
			if err != nil {
				return err
			}
			items := plan.ShoppingItems()
			if err := u.AddShoppingItems(ctx, listID, items); err != nil {
				return err
			}
			out.MissingAdded = len(items)
		}

		return u.MarkRecipeCooked(ctx, recipe.ID, s.now())
	})
	if err != nil {
		return nil, store.Classify(err)
	}

	out.InventoryUpdated = len(plan.Deductions)
	return out, nil
}

func (s *Service) load(ctx context.Context, householdID, recipeID string) (*common.Recipe, []common.PantryItem, error) {
	recipe, err := s.store.GetRecipe(ctx, householdID, recipeID)
	if err != nil {
		return nil, nil, store.Classify(err)
	}
	inventory, err := s.store.ListInventory(ctx, householdID)
	if err != nil {
		return nil, nil, store.Classify(err)
	}
	return recipe, common.Snapshot(inventory), nil
}

func validate(householdID, recipeID string) error {
	if strings.TrimSpace(householdID) == "" {
		return common.ErrHouseholdRequired
	}
	if strings.TrimSpace(recipeID) == "" {
		return common.WithMessage(common.ErrInvalidRequest, "recipe id is required")
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrInsufficientInventory):
		return metrics.OutcomeConflict
	case errors.Is(err, common.ErrRecipeNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, common.ErrHouseholdBusy):
		return metrics.OutcomeBusy
	case errors.Is(err, common.ErrInvalidRequest), errors.Is(err, common.ErrHouseholdRequired):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
