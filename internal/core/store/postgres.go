package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/pkg/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore 以 PostgreSQL 為後端的儲存
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore 連線並初始化資料表
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	common.LogInfo("PostgreSQL 已連線",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &PostgresStore{db: db}, nil
}

// initSchema 建立資料表
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
			id UUID PRIMARY KEY,
			household_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			servings INTEGER NOT NULL DEFAULT 0,
			prep_minutes INTEGER NULL,
			cook_minutes INTEGER NULL,
			ingredients JSONB NOT NULL DEFAULT '[]',
			last_cooked_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS recipes_household_idx ON recipes (household_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS inventory_items (
			id UUID PRIMARY KEY,
			household_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
			unit TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS inventory_household_idx ON inventory_items (household_id)`,

		`CREATE TABLE IF NOT EXISTS shopping_lists (
			id UUID PRIMARY KEY,
			household_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS shopping_list_items (
			id UUID PRIMARY KEY,
			list_id UUID NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			quantity DOUBLE PRECISION NULL,
			unit TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			checked BOOLEAN NOT NULL DEFAULT FALSE,
			note TEXT NOT NULL DEFAULT '',
			source VARCHAR(32) NOT NULL DEFAULT 'manual',
			recipe_id UUID NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			seq BIGSERIAL
		)`,
		`CREATE INDEX IF NOT EXISTS shopping_items_list_idx ON shopping_list_items (list_id, seq)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping 檢查連線
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close 關閉連線池
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func persistenceErr(op string, err error) error {
	return common.Wrap(common.ErrPersistence, fmt.Errorf("%s: %w", op, err))
}

// --------------------------------------------------
// Recipes
// --------------------------------------------------

const recipeColumns = `id::text, household_id, title, description, tags, servings, prep_minutes, cook_minutes,
	ingredients, last_cooked_at, created_at, updated_at`

func scanRecipe(row pgx.Row) (*common.Recipe, error) {
	var (
		r       common.Recipe
		rawIngs []byte
	)
	if err := row.Scan(
		&r.ID,
		&r.HouseholdID,
		&r.Title,
		&r.Description,
		&r.Tags,
		&r.Servings,
		&r.PrepMinutes,
		&r.CookMinutes,
		&rawIngs,
		&r.LastCookedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawIngs, &r.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	return &r, nil
}

// CreateRecipe 新增食譜
func (s *PostgresStore) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].ID == "" {
			recipe.Ingredients[i].ID = common.GenerateUUID()
		}
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}

	ings, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO recipes (id, household_id, title, description, tags, servings, prep_minutes, cook_minutes, ingredients)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at
	`,
		recipe.ID,
		recipe.HouseholdID,
		recipe.Title,
		recipe.Description,
		recipe.Tags,
		recipe.Servings,
		recipe.PrepMinutes,
		recipe.CookMinutes,
		ings,
	).Scan(&recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return persistenceErr("insert recipe", err)
	}
	return nil
}

// GetRecipe 取得食譜
func (s *PostgresStore) GetRecipe(ctx context.Context, householdID, recipeID string) (*common.Recipe, error) {
	r, err := scanRecipe(s.db.QueryRow(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id::text = $1 AND household_id = $2`,
		recipeID, householdID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecipeNotFound
	}
	if err != nil {
		return nil, persistenceErr("get recipe", err)
	}
	return r, nil
}

// ListRecipes 列出家庭食譜
func (s *PostgresStore) ListRecipes(ctx context.Context, householdID string) ([]common.Recipe, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE household_id = $1 ORDER BY created_at, id`,
		householdID,
	)
	if err != nil {
		return nil, persistenceErr("list recipes", err)
	}
	defer rows.Close()

	recipes := make([]common.Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, persistenceErr("scan recipe", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list recipes", err)
	}
	return recipes, nil
}

// DeleteRecipe 刪除食譜
func (s *PostgresStore) DeleteRecipe(ctx context.Context, householdID, recipeID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM recipes WHERE id::text = $1 AND household_id = $2`,
		recipeID, householdID,
	)
	if err != nil {
		return persistenceErr("delete recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrRecipeNotFound
	}
	return nil
}

// --------------------------------------------------
// Inventory
// --------------------------------------------------

// ListInventory 列出庫存
func (s *PostgresStore) ListInventory(ctx context.Context, householdID string) ([]common.InventoryItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, household_id, name, quantity, unit, category, updated_at
		FROM inventory_items
		WHERE household_id = $1
		ORDER BY lower(name), id
	`, householdID)
	if err != nil {
		return nil, persistenceErr("list inventory", err)
	}
	defer rows.Close()

	items := make([]common.InventoryItem, 0)
	for rows.Next() {
		var it common.InventoryItem
		if err := rows.Scan(&it.ID, &it.HouseholdID, &it.Name, &it.Quantity, &it.Unit, &it.Category, &it.UpdatedAt); err != nil {
			return nil, persistenceErr("scan inventory", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list inventory", err)
	}
	return items, nil
}

// UpsertInventoryItem 新增或更新庫存
func (s *PostgresStore) UpsertInventoryItem(ctx context.Context, item *common.InventoryItem) error {
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO inventory_items (id, household_id, name, quantity, unit, category, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			quantity = EXCLUDED.quantity,
			unit = EXCLUDED.unit,
			category = EXCLUDED.category,
			updated_at = NOW()
		WHERE inventory_items.household_id = EXCLUDED.household_id
		RETURNING updated_at
	`,
		item.ID,
		item.HouseholdID,
		item.Name,
		item.Quantity,
		item.Unit,
		item.Category,
	).Scan(&item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.WithMessage(common.ErrNotFound, "inventory item not found")
	}
	if err != nil {
		return persistenceErr("upsert inventory", err)
	}
	return nil
}

// DeleteInventoryItem 刪除庫存
func (s *PostgresStore) DeleteInventoryItem(ctx context.Context, householdID, itemID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM inventory_items WHERE id::text = $1 AND household_id = $2`,
		itemID, householdID,
	)
	if err != nil {
		return persistenceErr("delete inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return common.WithMessage(common.ErrNotFound, "inventory item not found")
	}
	return nil
}

// --------------------------------------------------
// Shopping list
// --------------------------------------------------

// GetShoppingList 取得家庭購物清單
func (s *PostgresStore) GetShoppingList(ctx context.Context, householdID string) (*common.ShoppingList, error) {
	var l common.ShoppingList
	err := s.db.QueryRow(ctx,
		`SELECT id::text, household_id, name, created_at FROM shopping_lists WHERE household_id = $1`,
		householdID,
	).Scan(&l.ID, &l.HouseholdID, &l.Name, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.WithMessage(common.ErrNotFound, "shopping list not found")
	}
	if err != nil {
		return nil, persistenceErr("get shopping list", err)
	}
	return &l, nil
}

const itemColumns = `i.id::text, i.list_id::text, i.name, i.quantity, i.unit, i.category, i.checked, i.note, i.source,
	COALESCE(i.recipe_id::text, ''), i.created_at`

func scanItem(row pgx.Row) (*common.ShoppingListItem, error) {
	var (
		it     common.ShoppingListItem
		source string
	)
	if err := row.Scan(
		&it.ID,
		&it.ListID,
		&it.Name,
		&it.Quantity,
		&it.Unit,
		&it.Category,
		&it.Checked,
		&it.Note,
		&source,
		&it.RecipeID,
		&it.CreatedAt,
	); err != nil {
		return nil, err
	}
	it.Source = common.ItemSource(source)
	return &it, nil
}

// ListShoppingItems 列出購物清單項目
func (s *PostgresStore) ListShoppingItems(ctx context.Context, householdID string) ([]common.ShoppingListItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM shopping_list_items i
		JOIN shopping_lists l ON l.id = i.list_id
		WHERE l.household_id = $1
		ORDER BY i.seq
	`, householdID)
	if err != nil {
		return nil, persistenceErr("list shopping items", err)
	}
	defer rows.Close()

	items := make([]common.ShoppingListItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, persistenceErr("scan shopping item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list shopping items", err)
	}
	return items, nil
}

// GetShoppingItem 取得單一項目
func (s *PostgresStore) GetShoppingItem(ctx context.Context, householdID, itemID string) (*common.ShoppingListItem, error) {
	it, err := scanItem(s.db.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM shopping_list_items i
		JOIN shopping_lists l ON l.id = i.list_id
		WHERE i.id::text = $1 AND l.household_id = $2
	`, itemID, householdID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	if err != nil {
		return nil, persistenceErr("get shopping item", err)
	}
	return it, nil
}

// UpdateShoppingItem 更新項目
func (s *PostgresStore) UpdateShoppingItem(ctx context.Context, householdID string, item *common.ShoppingListItem) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE shopping_list_items i
		SET name = $3, quantity = $4, unit = $5, category = $6, checked = $7, note = $8
		FROM shopping_lists l
		WHERE l.id = i.list_id AND i.id::text = $1 AND l.household_id = $2
	`,
		item.ID,
		householdID,
		item.Name,
		item.Quantity,
		item.Unit,
		item.Category,
		item.Checked,
		item.Note,
	)
	if err != nil {
		return persistenceErr("update shopping item", err)
	}
	if tag.RowsAffected() == 0 {
		return common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	return nil
}

// DeleteShoppingItem 刪除項目
func (s *PostgresStore) DeleteShoppingItem(ctx context.Context, householdID, itemID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM shopping_list_items i
		USING shopping_lists l
		WHERE l.id = i.list_id AND i.id::text = $1 AND l.household_id = $2
	`, itemID, householdID)
	if err != nil {
		return persistenceErr("delete shopping item", err)
	}
	if tag.RowsAffected() == 0 {
		return common.WithMessage(common.ErrNotFound, "shopping list item not found")
	}
	return nil
}

// ClearCheckedItems 清除已勾選項目
func (s *PostgresStore) ClearCheckedItems(ctx context.Context, householdID string) (int, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM shopping_list_items i
		USING shopping_lists l
		WHERE l.id = i.list_id AND l.household_id = $1 AND i.checked
	`, householdID)
	if err != nil {
		return 0, persistenceErr("clear checked items", err)
	}
	return int(tag.RowsAffected()), nil
}

// --------------------------------------------------
// Unit of work
// --------------------------------------------------

// Begin 開啟交易並取得家庭層級的 advisory lock
func (s *PostgresStore) Begin(ctx context.Context, householdID string) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, persistenceErr("begin transaction", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, householdID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, persistenceErr("acquire household lock", err)
	}

	return &postgresUnit{tx: tx, householdID: householdID}, nil
}

type postgresUnit struct {
	tx          pgx.Tx
	householdID string
	closed      bool
}

// DecrementInventory 條件式更新：單位相同且數量足夠才會扣減
func (u *postgresUnit) DecrementInventory(ctx context.Context, itemID, unit string, amount float64) error {
	if u.closed {
		return ErrUnitClosed
	}
	tag, err := u.tx.Exec(ctx, `
		UPDATE inventory_items
		SET quantity = quantity - $4, updated_at = NOW()
		WHERE id::text = $1 AND household_id = $2 AND unit = $3 AND quantity >= $4
	`, itemID, u.householdID, unit, amount)
	if err != nil {
		return persistenceErr("decrement inventory", err)
	}
	if tag.RowsAffected() != 1 {
		return common.Wrap(common.ErrInsufficientInventory, fmt.Errorf("inventory item %s cannot cover %.2f %s", itemID, amount, unit))
	}
	return nil
}

func (u *postgresUnit) EnsureShoppingList(ctx context.Context) (string, error) {
	if u.closed {
		return "", ErrUnitClosed
	}
	var id string
	err := u.tx.QueryRow(ctx, `
		INSERT INTO shopping_lists (id, household_id, name)
		VALUES ($1, $2, 'Shopping List')
		ON CONFLICT (household_id) DO UPDATE SET household_id = EXCLUDED.household_id
		RETURNING id::text
	`, common.GenerateUUID(), u.householdID).Scan(&id)
	if err != nil {
		return "", persistenceErr("ensure shopping list", err)
	}
	return id, nil
}

func (u *postgresUnit) AddShoppingItems(ctx context.Context, listID string, items []common.ShoppingListItem) error {
	if u.closed {
		return ErrUnitClosed
	}
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		if it.ID == "" {
			it.ID = common.GenerateUUID()
		}
		source := it.Source
		if source == "" {
			source = common.SourceManual
		}
		var recipeID *string
		if it.RecipeID != "" {
			rid := it.RecipeID
			recipeID = &rid
		}
		batch.Queue(`
			INSERT INTO shopping_list_items (id, list_id, name, quantity, unit, category, checked, note, source, recipe_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, it.ID, listID, it.Name, it.Quantity, it.Unit, it.Category, it.Checked, it.Note, string(source), recipeID)
	}

	results := u.tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return persistenceErr("insert shopping items", err)
		}
	}
	if err := results.Close(); err != nil {
		return persistenceErr("insert shopping items", err)
	}
	return nil
}

func (u *postgresUnit) MarkRecipeCooked(ctx context.Context, recipeID string, at time.Time) error {
	if u.closed {
		return ErrUnitClosed
	}
	tag, err := u.tx.Exec(ctx, `
		UPDATE recipes SET last_cooked_at = $3, updated_at = NOW()
		WHERE id::text = $1 AND household_id = $2
	`, recipeID, u.householdID, at)
	if err != nil {
		return persistenceErr("mark recipe cooked", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrRecipeNotFound
	}
	return nil
}

func (u *postgresUnit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if err := u.tx.Commit(ctx); err != nil {
		return persistenceErr("commit", err)
	}
	return nil
}

func (u *postgresUnit) Rollback(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return persistenceErr("rollback", err)
	}
	return nil
}
