package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/foodsurvey/internal/domain"
)

type CatalogStore struct {
	db Querier
}

func NewCatalogStore(db Querier) *CatalogStore {
	return &CatalogStore{db: db}
}

// UpsertCategory returns the category with the given name, creating it first
// if needed.
func (s *CatalogStore) UpsertCategory(ctx context.Context, name string) (*domain.FoodCategory, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO food_categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING
	`, name); err != nil {
		return nil, fmt.Errorf("failed to upsert category: %w", err)
	}

	c := &domain.FoodCategory{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM food_categories WHERE name = ?
	`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (s *CatalogStore) ListCategories(ctx context.Context) (categories []*domain.FoodCategory, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM food_categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		c := &domain.FoodCategory{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// DeleteCategory removes a category. Its items stay in the catalog without a
// category.
func (s *CatalogStore) DeleteCategory(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM food_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("category not found")
	}

	return nil
}

// UpsertItem creates the item with the given name or overwrites its default
// quantity, grams and category.
func (s *CatalogStore) UpsertItem(ctx context.Context, name, quantity string, grams *float64, categoryID *int64) (*domain.FoodItem, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO food_items (name, quantity, grams, category_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			quantity    = excluded.quantity,
			grams       = excluded.grams,
			category_id = excluded.category_id
	`, name, sql.NullString{String: quantity, Valid: quantity != ""}, grams, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert food item: %w", err)
	}

	return s.scanItem(s.db.QueryRowContext(ctx, selectItem+` WHERE name = ?`, name))
}

// GetItem returns nil, nil when the item does not exist.
func (s *CatalogStore) GetItem(ctx context.Context, id int64) (*domain.FoodItem, error) {
	item, err := s.scanItem(s.db.QueryRowContext(ctx, selectItem+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// ListItems returns every item ordered by category id (uncategorized last)
// and then by name.
func (s *CatalogStore) ListItems(ctx context.Context) (items []*domain.FoodItem, err error) {
	rows, err := s.db.QueryContext(ctx, selectItem+`
		ORDER BY category_id IS NULL, category_id ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list food items: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}

	return items, nil
}

// ExistingItemIDs reports which of ids exist in the catalog.
func (s *CatalogStore) ExistingItemIDs(ctx context.Context, ids []int64) (found map[int64]bool, err error) {
	found = make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM food_items WHERE id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve food items: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan food item id: %w", err)
		}
		found[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food item ids: %w", err)
	}

	return found, nil
}

const selectItem = `SELECT id, name, COALESCE(quantity, ''), grams, category_id FROM food_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *CatalogStore) scanItem(row rowScanner) (*domain.FoodItem, error) {
	item := &domain.FoodItem{}
	var grams sql.NullFloat64
	var categoryID sql.NullInt64
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &grams, &categoryID)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan food item: %w", err)
	}
	if grams.Valid {
		item.Grams = &grams.Float64
	}
	if categoryID.Valid {
		item.CategoryID = &categoryID.Int64
	}
	return item, nil
}
