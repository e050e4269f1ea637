package store

import (
	"database/sql"
	"fmt"

	"github.com/luminapp/lumina/internal/model"
)

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func scanCategory(scanner interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	err := scanner.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const categoryCols = `id, user_id, name, kind, sort_order, created_at, updated_at`

func (s *CategoryStore) Create(userID int64, name, kind string, sortOrder int) (*model.Category, error) {
	result, err := s.db.Exec(
		`INSERT INTO categories (user_id, name, kind, sort_order) VALUES (?, ?, ?, ?)`,
		userID, name, kind, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) GetByID(id int64) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryStore) List(userID int64) ([]model.Category, error) {
	rows, err := s.db.Query(
		`SELECT `+categoryCols+` FROM categories WHERE user_id = ? ORDER BY sort_order ASC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) Update(id int64, name, kind string, sortOrder int) (*model.Category, error) {
	_, err := s.db.Exec(
		`UPDATE categories SET name = ?, kind = ?, sort_order = ?, updated_at = datetime('now') WHERE id = ?`,
		name, kind, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// NameExists reports whether the user already has a category with this name,
// excluding the given id (0 to exclude nothing).
func (s *CategoryStore) NameExists(userID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ? AND id != ?`,
		userID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

// SeedDefaults inserts the default category set for a new user in a single
// transaction.
func (s *CategoryStore) SeedDefaults(userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	defaults := []struct {
		name      string
		kind      string
		sortOrder int
	}{
		{"Housing", model.KindExpense, 1},
		{"Groceries", model.KindExpense, 2},
		{"Transport", model.KindExpense, 3},
		{"Dining Out", model.KindExpense, 4},
		{"Health", model.KindExpense, 5},
		{"Entertainment", model.KindExpense, 6},
		{"Education", model.KindExpense, 7},
		{"Subscriptions", model.KindExpense, 8},
		{"Other", model.KindExpense, 9},
		{"Salary", model.KindIncome, 10},
		{"Investments", model.KindIncome, 11},
		{"Other Income", model.KindIncome, 12},
	}
	for _, d := range defaults {
		if _, err := tx.Exec(
			`INSERT INTO categories (user_id, name, kind, sort_order) VALUES (?, ?, ?, ?)`,
			userID, d.name, d.kind, d.sortOrder,
		); err != nil {
			return fmt.Errorf("seed category %q: %w", d.name, err)
		}
	}

	return tx.Commit()
}
