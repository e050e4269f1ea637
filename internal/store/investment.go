package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/model"
)

type InvestmentStore struct {
	db *sql.DB
}

func NewInvestmentStore(db *sql.DB) *InvestmentStore {
	return &InvestmentStore{db: db}
}

func scanInvestment(scanner interface{ Scan(...any) error }) (*model.Investment, error) {
	var inv model.Investment
	var quantity, avgPrice string
	err := scanner.Scan(
		&inv.ID, &inv.UserID, &inv.Symbol, &inv.Name, &inv.Kind,
		&quantity, &avgPrice, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if inv.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", quantity, err)
	}
	if inv.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
		return nil, fmt.Errorf("parse avg price %q: %w", avgPrice, err)
	}
	return &inv, nil
}

const investmentCols = `id, user_id, symbol, name, kind, quantity, avg_price, created_at, updated_at`

func (s *InvestmentStore) Create(userID int64, symbol, name, kind string, quantity, avgPrice decimal.Decimal) (*model.Investment, error) {
	result, err := s.db.Exec(
		`INSERT INTO investments (user_id, symbol, name, kind, quantity, avg_price) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, symbol, name, kind, quantity.String(), avgPrice.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert investment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InvestmentStore) GetByID(id int64) (*model.Investment, error) {
	row := s.db.QueryRow(`SELECT `+investmentCols+` FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get investment: %w", err)
	}
	return inv, nil
}

func (s *InvestmentStore) List(userID int64) ([]model.Investment, error) {
	rows, err := s.db.Query(
		`SELECT `+investmentCols+` FROM investments WHERE user_id = ? ORDER BY symbol ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var investments []model.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}
	return investments, rows.Err()
}

func (s *InvestmentStore) Update(id int64, symbol, name, kind string, quantity, avgPrice decimal.Decimal) (*model.Investment, error) {
	_, err := s.db.Exec(
		`UPDATE investments SET symbol = ?, name = ?, kind = ?, quantity = ?, avg_price = ?, updated_at = datetime('now') WHERE id = ?`,
		symbol, name, kind, quantity.String(), avgPrice.String(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update investment: %w", err)
	}
	return s.GetByID(id)
}

func (s *InvestmentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	return nil
}
