package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var categoryID sql.NullInt64
	var amount string
	err := scanner.Scan(
		&t.ID, &t.UserID, &categoryID, &t.Kind, &amount,
		&t.Description, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &t, nil
}

const transactionCols = `id, user_id, category_id, kind, amount, description, occurred_at, created_at, updated_at`

func (s *TransactionStore) Create(userID int64, categoryID *int64, kind string, amount decimal.Decimal, description string, occurredAt time.Time) (*model.Transaction, error) {
	var catID sql.NullInt64
	if categoryID != nil {
		catID = sql.NullInt64{Int64: *categoryID, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO transactions (user_id, category_id, kind, amount, description, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, catID, kind, amount.String(), description, occurredAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) GetByID(id int64) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// List returns the user's transactions within [from, to), newest first.
func (s *TransactionStore) List(userID int64, from, to time.Time) ([]model.Transaction, error) {
	return s.listForUsers([]int64{userID}, from, to)
}

// ListForCouple returns both members' transactions within [from, to).
func (s *TransactionStore) ListForCouple(memberA, memberB int64, from, to time.Time) ([]model.Transaction, error) {
	return s.listForUsers([]int64{memberA, memberB}, from, to)
}

func (s *TransactionStore) listForUsers(userIDs []int64, from, to time.Time) ([]model.Transaction, error) {
	query := `SELECT ` + transactionCols + ` FROM transactions WHERE user_id IN (?`
	args := []any{userIDs[0]}
	for _, id := range userIDs[1:] {
		query += `, ?`
		args = append(args, id)
	}
	query += `) AND occurred_at >= ? AND occurred_at < ? ORDER BY occurred_at DESC, id DESC`
	args = append(args, from.UTC(), to.UTC())

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *TransactionStore) Update(id int64, categoryID *int64, kind string, amount decimal.Decimal, description string, occurredAt time.Time) (*model.Transaction, error) {
	var catID sql.NullInt64
	if categoryID != nil {
		catID = sql.NullInt64{Int64: *categoryID, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE transactions SET category_id = ?, kind = ?, amount = ?, description = ?, occurred_at = ?, updated_at = datetime('now') WHERE id = ?`,
		catID, kind, amount.String(), description, occurredAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// MonthSummary aggregates the given users' activity for the month containing
// ref. Totals are decimal sums in Go; sqlite only groups the rows.
func (s *TransactionStore) MonthSummary(userIDs []int64, ref time.Time) (*model.MonthSummary, error) {
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	query := `SELECT t.category_id, COALESCE(c.name, ''), t.kind, t.amount
	 FROM transactions t
	 LEFT JOIN categories c ON c.id = t.category_id
	 WHERE t.user_id IN (?`
	args := []any{userIDs[0]}
	for _, id := range userIDs[1:] {
		query += `, ?`
		args = append(args, id)
	}
	query += `) AND t.occurred_at >= ? AND t.occurred_at < ?`
	args = append(args, from, to)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}
	defer rows.Close()

	summary := &model.MonthSummary{
		Month:    from.Format("2006-01"),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	type key struct {
		id   int64
		name string
		kind string
	}
	totals := make(map[key]decimal.Decimal)
	var order []key

	for rows.Next() {
		var categoryID sql.NullInt64
		var name, kind, amountStr string
		if err := rows.Scan(&categoryID, &name, &kind, &amountStr); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
		}

		if kind == model.KindIncome {
			summary.Income = summary.Income.Add(amount)
		} else {
			summary.Expenses = summary.Expenses.Add(amount)
		}

		k := key{id: categoryID.Int64, name: name, kind: kind}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] = totals[k].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.Balance = summary.Income.Sub(summary.Expenses)
	for _, k := range order {
		ct := model.CategoryTotal{CategoryName: k.name, Kind: k.kind, Total: totals[k]}
		if k.id != 0 {
			id := k.id
			ct.CategoryID = &id
		}
		summary.ByCategory = append(summary.ByCategory, ct)
	}
	return summary, nil
}
