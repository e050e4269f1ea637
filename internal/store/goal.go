package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var coupleID sql.NullInt64
	var dueDate sql.NullTime
	var target, saved string
	err := scanner.Scan(
		&g.ID, &g.UserID, &coupleID, &g.Name, &target, &saved,
		&dueDate, &g.Status, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if coupleID.Valid {
		g.CoupleID = &coupleID.Int64
	}
	if dueDate.Valid {
		g.DueDate = &dueDate.Time
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse target amount %q: %w", target, err)
	}
	if g.SavedAmount, err = decimal.NewFromString(saved); err != nil {
		return nil, fmt.Errorf("parse saved amount %q: %w", saved, err)
	}
	return &g, nil
}

const goalCols = `id, user_id, couple_id, name, target_amount, saved_amount, due_date, status, created_at, updated_at`

func (s *GoalStore) Create(userID int64, name string, target decimal.Decimal, dueDate *time.Time) (*model.Goal, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO goals (user_id, name, target_amount, due_date) VALUES (?, ?, ?, ?)`,
		userID, name, target.String(), due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *GoalStore) GetByID(id int64) (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListVisible returns the user's own goals plus goals shared with their
// couple, active first.
func (s *GoalStore) ListVisible(userID int64, coupleID *int64) ([]model.Goal, error) {
	var rows *sql.Rows
	var err error
	if coupleID != nil {
		rows, err = s.db.Query(
			`SELECT `+goalCols+` FROM goals WHERE user_id = ? OR couple_id = ?
			 ORDER BY status = 'active' DESC, created_at DESC`,
			userID, *coupleID,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT `+goalCols+` FROM goals WHERE user_id = ?
			 ORDER BY status = 'active' DESC, created_at DESC`,
			userID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *GoalStore) Update(id int64, name string, target decimal.Decimal, dueDate *time.Time, status string) (*model.Goal, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE goals SET name = ?, target_amount = ?, due_date = ?, status = ?, updated_at = datetime('now') WHERE id = ?`,
		name, target.String(), due, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return s.GetByID(id)
}

// Contribute adds amount to the goal's saved total and flips the status to
// completed once the target is reached.
func (s *GoalStore) Contribute(id int64, amount decimal.Decimal) (*model.Goal, error) {
	g, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	saved := g.SavedAmount.Add(amount)
	status := g.Status
	if status == model.GoalStatusActive && saved.GreaterThanOrEqual(g.TargetAmount) {
		status = model.GoalStatusCompleted
	}

	_, err = s.db.Exec(
		`UPDATE goals SET saved_amount = ?, status = ?, updated_at = datetime('now') WHERE id = ?`,
		saved.String(), status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("contribute to goal: %w", err)
	}
	return s.GetByID(id)
}

// Share marks the goal as shared with the given couple.
func (s *GoalStore) Share(id, coupleID int64) (*model.Goal, error) {
	_, err := s.db.Exec(
		`UPDATE goals SET couple_id = ?, updated_at = datetime('now') WHERE id = ?`,
		coupleID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("share goal: %w", err)
	}
	return s.GetByID(id)
}

// UnshareForCouple detaches every goal shared with the couple. Called when
// a couple disconnects; goals revert to their owner.
func (s *GoalStore) UnshareForCouple(coupleID int64) error {
	_, err := s.db.Exec(
		`UPDATE goals SET couple_id = NULL, updated_at = datetime('now') WHERE couple_id = ?`,
		coupleID,
	)
	if err != nil {
		return fmt.Errorf("unshare goals for couple: %w", err)
	}
	return nil
}

func (s *GoalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
