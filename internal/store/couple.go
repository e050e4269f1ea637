package store

import (
	"database/sql"
	"fmt"

	"github.com/luminapp/lumina/internal/model"
)

// CoupleStore reads couple rows. Creation and deletion happen inside the
// couple service's transactions so the member invariants hold.
type CoupleStore struct {
	db *sql.DB
}

func NewCoupleStore(db *sql.DB) *CoupleStore {
	return &CoupleStore{db: db}
}

func scanCouple(scanner interface{ Scan(...any) error }) (*model.Couple, error) {
	var c model.Couple
	err := scanner.Scan(&c.ID, &c.MemberA, &c.MemberB, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const coupleCols = `id, member_a, member_b, created_at`

func (s *CoupleStore) GetByID(id int64) (*model.Couple, error) {
	row := s.db.QueryRow(`SELECT `+coupleCols+` FROM couples WHERE id = ?`, id)
	c, err := scanCouple(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get couple: %w", err)
	}
	return c, nil
}

// GetForUser returns the couple the user belongs to, or nil when unlinked.
func (s *CoupleStore) GetForUser(userID int64) (*model.Couple, error) {
	row := s.db.QueryRow(
		`SELECT c.id, c.member_a, c.member_b, c.created_at
		 FROM couples c
		 JOIN users u ON u.couple_id = c.id
		 WHERE u.id = ?`,
		userID,
	)
	c, err := scanCouple(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get couple for user: %w", err)
	}
	return c, nil
}
