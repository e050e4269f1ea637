package store

import (
	"database/sql"
	"fmt"

	"github.com/luminapp/lumina/internal/model"
)

// InviteStore reads invite rows. All writes that affect the pairing
// invariants go through the couple service's transactions; this store only
// exposes the read side plus simple single-row lookups.
type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.Invite, error) {
	var inv model.Invite
	var sentTo sql.NullInt64
	var acceptedAt, rejectedAt sql.NullTime
	err := scanner.Scan(
		&inv.ID, &inv.Token, &inv.SentBy, &inv.SentToEmail, &sentTo,
		&inv.Status, &inv.CreatedAt, &acceptedAt, &rejectedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentTo.Valid {
		inv.SentTo = &sentTo.Int64
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	if rejectedAt.Valid {
		inv.RejectedAt = &rejectedAt.Time
	}
	return &inv, nil
}

const inviteCols = `id, token, sent_by, sent_to_email, sent_to, status, created_at, accepted_at, rejected_at`

func (s *InviteStore) GetByID(id int64) (*model.Invite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM invites WHERE id = ?`, id)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

func (s *InviteStore) GetByToken(token string) (*model.Invite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM invites WHERE token = ?`, token)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite by token: %w", err)
	}
	return inv, nil
}

// ListPendingForUser returns pending invites addressed to the user, matched
// by resolved recipient id or by the user's email.
func (s *InviteStore) ListPendingForUser(userID int64, email string) ([]model.Invite, error) {
	rows, err := s.db.Query(
		`SELECT `+inviteCols+` FROM invites
		 WHERE status = 'pending' AND (sent_to = ? OR sent_to_email = ?)
		 ORDER BY created_at DESC`,
		userID, email,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	defer rows.Close()

	var invites []model.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// ListSentBy returns all invites the user has sent, newest first.
func (s *InviteStore) ListSentBy(userID int64) ([]model.Invite, error) {
	rows, err := s.db.Query(
		`SELECT `+inviteCols+` FROM invites WHERE sent_by = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sent invites: %w", err)
	}
	defer rows.Close()

	var invites []model.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}
