package store

import (
	"database/sql"
	"fmt"

	"github.com/luminapp/lumina/internal/model"
)

type VoiceLinkStore struct {
	db *sql.DB
}

func NewVoiceLinkStore(db *sql.DB) *VoiceLinkStore {
	return &VoiceLinkStore{db: db}
}

func scanVoiceLink(scanner interface{ Scan(...any) error }) (*model.VoiceLink, error) {
	var vl model.VoiceLink
	var linkedAt sql.NullTime
	err := scanner.Scan(&vl.ID, &vl.UserID, &vl.PINHash, &linkedAt, &vl.CreatedAt)
	if err != nil {
		return nil, err
	}
	if linkedAt.Valid {
		vl.LinkedAt = &linkedAt.Time
	}
	return &vl, nil
}

const voiceLinkCols = `id, user_id, pin_hash, linked_at, created_at`

// SetPIN creates or replaces the voice-linking PIN for a user.
func (s *VoiceLinkStore) SetPIN(userID int64, pinHash string) (*model.VoiceLink, error) {
	_, err := s.db.Exec(
		`INSERT INTO voice_links (user_id, pin_hash) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET pin_hash = excluded.pin_hash`,
		userID, pinHash,
	)
	if err != nil {
		return nil, fmt.Errorf("set voice pin: %w", err)
	}
	return s.GetByUserID(userID)
}

func (s *VoiceLinkStore) GetByUserID(userID int64) (*model.VoiceLink, error) {
	row := s.db.QueryRow(`SELECT `+voiceLinkCols+` FROM voice_links WHERE user_id = ?`, userID)
	vl, err := scanVoiceLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voice link: %w", err)
	}
	return vl, nil
}

// MarkLinked records a successful account-link handshake.
func (s *VoiceLinkStore) MarkLinked(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE voice_links SET linked_at = datetime('now') WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark voice link: %w", err)
	}
	return nil
}

func (s *VoiceLinkStore) Delete(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM voice_links WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete voice link: %w", err)
	}
	return nil
}
