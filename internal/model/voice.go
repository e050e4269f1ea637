package model

import "time"

// VoiceLink stores the PIN that gates voice-assistant account linking.
type VoiceLink struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	PINHash   string     `json:"-"`
	LinkedAt  *time.Time `json:"linked_at"`
	CreatedAt time.Time  `json:"created_at"`
}
