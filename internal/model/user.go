package model

import "time"

type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PhotoURL         string    `json:"photo_url"`
	CoupleID         *int64    `json:"couple_id"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Linked reports whether the user currently belongs to a couple.
func (u *User) Linked() bool {
	return u.CoupleID != nil
}
