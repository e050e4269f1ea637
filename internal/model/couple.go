package model

import "time"

// Invite statuses. Pending invites are the only mutable ones; accepted and
// rejected are terminal.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRejected = "rejected"
)

type Invite struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	SentBy      int64      `json:"sent_by"`
	SentToEmail string     `json:"sent_to_email"`
	SentTo      *int64     `json:"sent_to"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
}

type Couple struct {
	ID        int64     `json:"id"`
	MemberA   int64     `json:"member_a"`
	MemberB   int64     `json:"member_b"`
	CreatedAt time.Time `json:"created_at"`
}

// PartnerOf returns the other member's id, or 0 if userID is not a member.
func (c *Couple) PartnerOf(userID int64) int64 {
	switch userID {
	case c.MemberA:
		return c.MemberB
	case c.MemberB:
		return c.MemberA
	}
	return 0
}

// HasMember reports whether userID is one of the two members.
func (c *Couple) HasMember(userID int64) bool {
	return userID == c.MemberA || userID == c.MemberB
}
