// Package couple implements the pairing protocol between two user accounts:
// invite, accept/reject, active link, disconnect. Every operation runs its
// precondition checks and writes inside a single database transaction, so
// concurrent callers observe either all of an operation's effects or none.
package couple

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/model"
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Notifier delivers invite emails. Delivery is best-effort: a notifier
// failure never fails the operation that triggered it.
type Notifier interface {
	SendCoupleInvite(toEmail, inviterName, token string) error
}

type Service struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
}

func NewService(db *sql.DB, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{db: db, notifier: notifier, logger: logger}
}

// SendInvite creates a pending invite from sender to partnerEmail. The
// recipient is resolved to an account when one exists; the invite is valid
// either way since it is addressed by email. The invite email is sent after
// commit and its failure is only logged.
func (s *Service) SendInvite(ctx context.Context, senderID int64, partnerEmail string) (*model.Invite, error) {
	partnerEmail = strings.ToLower(strings.TrimSpace(partnerEmail))
	if !emailRegexp.MatchString(partnerEmail) {
		return nil, apperr.Newf(apperr.InvalidArgument, "invalid email %q", partnerEmail)
	}

	var invite *model.Invite
	var sender *model.User
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var err error
		sender, err = getUser(tx, senderID)
		if err != nil {
			return err
		}
		if sender == nil {
			return apperr.New(apperr.NotFound, "sender account not found")
		}
		if strings.EqualFold(sender.Email, partnerEmail) {
			return apperr.New(apperr.InvalidArgument, "cannot invite yourself")
		}
		if sender.CoupleID != nil {
			return apperr.New(apperr.AlreadyLinked, "sender already has a partner")
		}

		recipient, err := getUserByEmail(tx, partnerEmail)
		if err != nil {
			return err
		}
		if recipient != nil && recipient.CoupleID != nil {
			return apperr.New(apperr.AlreadyLinked, "recipient already has a partner")
		}

		var sentTo sql.NullInt64
		if recipient != nil {
			sentTo = sql.NullInt64{Int64: recipient.ID, Valid: true}
		}
		token := uuid.NewString()
		result, err := tx.Exec(
			`INSERT INTO invites (token, sent_by, sent_to_email, sent_to) VALUES (?, ?, ?, ?)`,
			token, senderID, partnerEmail, sentTo,
		)
		if err != nil {
			return fmt.Errorf("insert invite: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		invite, err = getInvite(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendCoupleInvite(partnerEmail, sender.Name, invite.Token); err != nil {
			s.logger.Warn("invite email failed", "invite_id", invite.ID, "error", err)
		}
	}
	return invite, nil
}

// AcceptInvite links the invite's sender and the acting user. In one
// transaction it creates the couple, points both accounts at it, marks the
// invite accepted, and rejects every other pending invite addressed to the
// acting user.
func (s *Service) AcceptInvite(ctx context.Context, inviteID, actingUserID int64) (*model.Couple, error) {
	var couple *model.Couple
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		invite, err := getInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite == nil {
			return apperr.New(apperr.NotFound, "invite not found")
		}
		if invite.Status != model.InviteStatusPending {
			return apperr.Newf(apperr.Conflict, "invite already %s", invite.Status)
		}

		acting, err := getUser(tx, actingUserID)
		if err != nil {
			return err
		}
		if acting == nil {
			return apperr.New(apperr.NotFound, "account not found")
		}
		if invite.SentTo != nil {
			if *invite.SentTo != actingUserID {
				return apperr.New(apperr.Unauthorized, "invite addressed to another account")
			}
		} else if !strings.EqualFold(acting.Email, invite.SentToEmail) {
			return apperr.New(apperr.Unauthorized, "invite addressed to another email")
		}

		sender, err := getUser(tx, invite.SentBy)
		if err != nil {
			return err
		}
		if sender == nil {
			return apperr.New(apperr.NotFound, "inviter account no longer exists")
		}
		if sender.ID == acting.ID {
			return apperr.New(apperr.InvalidArgument, "cannot accept your own invite")
		}
		if acting.CoupleID != nil {
			return apperr.New(apperr.AlreadyLinked, "you already have a partner")
		}
		if sender.CoupleID != nil {
			return apperr.New(apperr.AlreadyLinked, "inviter already has a partner")
		}

		result, err := tx.Exec(
			`INSERT INTO couples (member_a, member_b) VALUES (?, ?)`,
			sender.ID, acting.ID,
		)
		if err != nil {
			return fmt.Errorf("insert couple: %w", err)
		}
		coupleID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		if _, err := tx.Exec(
			`UPDATE users SET couple_id = ?, updated_at = datetime('now') WHERE id IN (?, ?)`,
			coupleID, sender.ID, acting.ID,
		); err != nil {
			return fmt.Errorf("link accounts: %w", err)
		}

		if _, err := tx.Exec(
			`UPDATE invites SET status = 'accepted', accepted_at = datetime('now') WHERE id = ?`,
			invite.ID,
		); err != nil {
			return fmt.Errorf("accept invite: %w", err)
		}

		// Every other pending invite addressed to the acting user is now moot.
		if _, err := tx.Exec(
			`UPDATE invites SET status = 'rejected', rejected_at = datetime('now')
			 WHERE status = 'pending' AND id != ? AND (sent_to = ? OR sent_to_email = ?)`,
			invite.ID, acting.ID, acting.Email,
		); err != nil {
			return fmt.Errorf("reject competing invites: %w", err)
		}

		couple, err = getCouple(tx, coupleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("couple linked", "couple_id", couple.ID, "member_a", couple.MemberA, "member_b", couple.MemberB)
	return couple, nil
}

// RejectInvite marks a pending invite rejected. Either the sender or the
// intended recipient may reject; nothing else changes.
func (s *Service) RejectInvite(ctx context.Context, inviteID, actingUserID int64) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		invite, err := getInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite == nil {
			return apperr.New(apperr.NotFound, "invite not found")
		}
		if invite.Status != model.InviteStatusPending {
			return apperr.Newf(apperr.Conflict, "invite already %s", invite.Status)
		}

		acting, err := getUser(tx, actingUserID)
		if err != nil {
			return err
		}
		if acting == nil {
			return apperr.New(apperr.NotFound, "account not found")
		}
		allowed := invite.SentBy == actingUserID ||
			(invite.SentTo != nil && *invite.SentTo == actingUserID) ||
			strings.EqualFold(acting.Email, invite.SentToEmail)
		if !allowed {
			return apperr.New(apperr.Unauthorized, "not a party to this invite")
		}

		if _, err := tx.Exec(
			`UPDATE invites SET status = 'rejected', rejected_at = datetime('now') WHERE id = ?`,
			invite.ID,
		); err != nil {
			return fmt.Errorf("reject invite: %w", err)
		}
		return nil
	})
}

// Disconnect dissolves the caller's couple: both accounts are unlinked and
// the couple row is deleted in one transaction. A second call fails with
// not_linked.
func (s *Service) Disconnect(ctx context.Context, userID int64) error {
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.New(apperr.NotFound, "account not found")
		}
		if user.CoupleID == nil {
			return apperr.New(apperr.NotLinked, "no active partner")
		}

		couple, err := getCouple(tx, *user.CoupleID)
		if err != nil {
			return err
		}
		if couple == nil {
			return apperr.Newf(apperr.Internal, "couple %d referenced but missing", *user.CoupleID)
		}

		if _, err := tx.Exec(
			`UPDATE users SET couple_id = NULL, updated_at = datetime('now') WHERE id IN (?, ?)`,
			couple.MemberA, couple.MemberB,
		); err != nil {
			return fmt.Errorf("unlink accounts: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE goals SET couple_id = NULL, updated_at = datetime('now') WHERE couple_id = ?`,
			couple.ID,
		); err != nil {
			return fmt.Errorf("unshare goals: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM couples WHERE id = ?`, couple.ID); err != nil {
			return fmt.Errorf("delete couple: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("couple disconnected", "user_id", userID)
	return nil
}

// runTx executes fn inside a transaction, retrying the whole transaction a
// bounded number of times when sqlite reports a busy/locked conflict.
// Exhausted retries surface as a conflict error the caller may retry.
func (s *Service) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.attemptTx(ctx, fn)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if isBusy(err) {
		return apperr.Wrap(apperr.Conflict, "store busy, retry later", err)
	}
	return err
}

func (s *Service) attemptTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func getUser(tx *sql.Tx, id int64) (*model.User, error) {
	row := tx.QueryRow(
		`SELECT id, email, name, photo_url, couple_id, stripe_customer_id, created_at, updated_at FROM users WHERE id = ?`,
		id,
	)
	return scanTxUser(row)
}

func getUserByEmail(tx *sql.Tx, email string) (*model.User, error) {
	row := tx.QueryRow(
		`SELECT id, email, name, photo_url, couple_id, stripe_customer_id, created_at, updated_at FROM users WHERE email = ?`,
		email,
	)
	return scanTxUser(row)
}

func scanTxUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var coupleID sql.NullInt64
	var stripeID sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PhotoURL, &coupleID, &stripeID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if coupleID.Valid {
		u.CoupleID = &coupleID.Int64
	}
	if stripeID.Valid {
		u.StripeCustomerID = &stripeID.String
	}
	return &u, nil
}

func getInvite(tx *sql.Tx, id int64) (*model.Invite, error) {
	row := tx.QueryRow(
		`SELECT id, token, sent_by, sent_to_email, sent_to, status, created_at, accepted_at, rejected_at FROM invites WHERE id = ?`,
		id,
	)
	var inv model.Invite
	var sentTo sql.NullInt64
	var acceptedAt, rejectedAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.Token, &inv.SentBy, &inv.SentToEmail, &sentTo,
		&inv.Status, &inv.CreatedAt, &acceptedAt, &rejectedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan invite: %w", err)
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

func getCouple(tx *sql.Tx, id int64) (*model.Couple, error) {
	row := tx.QueryRow(`SELECT id, member_a, member_b, created_at FROM couples WHERE id = ?`, id)
	var c model.Couple
	err := row.Scan(&c.ID, &c.MemberA, &c.MemberB, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan couple: %w", err)
	}
	return &c, nil
}
