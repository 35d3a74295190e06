package billing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrymomot/subsync/pkg/pg"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore keeps profiles in the profiles table. Pass a *sql.DB opened
// over the pgx pool (stdlib.OpenDBFromPool).
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	query := `SELECT id, email, stripe_customer_id, subscription_status, stripe_subscription_id, subscription_event_at
		FROM profiles
		WHERE id = $1`

	var (
		p              Profile
		email          sql.NullString
		customerID     sql.NullString
		status         sql.NullString
		subscriptionID sql.NullString
		eventAt        sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&p.ID, &email, &customerID, &status, &subscriptionID, &eventAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("%w: get profile: %w", ErrStorage, err)
	}

	p.Email = email.String
	p.StripeCustomerID = customerID.String
	p.SubscriptionStatus = Status(status.String)
	p.StripeSubscriptionID = subscriptionID.String
	if eventAt.Valid {
		p.SubscriptionEventAt = eventAt.Time
	}
	return p, nil
}

func (s *PostgresStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE profiles
		SET stripe_customer_id = $2, updated_at = now()
		WHERE id = $1 AND (stripe_customer_id IS NULL OR stripe_customer_id = $2)`

	res, err := s.db.ExecContext(ctx, query, userID, customerID)
	if err != nil {
		// stripe_customer_id is unique: the customer belongs to another profile.
		if pg.IsDuplicateKeyError(err) {
			return ErrCustomerAlreadyLinked
		}
		return fmt.Errorf("%w: set customer id: %w", ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var existing sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT stripe_customer_id FROM profiles WHERE id = $1`, userID).Scan(&existing)
	switch {
	case pg.IsNotFoundError(err):
		return ErrProfileNotFound
	case err != nil:
		return fmt.Errorf("%w: set customer id: %w", ErrStorage, err)
	default:
		return ErrCustomerAlreadyLinked
	}
}

func (s *PostgresStore) ApplySubscription(ctx context.Context, u SubscriptionUpdate) error {
	query := `UPDATE profiles
		SET subscription_status = $2, stripe_subscription_id = $3, subscription_event_at = $4, updated_at = now()
		WHERE stripe_customer_id = $1
		  AND (subscription_event_at IS NULL OR subscription_event_at <= $4)`

	res, err := s.db.ExecContext(ctx, query, u.CustomerID, string(u.Status), u.SubscriptionID, u.EventAt)
	if err != nil {
		return fmt.Errorf("%w: apply subscription: %w", ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var linked bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE stripe_customer_id = $1)`, u.CustomerID).Scan(&linked)
	if err != nil {
		return fmt.Errorf("%w: apply subscription: %w", ErrStorage, err)
	}
	if !linked {
		return ErrProfileNotFound
	}
	return ErrStaleEvent
}
