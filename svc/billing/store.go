package billing

import "context"

// ProfileStore persists profiles. Profiles are created outside this service
// when the user signs up; the store only reads and updates them.
type ProfileStore interface {
	// GetProfile returns ErrProfileNotFound when no profile has userID.
	GetProfile(ctx context.Context, userID string) (Profile, error)

	// SetCustomerID links the profile to customerID if it has no customer
	// yet. Re-linking the same id is a no-op; a different existing id yields
	// ErrCustomerAlreadyLinked.
	SetCustomerID(ctx context.Context, userID, customerID string) error

	// ApplySubscription overwrites status and subscription id on the profile
	// linked to u.CustomerID. It returns ErrProfileNotFound when no profile is
	// linked yet and ErrStaleEvent when a newer event was already applied.
	ApplySubscription(ctx context.Context, u SubscriptionUpdate) error
}
