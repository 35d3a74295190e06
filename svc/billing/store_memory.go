package billing

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ProfileStore for tests and local runs.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryStore creates a MemoryStore seeded with profiles.
func NewMemoryStore(profiles ...Profile) *MemoryStore {
	s := &MemoryStore{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

// Put inserts or replaces a profile, standing in for the signup trigger.
func (s *MemoryStore) Put(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (s *MemoryStore) SetCustomerID(_ context.Context, userID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	switch {
	case !ok:
		return ErrProfileNotFound
	case p.StripeCustomerID == customerID:
		return nil
	case p.StripeCustomerID != "":
		return ErrCustomerAlreadyLinked
	}
	for id, other := range s.profiles {
		if id != userID && other.StripeCustomerID == customerID {
			return ErrCustomerAlreadyLinked
		}
	}
	p.StripeCustomerID = customerID
	s.profiles[userID] = p
	return nil
}

func (s *MemoryStore) ApplySubscription(_ context.Context, u SubscriptionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.profiles {
		if p.StripeCustomerID == "" || p.StripeCustomerID != u.CustomerID {
			continue
		}
		if !p.SubscriptionEventAt.IsZero() && p.SubscriptionEventAt.After(u.EventAt) {
			return ErrStaleEvent
		}
		p.SubscriptionStatus = u.Status
		p.StripeSubscriptionID = u.SubscriptionID
		p.SubscriptionEventAt = u.EventAt
		s.profiles[id] = p
		return nil
	}
	return ErrProfileNotFound
}
