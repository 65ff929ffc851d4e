package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used when a database is not configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   []User
	designs []DesignRecord
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make([]User, 0),
		designs: make([]DesignRecord, 0),
	}
}

// CreateUser appends a user unless the email is already taken.
func (s *InMemoryStore) CreateUser(_ context.Context, input User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, input.Email) {
			return User{}, ErrUserExists
		}
	}

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if input.Plan == "" {
		input.Plan = "free"
		input.GenerationsLimit = 10
	}

	s.users = append(s.users, input)
	return input, nil
}

// GetUserByEmail returns the user registered under the given email.
func (s *InMemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// GetUserByID returns a user by ID.
func (s *InMemoryStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// ListUsers returns a snapshot of all accounts.
func (s *InMemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]User, len(s.users))
	copy(snapshot, s.users)
	return snapshot, nil
}

// UpdateUserPlan switches the subscription plan and its generation ceiling.
func (s *InMemoryStore) UpdateUserPlan(_ context.Context, id, plan string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, u := range s.users {
		if u.ID == id {
			s.users[idx].Plan = plan
			s.users[idx].GenerationsLimit = limit
			return nil
		}
	}
	return ErrNotFound
}

// ResetUsage zeroes the monthly generation counter.
func (s *InMemoryStore) ResetUsage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, u := range s.users {
		if u.ID == id {
			s.users[idx].GenerationsUsed = 0
			return nil
		}
	}
	return ErrNotFound
}

// IncrementUsage bumps the monthly generation counter by one.
func (s *InMemoryStore) IncrementUsage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, u := range s.users {
		if u.ID == id {
			s.users[idx].GenerationsUsed++
			return nil
		}
	}
	return ErrNotFound
}

// SaveDesign prepends a design record to the in-memory slice.
func (s *InMemoryStore) SaveDesign(_ context.Context, input DesignRecord) (DesignRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if input.ChatHistory == nil {
		input.ChatHistory = []ChatMessage{}
	}
	if input.FurnitureItems == nil {
		input.FurnitureItems = []FurnitureItem{}
	}

	s.designs = append([]DesignRecord{input}, s.designs...)
	return input, nil
}

// GetDesign returns a design record by ID.
func (s *InMemoryStore) GetDesign(_ context.Context, id string) (DesignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.designs {
		if d.ID == id {
			return d, nil
		}
	}
	return DesignRecord{}, ErrNotFound
}

// ListDesigns returns the designs belonging to one owner, newest first.
func (s *InMemoryStore) ListDesigns(_ context.Context, ownerID string) ([]DesignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]DesignRecord, 0)
	for _, d := range s.designs {
		if d.OwnerID == ownerID {
			results = append(results, d)
		}
	}
	return results, nil
}

// ListPublished returns all gallery-visible designs, newest first.
func (s *InMemoryStore) ListPublished(_ context.Context) ([]DesignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]DesignRecord, 0)
	for _, d := range s.designs {
		if d.Published {
			results = append(results, d)
		}
	}
	return results, nil
}

// PublishDesign flags a design as visible in the public gallery.
func (s *InMemoryStore) PublishDesign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, d := range s.designs {
		if d.ID == id {
			s.designs[idx].Published = true
			return nil
		}
	}
	return ErrNotFound
}

// LikeDesign bumps the like counter.
func (s *InMemoryStore) LikeDesign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, d := range s.designs {
		if d.ID == id {
			s.designs[idx].LikeCount++
			return nil
		}
	}
	return ErrNotFound
}

// AddView bumps the view counter.
func (s *InMemoryStore) AddView(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, d := range s.designs {
		if d.ID == id {
			s.designs[idx].ViewCount++
			return nil
		}
	}
	return ErrNotFound
}

// DeleteDesign removes a design by ID.
func (s *InMemoryStore) DeleteDesign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, d := range s.designs {
		if d.ID == id {
			s.designs = append(s.designs[:idx], s.designs[idx+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
