package users

import (
	"context"
	"fmt"
	"sync"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// Directory resolves a user id to display and contact data
type Directory interface {
	GetUser(ctx context.Context, userID models.UserID) (models.User, error)
}

// MemoryDirectory is a concurrency-safe in-memory Directory
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[models.UserID]models.User
}

// NewMemoryDirectory creates a directory seeded with users
func NewMemoryDirectory(users ...models.User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[models.UserID]models.User, len(users))}
	for _, u := range users {
		d.users[u.UserID] = u
	}
	return d
}

// GetUser returns the user or ErrUserNotFound
func (d *MemoryDirectory) GetUser(ctx context.Context, userID models.UserID) (models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("get user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return u, nil
}

// AddUser inserts or replaces a user
func (d *MemoryDirectory) AddUser(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.UserID] = u
}
