package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// UserStore implements the UserRepository interface in memory
type UserStore struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

// NewUserStore creates an empty user store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]entities.User)}
}

var _ repositories.UserRepository = (*UserStore)(nil)

// Create creates a new user. Username and email are unique.
func (s *UserStore) Create(ctx context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(user); err != nil {
		return err
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	return &u, nil
}

// GetByUsername retrieves a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return s.find(func(u entities.User) bool { return u.Username == username }, fmt.Sprintf("user %s not found", username))
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return s.find(func(u entities.User) bool { return strings.EqualFold(u.Email, email) }, fmt.Sprintf("user with email %s not found", email))
}

// List retrieves all users ordered by creation time
func (s *UserStore) List(ctx context.Context) ([]*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*entities.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// CountActiveAdmins counts admins that can still sign in
func (s *UserStore) CountActiveAdmins(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, u := range s.users {
		if u.Role == entities.RoleAdmin && u.IsActive {
			count++
		}
	}
	return count, nil
}

// Update updates a user
func (s *UserStore) Update(ctx context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", user.ID))
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

// Delete deletes a user
func (s *UserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) find(pred func(entities.User) bool, notFound string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if pred(u) {
			u := u
			return &u, nil
		}
	}
	return nil, apperrors.NewNotFoundError(notFound)
}

func (s *UserStore) checkUnique(user *entities.User) error {
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return apperrors.NewConflictError("username or email already exists")
		}
	}
	return nil
}

func copyUser(user *entities.User) entities.User {
	u := *user
	if user.LastLogin != nil {
		t := *user.LastLogin
		u.LastLogin = &t
	}
	return u
}
