package services

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "session:"

// session is the cached state behind a session token
type session struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthService signs users in and resolves session tokens into identities
type AuthService struct {
	users    repositories.UserRepository
	sessions providers.CacheProvider
	clock    providers.Clock
	ttl      time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repositories.UserRepository,
	sessions providers.CacheProvider,
	clock providers.Clock,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		clock:    clock,
		ttl:      ttl,
	}
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternalError("failed to hash password", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login verifies the credentials of an active user and opens a session
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *entities.User, error) {
	if username == "" || password == "" {
		return "", nil, apperrors.NewValidationError("Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", nil, apperrors.NewUnauthorizedError("Invalid credentials")
		}
		return "", nil, err
	}
	if !user.IsActive || !checkPassword(user.PasswordHash, password) {
		return "", nil, apperrors.NewUnauthorizedError("Invalid credentials")
	}

	now := s.clock.Now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return "", nil, err
	}

	token := uuid.New().String()
	data, err := json.Marshal(session{UserID: user.ID, CreatedAt: now})
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to encode session", err)
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+token, data, s.ttl); err != nil {
		return "", nil, apperrors.NewInternalError("failed to store session", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user logged in")
	return token, user, nil
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionKeyPrefix+token); err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	return nil
}

// Authenticate resolves a session token into the identity of an active user
func (s *AuthService) Authenticate(ctx context.Context, token string) (entities.Identity, *entities.User, error) {
	if token == "" {
		return entities.Identity{}, nil, apperrors.NewUnauthorizedError("Authentication required")
	}

	data, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, providers.ErrCacheMiss) {
			return entities.Identity{}, nil, apperrors.NewUnauthorizedError("Authentication required")
		}
		return entities.Identity{}, nil, apperrors.NewInternalError("failed to load session", err)
	}

	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return entities.Identity{}, nil, apperrors.NewUnauthorizedError("Authentication required")
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = s.sessions.Delete(ctx, sessionKeyPrefix+token)
			return entities.Identity{}, nil, apperrors.NewUnauthorizedError("Authentication required")
		}
		return entities.Identity{}, nil, err
	}
	if !user.IsActive {
		_ = s.sessions.Delete(ctx, sessionKeyPrefix+token)
		return entities.Identity{}, nil, apperrors.NewUnauthorizedError("Authentication required")
	}

	// sessions slide: every authenticated request restarts the TTL
	if err := s.sessions.Touch(ctx, sessionKeyPrefix+token, s.ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh session")
	}
	return entities.IdentityOf(user), user, nil
}

// ChangePassword replaces the password of the signed-in user
func (s *AuthService) ChangePassword(ctx context.Context, actor entities.Identity, current, next string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if current == "" || next == "" {
		return apperrors.NewValidationError("Current password and new password are required")
	}

	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, current) {
		return apperrors.NewValidationError("Current password is incorrect")
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// DefaultUser is an account created on first start
type DefaultUser struct {
	Username string
	Email    string
	Password string
	Role     entities.Role
}

// DefaultUsers are seeded when missing
var DefaultUsers = []DefaultUser{
	{Username: "admin", Email: "admin@clinic.com", Password: "admin123", Role: entities.RoleAdmin},
	{Username: "user", Email: "user@clinic.com", Password: "user123", Role: entities.RoleUser},
}

// SeedDefaultUsers creates the default accounts that do not exist yet and
// returns how many were created
func (s *AuthService) SeedDefaultUsers(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	created := 0

	for _, def := range DefaultUsers {
		_, err := s.users.GetByUsername(ctx, def.Username)
		if err == nil {
			continue
		}
		if !apperrors.IsNotFound(err) {
			return created, err
		}

		hash, err := HashPassword(def.Password)
		if err != nil {
			return created, err
		}
		user := &entities.User{
			ID:           uuid.New().String(),
			Username:     def.Username,
			Email:        def.Email,
			PasswordHash: hash,
			Role:         def.Role,
			IsActive:     true,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return created, err
		}
		created++
		logger.Info().Str("username", def.Username).Str("role", string(def.Role)).Msg("default user created")
	}
	return created, nil
}
