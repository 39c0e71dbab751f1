package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/cache"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/memory"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

type authFixture struct {
	users    *memory.UserStore
	sessions *cache.MemoryAdapter
	auth     *services.AuthService
	accounts *services.UserService
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{users: memory.NewUserStore(), now: clinicDay}
	f.sessions = cache.NewMemoryAdapterWithClock(func() time.Time { return f.now })
	clock := providers.FixedClock{At: clinicDay}
	f.auth = services.NewAuthService(f.users, f.sessions, clock, time.Hour)
	f.accounts = services.NewUserService(f.users, clock)

	created, err := f.auth.SeedDefaultUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, created)
	return f
}

func TestAuthService_SeedDefaultUsersIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)

	created, err := f.auth.SeedDefaultUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)

	admin, err := f.users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, admin.Role)
	assert.NotEqual(t, "admin123", admin.PasswordHash)
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	token, user, err := f.auth.Login(ctx, "user", "user123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user.LastLogin)
	assert.True(t, clinicDay.Equal(*user.LastLogin))

	identity, _, err := f.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleUser, identity.Role)
	assert.True(t, identity.Authenticated())
	assert.False(t, identity.IsAdmin())

	require.NoError(t, f.auth.Logout(ctx, token))
	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, _, err := f.auth.Login(ctx, "", "")
	assert.True(t, apperrors.IsValidation(err))

	_, _, err = f.auth.Login(ctx, "user", "wrong")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	_, _, err = f.auth.Login(ctx, "ghost", "user123")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	user, err := f.users.GetByUsername(ctx, "user")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, f.users.Update(ctx, user))

	_, _, err = f.auth.Login(ctx, "user", "user123")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestAuthService_SessionExpiresAndDeactivation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	token, user, err := f.auth.Login(ctx, "user", "user123")
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, f.users.Update(ctx, user))
	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized), "deactivated users lose their sessions")

	token, _, err = f.auth.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)
	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestAuthService_SessionsSlide(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	token, _, err := f.auth.Login(ctx, "user", "user123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.now = f.now.Add(50 * time.Minute)
		_, _, err = f.auth.Authenticate(ctx, token)
		require.NoError(t, err, "active sessions outlive the TTL")
	}

	f.now = f.now.Add(61 * time.Minute)
	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, user, err := f.auth.Login(ctx, "user", "user123")
	require.NoError(t, err)
	actor := entities.IdentityOf(user)

	err = f.auth.ChangePassword(ctx, actor, "nope", "better-pass")
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, f.auth.ChangePassword(ctx, actor, "user123", "better-pass"))

	_, _, err = f.auth.Login(ctx, "user", "user123")
	assert.Error(t, err)
	_, _, err = f.auth.Login(ctx, "user", "better-pass")
	assert.NoError(t, err)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.accounts.List(ctx, staff)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	_, err = f.accounts.List(ctx, anonymous)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	nurse, err := f.accounts.Create(ctx, admin, services.CreateUserRequest{
		Username: "nurse",
		Email:    "nurse@clinic.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleUser, nurse.Role)
	assert.True(t, nurse.IsActive)

	_, err = f.accounts.Create(ctx, admin, services.CreateUserRequest{Username: "nurse", Email: "other@clinic.com", Password: "secret1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	_, err = f.accounts.Create(ctx, admin, services.CreateUserRequest{Username: "x", Email: "not-an-email", Password: "secret1", Role: "root"})
	require.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "role must be admin or user")

	long := strings.Repeat("n", 81)
	_, err = f.accounts.Update(ctx, admin, nurse.ID, services.UpdateUserRequest{Username: &long})
	assert.True(t, apperrors.IsValidation(err))

	role := "admin"
	promoted, err := f.accounts.Update(ctx, admin, nurse.ID, services.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, promoted.Role)

	users, err := f.accounts.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestUserService_KeepsLastAdmin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	seeded, err := f.users.GetByUsername(ctx, "admin")
	require.NoError(t, err)

	err = f.accounts.Delete(ctx, admin, seeded.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	plain, err := f.users.GetByUsername(ctx, "user")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Delete(ctx, admin, plain.ID))
	assert.True(t, apperrors.IsNotFound(f.accounts.Delete(ctx, admin, plain.ID)))
}

func TestClinicConfigService(t *testing.T) {
	ctx := context.Background()
	svc := services.NewClinicConfigService(memory.NewClinicConfigStore(), providers.FixedClock{At: clinicDay})

	cfg, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultDoctorName, cfg.DoctorName)

	again, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID, "the default is created once")

	name := "  Little Steps Clinic "
	_, err = svc.Update(ctx, staff, services.ClinicConfigUpdate{ClinicName: &name})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	updated, err := svc.Update(ctx, admin, services.ClinicConfigUpdate{ClinicName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Little Steps Clinic", updated.ClinicName)
	assert.Equal(t, entities.DefaultClinicPhone, updated.ClinicPhone)

	phone := strings.Repeat("0", 51)
	_, err = svc.Update(ctx, admin, services.ClinicConfigUpdate{ClinicName: &name, ClinicPhone: &phone})
	require.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "clinic_phone must be at most 50 characters")

	current, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultClinicPhone, current.ClinicPhone)
}
