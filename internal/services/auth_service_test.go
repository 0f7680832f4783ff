package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// staleEmailLookup misses every email, as a lookup racing a concurrent
// registration would.
type staleEmailLookup struct {
	repository.UserRepository
}

func (staleEmailLookup) FindByEmail(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := testutil.NewDB(t)
	s := NewAuthService(repository.NewUserRepository(db))
	s.hashCost = bcrypt.MinCost
	return s
}

func TestRegister(t *testing.T) {
	s := newAuthService(t)

	user, err := s.Register(RegisterInput{Name: " Alice ", Email: " A@X.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.NotEmpty(t, user.ID)

	_, err = s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Register(RegisterInput{Name: "Bob", Email: "", Password: "pw"})
	assert.ErrorIs(t, err, ErrAllFieldsRequired)
}

func TestRegister_DuplicateCaughtByUniqueIndex(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "Alice", "a@x.com")

	s := NewAuthService(staleEmailLookup{repository.NewUserRepository(db)})
	s.hashCost = bcrypt.MinCost

	_, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw1"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	s := newAuthService(t)

	_, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: strings.Repeat("p", 80)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	user, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: strings.Repeat("p", 72)})
	require.NoError(t, err)

	_, err = s.UpdateProfile(user.ID, UpdateProfileInput{Password: strings.Repeat("q", 73), CurrentPassword: strings.Repeat("p", 72)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestLogin(t *testing.T) {
	s := newAuthService(t)
	registered, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = s.Login(LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(LoginInput{Email: "nobody@x.com", Password: "pw1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := s.Login(LoginInput{Email: "A@X.COM", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestGetUserAndListUsers(t *testing.T) {
	s := newAuthService(t)
	_, err := s.Register(RegisterInput{Name: "Zed", Email: "z@x.com", Password: "pw"})
	require.NoError(t, err)
	alice, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	user, err := s.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = s.GetUser("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := s.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Equal(t, "Zed", users[1].Name)
}

func TestUpdateProfile(t *testing.T) {
	s := newAuthService(t)
	alice, err := s.Register(RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	_, err = s.Register(RegisterInput{Name: "Bob", Email: "b@x.com", Password: "pw2"})
	require.NoError(t, err)

	t.Run("name only needs no password", func(t *testing.T) {
		user, err := s.UpdateProfile(alice.ID, UpdateProfileInput{Name: "Alicia"})
		require.NoError(t, err)
		assert.Equal(t, "Alicia", user.Name)
	})

	t.Run("email without current password", func(t *testing.T) {
		_, err := s.UpdateProfile(alice.ID, UpdateProfileInput{Email: "new@x.com"})
		assert.ErrorIs(t, err, ErrCurrentPasswordRequired)
	})

	t.Run("wrong current password", func(t *testing.T) {
		_, err := s.UpdateProfile(alice.ID, UpdateProfileInput{Password: "pw9", CurrentPassword: "nope"})
		assert.ErrorIs(t, err, ErrCurrentPasswordIncorrect)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		_, err := s.UpdateProfile(alice.ID, UpdateProfileInput{Email: "B@x.com", CurrentPassword: "pw1"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("email taken at write time", func(t *testing.T) {
		stale := NewAuthService(staleEmailLookup{s.userRepo})
		stale.hashCost = bcrypt.MinCost
		_, err := stale.UpdateProfile(alice.ID, UpdateProfileInput{Email: "b@x.com", CurrentPassword: "pw1"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("email and password change", func(t *testing.T) {
		user, err := s.UpdateProfile(alice.ID, UpdateProfileInput{Email: "alice@x.com", Password: "pw9", CurrentPassword: "pw1"})
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", user.Email)

		_, err = s.Login(LoginInput{Email: "alice@x.com", Password: "pw9"})
		assert.NoError(t, err)
		_, err = s.Login(LoginInput{Email: "a@x.com", Password: "pw1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestParsePolicies(t *testing.T) {
	p, err := ParsePolicies("creator-only", "assignee-or-creator")
	require.NoError(t, err)
	assert.Equal(t, EditPolicyCreatorOnly, p.Edit)
	assert.Equal(t, StatusPolicyAssigneeOrCreator, p.Status)

	_, err = ParsePolicies("admins", "assignee-only")
	assert.Error(t, err)
	_, err = ParsePolicies("any-user", "anyone")
	assert.Error(t, err)
}
