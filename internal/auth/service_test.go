package auth

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestService(t *testing.T) (*Service, func()) {
	dbPath := "./test_auth_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	service := NewService(db, config.Auth{
		BcryptCost:       bcrypt.MinCost,
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	})

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return service, cleanup
}

func TestRegister(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "long-enough-password", user.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", "", "a@example.com", "long-enough-password", ErrUsernameRequired},
		{"missing email", "alice", "", "long-enough-password", ErrEmailRequired},
		{"missing password", "alice", "a@example.com", "", ErrPasswordRequired},
		{"short username", "ab", "a@example.com", "long-enough-password", ErrUsernameInvalid},
		{"bad username chars", "alice smith", "a@example.com", "long-enough-password", ErrUsernameInvalid},
		{"bad email", "alice", "not-an-email", "long-enough-password", ErrEmailInvalid},
		{"short password", "alice", "a@example.com", "short", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_DuplicateUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)

	_, err = service.Register("alice", "other@example.com", "long-enough-password")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = service.Register("alice2", "alice@example.com", "long-enough-password")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	created, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)

	// By username
	user, err := service.Authenticate("alice", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	// By email
	user, err = service.Authenticate("alice@example.com", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	// Last login gets recorded
	refreshed, err := service.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.NotNil(t, refreshed.LastLoginAt)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)

	_, err = service.Authenticate("alice", "not-the-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Authenticate("nobody", "whatever-password")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticate_LockoutAfterFailures(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)

	// MaxLoginAttempts is 3 in the test config
	for i := 0; i < 3; i++ {
		_, err = service.Authenticate("alice", "not-the-password")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	// Even the right password is rejected while locked
	_, err = service.Authenticate("alice", "long-enough-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestChangePassword(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.Register("alice", "alice@example.com", "long-enough-password")
	require.NoError(t, err)

	// Wrong old password
	err = service.ChangePassword(user.ID, "wrong-old-password", "new-longer-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// Correct old password
	err = service.ChangePassword(user.ID, "long-enough-password", "new-longer-password")
	require.NoError(t, err)

	_, err = service.Authenticate("alice", "new-longer-password")
	assert.NoError(t, err)
}
