package services_test

import (
	"context"
	"testing"
	"time"

	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestRegisterHashesPassword verifies that registration stores a bcrypt hash
// rather than the password and normalizes the email.
func TestRegisterHashesPassword(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewUserService(users, "test-secret")

	users.On("EmailExists", mock.Anything, "anna@example.com").Return(false, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "anna@example.com" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter2hunter2")) == nil
	})).Return(nil)

	user, token, err := svc.Register(context.Background(), services.RegisterParams{
		Email:       "  Anna@Example.com ",
		Password:    "hunter2hunter2",
		DisplayName: "Anna",
		Gender:      "female",
		DateOfBirth: time.Date(1995, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)
	users.AssertExpectations(t)
}

// TestRegisterDuplicateEmail verifies that registering an existing email is
// rejected.
func TestRegisterDuplicateEmail(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewUserService(users, "test-secret")

	users.On("EmailExists", mock.Anything, "anna@example.com").Return(true, nil)

	_, _, err := svc.Register(context.Background(), services.RegisterParams{
		Email:    "anna@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestRegisterShortPassword verifies the minimum password length.
func TestRegisterShortPassword(t *testing.T) {
	svc := services.NewUserService(new(MockUserStore), "test-secret")

	_, _, err := svc.Register(context.Background(), services.RegisterParams{
		Email:    "anna@example.com",
		Password: "short",
	})
	assert.Error(t, err)
}

// TestLoginWrongPassword verifies that a bad password yields the same error
// as an unknown account.
func TestLoginWrongPassword(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewUserService(users, "test-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)
	users.On("GetByEmail", mock.Anything, "anna@example.com").
		Return(&models.User{ID: "user-1", Email: "anna@example.com", PasswordHash: string(hash)}, nil)

	_, _, err = svc.Login(context.Background(), "anna@example.com", "wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

// TestLoginUnknownEmail verifies that the error does not reveal whether the
// account exists.
func TestLoginUnknownEmail(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewUserService(users, "test-secret")

	users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrUserNotFound)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

// TestJWTRoundTrip verifies that a generated token validates back to the same
// user ID.
func TestJWTRoundTrip(t *testing.T) {
	svc := services.NewUserService(new(MockUserStore), "test-secret")

	token, err := svc.GenerateJWT("user-42")
	require.NoError(t, err)

	userID, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

// TestJWTWrongSecret verifies that tokens signed with another secret are
// rejected.
func TestJWTWrongSecret(t *testing.T) {
	signer := services.NewUserService(new(MockUserStore), "secret-a")
	verifier := services.NewUserService(new(MockUserStore), "secret-b")

	token, err := signer.GenerateJWT("user-42")
	require.NoError(t, err)

	_, err = verifier.ValidateJWT(token)
	assert.Error(t, err)
}
