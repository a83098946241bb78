package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	svc := NewAuthService(fakeUsers{mem})

	user, err := svc.Register(ctx, &transfer.Credentials{Email: " Someone@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = svc.Register(ctx, &transfer.Credentials{Email: "someone@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrConflict)

	logged, err := svc.Login(ctx, &transfer.Credentials{Email: "someone@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(ctx, &transfer.Credentials{Email: "someone@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, &transfer.Credentials{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(fakeUsers{newMemDB()})

	_, err := svc.Register(context.Background(), &transfer.Credentials{Email: "not-an-email", Password: "long enough"})
	isValidationError("email")(t, err)

	_, err = svc.Register(context.Background(), &transfer.Credentials{Email: "a@example.com", Password: "short"})
	isValidationError("password")(t, err)
}

func TestUserService_GetUserInfo(t *testing.T) {
	mem := newMemDB()
	id := mem.addUser("a@example.com")
	svc := NewUserService(fakeUsers{mem})

	user, err := svc.GetUserInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = svc.GetUserInfo(context.Background(), id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
