package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
)

type memoryRepo struct {
	byEmail map[string]User
	byID    map[string]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: map[string]User{}, byID: map[string]User{}}
}

func (r *memoryRepo) Create(_ context.Context, user User) (User, error) {
	if _, ok := r.byEmail[user.Email]; ok {
		return User{}, ErrEmailExists
	}
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (User, bool, error) {
	u, ok := r.byEmail[email]
	return u, ok, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (User, bool, error) {
	u, ok := r.byID[id]
	return u, ok, nil
}

func newTestService() Service {
	cfg := Config{Secret: "test-secret", TokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour}
	return NewService(cfg, newMemoryRepo(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	view, err := svc.Register(ctx, RegisterRequest{Email: "Foo@Example.com", Nickname: "foo", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.Equal(t, "foo@example.com", view.Email)
	require.NotEmpty(t, view.ID)

	resp, err := svc.Login(ctx, LoginRequest{Email: "foo@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, view.ID, resp.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := RegisterRequest{Email: "dup@example.com", Nickname: "dup", Password: "password123"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	require.True(t, apperrors.IsCode(err, "email_exists"))
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	svc := newTestService()
	for _, password := range []string{"short1", "onlyletters", "1234567890"} {
		_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Nickname: "a", Password: password})
		require.True(t, apperrors.IsCode(err, "invalid_input"), "password %q", password)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "x@example.com", Nickname: "x", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "x@example.com", Password: "wrongwrong1"})
	require.True(t, apperrors.IsCode(err, "invalid_credentials"))
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "t@example.com", Nickname: "t", Password: "password123"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, LoginRequest{Email: "t@example.com", Password: "password123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, "access", claims.TokenType)

	// A refresh token must not pass access validation.
	_, err = svc.ValidateToken(ctx, resp.RefreshToken)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestRefresh(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "r@example.com", Nickname: "r", Password: "password123"})
	require.NoError(t, err)
	first, err := svc.Login(ctx, LoginRequest{Email: "r@example.com", Password: "password123"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.Token)

	// Access tokens are not refresh tokens.
	_, err = svc.Refresh(ctx, first.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService()
	_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}
