package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/pkg/config"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

func newTestAuth(t *testing.T, password string) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(nil, nil, config.AuthConfig{
		AdminEmail:        "secretary@example.org",
		AdminPasswordHash: string(hash),
		JWTSecret:         "test-secret",
		TokenExpiry:       time.Hour,
	})
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newTestAuth(t, "hunter2")

	resp, err := svc.Login(models.LoginRequest{Email: "secretary@example.org", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "secretary@example.org", claims.Email)
}

func TestLoginEmailCaseInsensitive(t *testing.T) {
	svc := newTestAuth(t, "hunter2")
	_, err := svc.Login(models.LoginRequest{Email: "Secretary@Example.org", Password: "hunter2"})
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestAuth(t, "hunter2")
	_, err := svc.Login(models.LoginRequest{Email: "secretary@example.org", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginWrongEmail(t *testing.T) {
	svc := newTestAuth(t, "hunter2")
	_, err := svc.Login(models.LoginRequest{Email: "warden@example.org", Password: "hunter2"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginRejectsInvalidPayload(t *testing.T) {
	svc := newTestAuth(t, "hunter2")
	_, err := svc.Login(models.LoginRequest{Email: "not-an-email", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginUnconfiguredAdmin(t *testing.T) {
	svc := NewAuthService(nil, nil, config.AuthConfig{AdminEmail: "secretary@example.org"})
	_, err := svc.Login(models.LoginRequest{Email: "secretary@example.org", Password: "anything"})
	require.Error(t, err)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newTestAuth(t, "hunter2")

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{Email: "secretary@example.org"})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestAuth(t, "hunter2")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		Email: "secretary@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}
