package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotek/backend/internal/infrastructure/config"
)

func newTestTokenService(expiration time.Duration) *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:          "test-secret-key-with-enough-length",
		TokenExpiration: expiration,
		Issuer:          "kotek-test",
	})
}

func TestIssueToken(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	issued, err := svc.IssueToken(IssueTokenInput{
		UserID:   uuid.New(),
		Username: "amine",
		Role:     RoleAdmin,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	userID := uuid.New()

	issued, err := svc.IssueToken(IssueTokenInput{
		UserID:   userID,
		Username: "amine",
		Role:     RoleStaff,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "amine", claims.Username)
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, "kotek-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	parsed, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestTokenService(-time.Minute)

	issued, err := svc.IssueToken(IssueTokenInput{
		UserID:   uuid.New(),
		Username: "amine",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	other := NewTokenService(config.JWTConfig{
		Secret:          "a-completely-different-secret-key",
		TokenExpiration: time.Hour,
		Issuer:          "kotek-test",
	})

	issued, err := svc.IssueToken(IssueTokenInput{
		UserID:   uuid.New(),
		Username: "amine",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_IsAdmin(t *testing.T) {
	admin := &Claims{Role: RoleAdmin}
	staff := &Claims{Role: RoleStaff}

	assert.True(t, admin.IsAdmin())
	assert.False(t, staff.IsAdmin())
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	issued, err := svc.IssueToken(IssueTokenInput{
		UserID:   uuid.New(),
		Username: "amine",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)

	ttl := claims.GetRemainingTTL()
	assert.Greater(t, ttl, 55*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestClaims_GetRemainingTTL_NoExpiration(t *testing.T) {
	claims := &Claims{}
	assert.Equal(t, time.Duration(0), claims.GetRemainingTTL())
}

func TestInMemoryTokenRevoker(t *testing.T) {
	ctx := context.Background()
	revoker := NewInMemoryTokenRevoker()

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, revoker.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestInMemoryTokenRevoker_ExpiredEntry(t *testing.T) {
	ctx := context.Background()
	revoker := NewInMemoryTokenRevoker()

	require.NoError(t, revoker.Revoke(ctx, "jti-2", -time.Second))

	revoked, err := revoker.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
