package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret interface{}, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func claimsFor(userID string, role models.UserRole, issuer string, ttl time.Duration) *models.JWTClaims {
	now := time.Now()
	return &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestValidateTokenAcceptsSignedToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "registrar"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("u-1", models.RoleCommittee, "registrar", time.Hour))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleCommittee, claims.Role)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "registrar"})

	tokens := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("u-1", models.RoleStudent, "registrar", time.Hour)),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("u-1", models.RoleStudent, "registrar", -time.Minute)),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("u-1", models.RoleStudent, "elsewhere", time.Hour)),
		"wrong alg":    signToken(t, jwt.SigningMethodHS512, []byte("secret"), claimsFor("u-1", models.RoleStudent, "registrar", time.Hour)),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("", models.RoleStudent, "registrar", time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range tokens {
		_, err := svc.ValidateToken(token)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code), name)
	}
}
