package token

import (
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-to-sign-with"

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(testSecret, time.Hour)

	tok, err := issuer.Issue(42, models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	id, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.ID)
	assert.Equal(t, models.RoleAdmin, id.Role)
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(testSecret, time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, err := issuer.Validate("not-a-token")
		assertUnauthenticated(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other := NewIssuer("a-completely-different-signing-secret!", time.Hour)
		tok, err := other.Issue(1, models.RoleUser)
		require.NoError(t, err)
		_, err = issuer.Validate(tok)
		assertUnauthenticated(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		expired := NewIssuer(testSecret, -time.Minute)
		tok, err := expired.Issue(1, models.RoleUser)
		require.NoError(t, err)
		_, err = issuer.Validate(tok)
		assertUnauthenticated(t, err)
	})

	t.Run("unknown role claim", func(t *testing.T) {
		t.Parallel()
		claims := jwt.MapClaims{
			"sub": "1",
			"role": "superuser",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Validate(tok)
		assertUnauthenticated(t, err)
	})

	t.Run("unsigned none algorithm", func(t *testing.T) {
		t.Parallel()
		claims := jwt.MapClaims{"sub": "1", "role": "admin"}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Validate(tok)
		assertUnauthenticated(t, err)
	})
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, models.CodeUnauthenticated, appErr.Code)
}
