package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", 7*24*time.Hour)
	user := models.User{ID: primitive.NewObjectID(), Email: "asha@example.com"}

	raw, err := tokens.Issue(user)
	require.NoError(t, err)

	id, claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	user := models.User{ID: primitive.NewObjectID(), Email: "a@b.co"}

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tokens.Issue(user)
	require.NoError(t, err)
	tokens.now = time.Now

	_, _, err = tokens.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokens("other-secret", time.Hour).Issue(user)
	require.NoError(t, err)
	_, _, err = tokens.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = tokens.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	claims := Claims{UserID: primitive.NewObjectID().Hex()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
