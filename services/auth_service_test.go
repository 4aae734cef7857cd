package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendeploy/compute-deployer/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken("secret", "ci", models.RoleDeployer, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.Equal(t, string(models.RoleDeployer), claims.Role)
}

func TestValidateTokenRejects(t *testing.T) {
	valid, _, err := GenerateToken("secret", "ci", models.RoleViewer, time.Hour)
	require.NoError(t, err)
	expired, _, err := GenerateToken("secret", "ci", models.RoleViewer, -time.Minute)
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "someone-else",
		"role": "admin",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]struct {
		secret string
		token  string
	}{
		"wrong secret":  {secret: "other", token: valid},
		"expired":       {secret: "secret", token: expired},
		"wrong issuer":  {secret: "secret", token: foreign},
		"garbage":       {secret: "secret", token: "not-a-token"},
		"no secret set": {secret: "", token: valid},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateToken(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerateTokenUnknownRole(t *testing.T) {
	_, _, err := GenerateToken("secret", "ci", models.Role("root"), time.Hour)
	assert.Error(t, err)
}

func TestAPIKeyHashing(t *testing.T) {
	hash, err := HashAPIKey("0123456789abcdef")
	require.NoError(t, err)

	assert.True(t, CheckAPIKey(hash, "0123456789abcdef"))
	assert.False(t, CheckAPIKey(hash, "0123456789abcdeX"))
	assert.False(t, CheckAPIKey("", "0123456789abcdef"))

	_, err = HashAPIKey("short")
	assert.Error(t, err)
}
