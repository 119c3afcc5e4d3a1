package services

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/types"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

func TestPowerSyncTokenVerifiesAgainstJWKS(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "collector@example.com", "Collectorpass", models.RoleTypeCollector)

	svc, err := NewPowerSyncService(db, config.PowerSyncConfig{URL: "https://sync.example.com"}, "onv-ncne-api")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svc.kid, "powersync-"))

	tok, err := svc.GenerateToken(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", tok.PowerSyncURL)

	raw, err := json.Marshal(svc.JWKS())
	require.NoError(t, err)
	var doc struct {
		Keys []map[string]interface{} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, svc.kid, doc.Keys[0]["kid"])
	assert.Equal(t, "RSA", doc.Keys[0]["kty"])
	assert.NotContains(t, doc.Keys[0], "d")

	pubKey, ok := svc.JWKS().Key(0)
	require.True(t, ok)
	var pub rsa.PublicKey
	require.NoError(t, pubKey.Raw(&pub))

	claims := &types.PowerSyncClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Token, claims, func(token *jwt.Token) (interface{}, error) {
		assert.Equal(t, svc.kid, token.Header["kid"])
		return &pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience("https://sync.example.com"), jwt.WithIssuer("onv-ncne-api"))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "nmec", claims.Agency)
	assert.Equal(t, "collector", claims.Type)
	assert.Contains(t, claims.Permissions, models.PermCollectionsCreate)
}

func TestPowerSyncReusesConfiguredKeys(t *testing.T) {
	priv, pub, err := generatePowerSyncKeys()
	require.NoError(t, err)

	db := newTestDB(t)
	a, err := NewPowerSyncService(db, config.PowerSyncConfig{PrivateKey: priv, PublicKey: pub}, "iss")
	require.NoError(t, err)
	b, err := NewPowerSyncService(db, config.PowerSyncConfig{PrivateKey: priv}, "iss")
	require.NoError(t, err)
	assert.Equal(t, a.kid, b.kid)
	assert.Equal(t, a.privateKey.N, b.privateKey.N)
}

func TestPowerSyncUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewPowerSyncService(db, config.PowerSyncConfig{URL: "http://localhost:8080"}, "iss")
	require.NoError(t, err)

	_, err = svc.GenerateToken(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusUnauthorized, utils.StatusOf(err))
}
