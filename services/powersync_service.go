package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/types"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

const (
	powerSyncTokenTTL = 15 * time.Minute
	powerSyncAgency   = "nmec"
)

// PowerSyncToken is handed to clients that sync through PowerSync.
type PowerSyncToken struct {
	Token        string `json:"token"`
	PowerSyncURL string `json:"powersync_url"`
}

// PowerSyncService signs RS256 tokens for the PowerSync service and
// publishes the matching public key as a JWKS.
type PowerSyncService struct {
	db         *gorm.DB
	url        string
	issuer     string
	privateKey *rsa.PrivateKey
	kid        string
	alg        string
	publicKeys jwk.Set
	now        func() time.Time
}

// NewPowerSyncService loads the key pair from base64-encoded JWKs. With no
// private key configured a temporary pair is generated and logged so it can
// be pinned in the environment.
func NewPowerSyncService(db *gorm.DB, cfg config.PowerSyncConfig, issuer string) (*PowerSyncService, error) {
	s := &PowerSyncService{db: db, url: cfg.URL, issuer: issuer, now: time.Now}

	privB64 := strings.TrimSpace(cfg.PrivateKey)
	pubB64 := strings.TrimSpace(cfg.PublicKey)
	if privB64 == "" {
		var err error
		privB64, pubB64, err = generatePowerSyncKeys()
		if err != nil {
			return nil, err
		}
		logger.L().Warn("⚠️  POWERSYNC_PRIVATE_KEY not set, generated a temporary key pair",
			zap.String("private_key", privB64),
			zap.String("public_key", pubB64))
	}

	priv, err := parseBase64JWK(privB64)
	if err != nil {
		return nil, fmt.Errorf("powersync private key: %w", err)
	}
	var raw rsa.PrivateKey
	if err := priv.Raw(&raw); err != nil {
		return nil, fmt.Errorf("powersync private key is not RSA: %w", err)
	}
	s.privateKey = &raw
	s.kid = priv.KeyID()
	s.alg = jwa.RS256.String()
	if priv.Algorithm().String() != "" {
		s.alg = priv.Algorithm().String()
	}
	if s.alg != jwa.RS256.String() {
		return nil, fmt.Errorf("unsupported powersync algorithm %q", s.alg)
	}

	var pub jwk.Key
	if pubB64 != "" {
		pub, err = parseBase64JWK(pubB64)
	} else {
		pub, err = jwk.PublicKeyOf(priv)
	}
	if err != nil {
		return nil, fmt.Errorf("powersync public key: %w", err)
	}
	s.publicKeys = jwk.NewSet()
	if err := s.publicKeys.AddKey(pub); err != nil {
		return nil, err
	}

	logger.L().Info("🔌 PowerSync signing key loaded", zap.String("kid", s.kid))
	return s, nil
}

func parseBase64JWK(encoded string) (jwk.Key, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return jwk.ParseKey(data)
}

func generatePowerSyncKeys() (privB64, pubB64 string, err error) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}
	suffix := make([]byte, 5)
	if _, err := rand.Read(suffix); err != nil {
		return "", "", err
	}
	kid := "powersync-" + hex.EncodeToString(suffix)

	priv, err := jwk.FromRaw(rsaKey)
	if err != nil {
		return "", "", err
	}
	for k, v := range map[string]interface{}{jwk.KeyIDKey: kid, jwk.AlgorithmKey: jwa.RS256} {
		if err := priv.Set(k, v); err != nil {
			return "", "", err
		}
	}
	pub, err := jwk.PublicKeyOf(priv)
	if err != nil {
		return "", "", err
	}

	privJSON, err := json.Marshal(priv)
	if err != nil {
		return "", "", err
	}
	pubJSON, err := json.Marshal(pub)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(privJSON), base64.StdEncoding.EncodeToString(pubJSON), nil
}

// GenerateToken signs a short-lived token describing the user and its role.
func (s *PowerSyncService) GenerateToken(ctx context.Context, userID string) (*PowerSyncToken, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Unauthorized("User not found")
		}
		return nil, utils.Internal("Failed to load user", err)
	}

	now := s.now()
	claims := &types.PowerSyncClaims{
		Name:   user.FullName,
		Email:  user.Email,
		Agency: powerSyncAgency,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.url},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(powerSyncTokenTTL)),
		},
	}
	if user.Role != nil {
		claims.Role = user.Role
		claims.Type = string(user.Role.RoleType)
		claims.Permissions = user.Role.Permissions
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, utils.Internal("Failed to sign token", err)
	}
	return &PowerSyncToken{Token: signed, PowerSyncURL: s.url}, nil
}

// JWKS returns the public key set, serialised as {"keys":[...]}.
func (s *PowerSyncService) JWKS() jwk.Set {
	return s.publicKeys
}
