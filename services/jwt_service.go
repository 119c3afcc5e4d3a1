package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/types"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid or expired")
)

// JWTService issues and validates access tokens and manages refresh tokens.
type JWTService struct {
	db  *gorm.DB
	cfg config.JWTConfig
	now func() time.Time
}

func NewJWTService(db *gorm.DB, cfg config.JWTConfig) *JWTService {
	return &JWTService{db: db, cfg: cfg, now: time.Now}
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// ClientInfo identifies the device a refresh token was issued to.
type ClientInfo struct {
	DeviceID  string
	UserAgent string
	IPAddress string
}

func (js *JWTService) GenerateTokenPair(ctx context.Context, user *models.User, client ClientInfo) (*TokenPair, error) {
	accessToken, expiresIn, err := js.generateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := js.generateRefreshToken(ctx, user.ID, client)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

func (js *JWTService) generateAccessToken(userID, username string) (string, int64, error) {
	now := js.now()
	ttl := time.Duration(js.cfg.ExpiryHours) * time.Hour
	claims := &types.Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    js.cfg.Issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(js.cfg.Secret))
	if err != nil {
		return "", 0, err
	}
	return tokenString, int64(ttl.Seconds()), nil
}

func (js *JWTService) generateRefreshToken(ctx context.Context, userID string, client ClientInfo) (string, error) {
	tokenString, err := utils.RandomToken(32)
	if err != nil {
		return "", err
	}

	days := js.cfg.RefreshTokenDays
	if days <= 0 {
		days = 30
	}
	refreshToken := &models.RefreshToken{
		Token:     tokenString,
		UserID:    userID,
		ExpiresAt: js.now().Add(time.Duration(days) * 24 * time.Hour),
		DeviceID:  client.DeviceID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := js.db.WithContext(ctx).Create(refreshToken).Error; err != nil {
		return "", err
	}

	logger.L().Debug("✅ Refresh token generated", zap.String("user_id", userID))
	return tokenString, nil
}

// ValidateAccessToken returns the user id carried by a valid HS256 token.
func (js *JWTService) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(js.cfg.Secret), nil
	}, jwt.WithTimeFunc(js.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", errors.New("token has no subject")
}

func (js *JWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := js.db.WithContext(ctx).Where("token = ?", tokenString).First(&refreshToken).Error; err != nil {
		return nil, ErrRefreshTokenNotFound
	}
	if refreshToken.IsRevoked || js.now().After(refreshToken.ExpiresAt) {
		return nil, ErrRefreshTokenInvalid
	}
	return &refreshToken, nil
}

// RefreshAccessToken issues a new access token and keeps the refresh token.
func (js *JWTService) RefreshAccessToken(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	refreshToken, err := js.ValidateRefreshToken(ctx, refreshTokenString)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := js.db.WithContext(ctx).First(&user, "id = ?", refreshToken.UserID).Error; err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	if !user.IsActive() {
		return nil, ErrRefreshTokenInvalid
	}

	accessToken, expiresIn, err := js.generateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	js.db.WithContext(ctx).Model(refreshToken).Update("updated_at", js.now())

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

func (js *JWTService) RevokeRefreshToken(ctx context.Context, tokenString string) error {
	res := js.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokenString).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	logger.L().Info("✅ Refresh token revoked")
	return nil
}

func (js *JWTService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	if err := js.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error; err != nil {
		return err
	}
	logger.L().Info("✅ All refresh tokens revoked", zap.String("user_id", userID))
	return nil
}

// CleanupExpiredTokens deletes expired and revoked refresh tokens and
// reports how many were removed.
func (js *JWTService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	res := js.db.WithContext(ctx).
		Where("expires_at < ? OR is_revoked = ?", js.now(), true).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
