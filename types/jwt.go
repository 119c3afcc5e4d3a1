package types

import "github.com/golang-jwt/jwt/v5"

// Claims are carried by API access tokens. Subject mirrors UserID.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// PowerSyncClaims are carried by tokens handed to the PowerSync service.
type PowerSyncClaims struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        interface{} `json:"role"`
	Type        string      `json:"type"`
	Permissions []string    `json:"permissions"`
	Agency      string      `json:"agency"`
	jwt.RegisteredClaims
}
