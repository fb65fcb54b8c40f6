package types

import "github.com/golang-jwt/jwt/v5"

// Claims are the access-token claims. Subject carries the user ID.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
