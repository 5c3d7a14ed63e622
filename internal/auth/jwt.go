package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/formflow/dms/internal/models"
)

// Claims carry the caller's identity and approval-authority capability.
// The workflow engine consumes these as provided; it never re-derives them.
type Claims struct {
	UserID               string      `json:"userId"`
	Email                string      `json:"email"`
	Role                 models.Role `json:"role"`
	HasApprovalAuthority bool        `json:"hasApprovalAuthority"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, user *models.User) (string, error) {
	claims := Claims{
		UserID:               user.ID,
		Email:                user.Email,
		Role:                 user.Role,
		HasApprovalAuthority: user.HasApprovalAuthority,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
