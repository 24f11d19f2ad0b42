// Package session validates the JWTs minted by the external session issuer.
// Claims carry the marketplace role so services can authorize transitions.
package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
)

// Claims represents the JWT claims issued for marketplace sessions.
type Claims struct {
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies session tokens against the shared signing key.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a bearer token, returning the actor it
// encodes.
func (v *Validator) ValidateToken(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token missing user identity")
	}
	userType := domain.UserType(claims.UserType)
	if !userType.IsValid() {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token carries unknown user type")
	}

	actor := domain.Actor{UserID: userID, UserType: userType, Email: claims.Email}
	if claims.AccountID != "" {
		accountID, err := domain.ParseAccountID(claims.AccountID)
		if err != nil {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token carries invalid account")
		}
		actor.AccountID = accountID
	}
	return actor, nil
}
