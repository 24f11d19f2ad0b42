package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"linkmart/pkg/domain"
)

// Issuer mints session tokens. Production tokens come from the external
// session service; this issuer exists for local development and tests.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey, issuer string) *Issuer {
	return &Issuer{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateToken signs a session token for the given actor.
func (i *Issuer) GenerateToken(actor domain.Actor, expiresIn time.Duration) (string, error) {
	claims := Claims{
		UserID:   actor.UserID.String(),
		UserType: string(actor.UserType),
		Email:    actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	}
	if !actor.AccountID.IsNil() {
		claims.AccountID = actor.AccountID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.signingKey)
}
