package auth

import (
	"fmt"

	"github.com/compia/compia/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ProviderVerifier validates access tokens issued by the hosted identity
// provider. COMPIA never issues its own tokens; it only verifies the
// provider's HS256 signature with the shared project secret.
type ProviderVerifier struct {
	secret string
}

func NewProviderVerifier(secret string) *ProviderVerifier {
	return &ProviderVerifier{secret: secret}
}

// Verify parses and validates a provider access token and returns its claims.
// Any failure here is treated by the resolver as "no identity found", never
// as a request-fatal error.
func (v *ProviderVerifier) Verify(tokenString string) (*models.ProviderClaims, error) {
	claims := &models.ProviderClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return claims, nil
}
