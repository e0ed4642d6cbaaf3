package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type tokenClaims struct {
	// The marketplace issues tokens with the account id in "id";
	// standard "sub" is accepted as a fallback.
	UserID int `json:"id"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer credentials presented at connection
// handshake and resolves them to a principal. Validation happens once
// per connection; per-event operations trust the admitted principal.
type Authenticator struct {
	secret    []byte
	directory repositories.Directory
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(secret string, directory repositories.Directory) *Authenticator {
	return &Authenticator{secret: []byte(secret), directory: directory}
}

// Authenticate verifies the token's signature and expiry and resolves
// the subject through the user directory. Any failure refuses the
// connection before any state is created.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		return models.Principal{}, ErrMissingToken
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Principal{}, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		userID, err = strconv.Atoi(claims.Subject)
		if err != nil {
			return models.Principal{}, ErrInvalidToken
		}
	}
	if userID == 0 {
		return models.Principal{}, ErrInvalidToken
	}

	principal, err := a.directory.GetPrincipal(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrPrincipalNotFound) {
			return models.Principal{}, ErrInvalidToken
		}
		return models.Principal{}, err
	}
	return principal, nil
}
