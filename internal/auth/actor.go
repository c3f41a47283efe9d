package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"task-tracking-client/internal/models"
)

// Actor is the identity/role context under which a mutation is attempted.
// Core operations always take it explicitly; nothing in the client reads
// identity from ambient state.
type Actor struct {
	ID   string
	Role models.Role
}

// ActorFromToken decodes the claims of a server-issued token without
// verifying its signature: the client does not hold the signing secret,
// and the server re-checks authorization on every call anyway. Expired
// tokens are rejected so the caller can prompt for a fresh login.
func ActorFromToken(tokenString string) (Actor, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return Actor{}, err
	}
	if claims.UserID == "" {
		return Actor{}, errors.New("token carries no user id")
	}
	if !claims.Role.Valid() {
		return Actor{}, errors.New("token carries unknown role")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return Actor{}, errors.New("token is expired")
	}
	return Actor{ID: claims.UserID, Role: claims.Role}, nil
}
