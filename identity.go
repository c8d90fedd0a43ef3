package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"contest-rooms/contest"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid identity token")

type identityClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type IdentityJWT struct {
	jwtSecret string
	ttl       time.Duration
}

func NewIdentityJWT(jwtSecret string, ttl time.Duration) *IdentityJWT {
	return &IdentityJWT{jwtSecret, ttl}
}

// Issue mints a token for a fresh user id.
func (i IdentityJWT) Issue(displayName string) (contest.Identity, string, error) {
	who := contest.Identity{UserID: uuid.NewString(), DisplayName: displayName}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{
		Name: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
		},
	})
	signed, err := token.SignedString([]byte(i.jwtSecret))
	return who, signed, err
}

func (i IdentityJWT) Parse(tokenString string) (contest.Identity, error) {
	var claims identityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(i.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return contest.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return contest.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return contest.Identity{UserID: claims.Subject, DisplayName: claims.Name}, nil
}

type identityKey struct{}

// Middleware rejects requests without a valid bearer token. Browsers cannot
// set headers on EventSource/WebSocket requests, so ?token= is accepted too.
func (i IdentityJWT) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			writeError(w, fmt.Errorf("%w: missing token", ErrInvalidToken))
			return
		}
		who, err := i.Parse(tokenString)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, who)))
	})
}

func IdentityFrom(ctx context.Context) contest.Identity {
	who, _ := ctx.Value(identityKey{}).(contest.Identity)
	return who
}
