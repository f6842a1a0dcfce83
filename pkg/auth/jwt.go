package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleRenter           Role = "RENTER"
	RoleIndividualLister Role = "INDIVIDUAL_LISTER"
	RoleBusinessLister   Role = "BUSINESS_LISTER"
	RoleAdmin            Role = "ADMIN"
)

const supabaseAudience = "authenticated"

var ErrInvalidToken = errors.New("invalid token")

type AppMetadata struct {
	Roles []Role `json:"roles,omitempty"`
}

// Claims mirrors the Supabase access token payload.
type Claims struct {
	Email       string      `json:"email"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// User is the authenticated caller placed on the request context.
type User struct {
	ID    string
	Email string
	Roles []Role
}

func (u *User) HasRole(role Role) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) ParseValidate(tokenStr string) (*User, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &User{
		ID:    c.Subject,
		Email: c.Email,
		Roles: c.AppMetadata.Roles,
	}, nil
}

// CreateAccessToken signs a Supabase-shaped token. Used by webhookctl and tests.
func CreateAccessToken(secret, sub, email string, roles []Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:       email,
		AppMetadata: AppMetadata{Roles: roles},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{supabaseAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

type userContextKey struct{}

func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}
