package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carry the console user behind a request. Assistants are owned by UserID;
// whether a role may act outside its own assistants is decided in internal/rbac.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}

// Identity is the verified caller, as stored on the request context.
type Identity struct {
	UserID string
	Role   string
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role}
}

func (c Claims) check(expected TokenType) error {
	switch {
	case c.TokenType != expected:
		return ErrTokenType
	case c.UserID == "":
		return ErrMissingUser
	case c.Subject != "" && c.Subject != c.UserID:
		return ErrMissingUser
	case expected == TokenTypeAccess && c.Role == "":
		return ErrMissingRole
	}
	return nil
}
