package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims of a session token; the JWT ID is
// the session id
type SessionClaims struct {
	jwt.RegisteredClaims
}
