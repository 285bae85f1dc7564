package core

import "time"

// Challenge represents an outstanding proof-of-ownership challenge
type Challenge struct {
	ID        string    // 48 hex characters, embedded in the proof message
	SessionID string    // Session the challenge is bound to
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the store forgets the challenge
}

// Session represents an anonymous visitor session
type Session struct {
	ID        string    // Unique session identifier
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session cookie stops being accepted
}

// Attribution is the outcome of a successful verification
type Attribution struct {
	Address     string `json:"address"`
	Attribution bool   `json:"attribution"`
}
