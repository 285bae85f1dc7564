package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
)

const (
	// ChallengeBytes is the entropy of a challenge id
	ChallengeBytes = 24

	// ChallengeIDLength is the length of a hex-encoded challenge id
	ChallengeIDLength = 2 * ChallengeBytes

	DefaultChallengeTTL = 5 * time.Minute

	challengeKeyPrefix = "challenge:"
)

// ChallengeStore keeps at most one outstanding challenge per session and
// hands each one out for a single successful consumption.
type ChallengeStore struct {
	store ports.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeStore creates a challenge store on top of a key/value store
func NewChallengeStore(store ports.Store, ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeStore{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a new challenge for the session, replacing any
// outstanding one
func (s *ChallengeStore) Issue(ctx context.Context, sessionID string) (*core.Challenge, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("issue challenge: empty session id")
	}

	idBytes := make([]byte, ChallengeBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate challenge id: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        hex.EncodeToString(idBytes),
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Set(ctx, challengeKey(sessionID), challenge.ID, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Outstanding reports whether a well-formed challenge is stored for the
// session
func (s *ChallengeStore) Outstanding(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	stored, err := s.store.Get(ctx, challengeKey(sessionID))
	if errors.Is(err, core.ErrChallengeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load challenge: %w", err)
	}

	return len(stored) == ChallengeIDLength, nil
}

// ConsumeIfMatches deletes the session's challenge if candidate equals it
// and reports whether it did. It fails closed: no stored challenge, a stored
// value of the wrong length or a different candidate all yield false.
//
// A wrong candidate leaves the stored challenge in place, so a guesser
// cannot force the legitimate user to start over.
func (s *ChallengeStore) ConsumeIfMatches(ctx context.Context, sessionID, candidate string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	consumed, err := s.store.Consume(ctx, challengeKey(sessionID), func(stored string) bool {
		if len(stored) != ChallengeIDLength {
			return false
		}
		return equalConstantTime(stored, candidate)
	})
	if err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}

	return consumed, nil
}

// equalConstantTime compares fixed-size digests so that neither the length
// of candidate nor the length of a matching prefix affects timing.
func equalConstantTime(stored, candidate string) bool {
	a := sha256.Sum256([]byte(stored))
	b := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func challengeKey(sessionID string) string {
	return challengeKeyPrefix + sessionID
}
