package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionTokenPrefix identifies coachgate session tokens
const SessionTokenPrefix = "cg_"

var (
	// ErrSessionNotFound is returned when no session matches a token
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the matching session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrMalformedToken is returned for tokens that can never match a session
	ErrMalformedToken = errors.New("malformed session token")
)

// SessionValidator resolves a bearer token to a live session
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*Session, error)
}

// SessionStore looks up sessions issued by the login service.
// Only token hashes are stored; issuance happens elsewhere.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionStore creates a session store backed by db
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// HashToken computes the SHA256 hash of a token for lookup
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, SessionTokenPrefix) {
		return fmt.Errorf("%w: must start with %q", ErrMalformedToken, SessionTokenPrefix)
	}
	if len(token) == len(SessionTokenPrefix) {
		return fmt.Errorf("%w: empty token body", ErrMalformedToken)
	}
	return nil
}

// ValidateSession returns the session for token if it exists and has not expired
func (s *SessionStore) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, expires_at, created_at
		FROM user_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	var session Session
	err := s.db.QueryRowContext(ctx, query, HashToken(token)).Scan(
		&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	return &session, nil
}
