package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// SessionIDLength is the length of the random part in bytes
	SessionIDLength = 32
	// SessionIDPrefix is the prefix for session IDs
	SessionIDPrefix = "sess"
)

var (
	timestampPattern = regexp.MustCompile(`^\d+$`)
	randomPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// SessionIDGenerator produces IDs of the form sess.<unix>.<base64url>.
// The MCP transport requires visible ASCII only, which this satisfies.
type SessionIDGenerator struct{}

// NewSessionIDGenerator creates a new session ID generator
func NewSessionIDGenerator() *SessionIDGenerator {
	return &SessionIDGenerator{}
}

// Generate creates a new cryptographically secure session ID
func (g *SessionIDGenerator) Generate() (string, error) {
	randomBytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", NewSessionGenerationError(err)
	}

	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)
	return fmt.Sprintf("%s.%d.%s", SessionIDPrefix, time.Now().Unix(), randomPart), nil
}

// Validate checks if a session ID has the correct format
func (g *SessionIDGenerator) Validate(sessionID string) error {
	if sessionID == "" {
		return NewSessionInvalidError("empty session ID")
	}

	parts := strings.Split(sessionID, ".")
	if len(parts) != 3 {
		return NewSessionInvalidError("invalid session ID format")
	}

	if parts[0] != SessionIDPrefix {
		return NewSessionInvalidError("invalid session ID prefix")
	}

	if !timestampPattern.MatchString(parts[1]) {
		return NewSessionInvalidError("invalid timestamp in session ID")
	}

	randomPart := parts[2]
	if !randomPattern.MatchString(randomPart) {
		return NewSessionInvalidError("invalid characters in session ID")
	}

	if len(randomPart) < base64.RawURLEncoding.EncodedLen(SessionIDLength) {
		return NewSessionInvalidError("session ID random part too short")
	}

	return nil
}

// ExtractTimestamp returns the creation time encoded in a session ID.
func (g *SessionIDGenerator) ExtractTimestamp(sessionID string) (time.Time, error) {
	if err := g.Validate(sessionID); err != nil {
		return time.Time{}, err
	}

	unix, err := strconv.ParseInt(strings.Split(sessionID, ".")[1], 10, 64)
	if err != nil {
		return time.Time{}, NewSessionInvalidError("failed to parse timestamp")
	}
	return time.Unix(unix, 0), nil
}
