package session

import (
	"fmt"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
)

const (
	serviceName = "secdash-agent"
	tokenKey    = "access-token"
)

// Identity is what the rest of the app knows about the signed-in user.
// This package reads session state; it does not manage logins.
type Identity struct {
	UserID string
	RoleID string
	Name   string
}

// Store reads the persisted bearer token from the system keyring and
// derives the user's identity from its claims.
type Store struct {
	ring keyring.Keyring
}

func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/secdash-agent/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("secdash-agent-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// Token returns the persisted bearer token, or "" when none is stored.
// Connection attempts call this each time so a token stored after a
// failed attempt is picked up by the next one.
func (s *Store) Token() string {
	item, err := s.ring.Get(tokenKey)
	if err != nil {
		return ""
	}
	return string(item.Data)
}

// SetToken persists a bearer token.
func (s *Store) SetToken(token string) error {
	err := s.ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)})
	if err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

// ClearToken removes the persisted token.
func (s *Store) ClearToken() error {
	if err := s.ring.Remove(tokenKey); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}

// Identity extracts the user id, role and display name from the stored
// token's claims. The token is issued and validated by the backend; the
// agent only reads it, so claims are parsed without verification.
func (s *Store) Identity() (Identity, error) {
	return IdentityFromToken(s.Token())
}

func IdentityFromToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("no session token stored")
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("parsing session token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("unexpected claims in session token")
	}
	id := Identity{
		UserID: stringClaim(claims, "sub"),
		RoleID: stringClaim(claims, "role"),
		Name:   stringClaim(claims, "name"),
	}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("session token carries no subject")
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
