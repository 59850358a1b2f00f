// Package redis provides Redis-backed stores for sessions and presence.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gelatohub/painel/internal/data/cryptoutil"
	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
)

// DefaultSessionPrefix namespaces session keys.
const DefaultSessionPrefix = "session:"

// SessionStore keeps server-side sessions. Each key expires together with
// the session's ExpiresAt. With an encryptor set, values hold the sealed
// JSON so backend tokens are never stored in clear text.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	enc    cryptoutil.Encryptor
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store using DefaultSessionPrefix.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, DefaultSessionPrefix)
}

// NewSessionStoreWithPrefix creates a session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

// WithEncryptor seals stored sessions with enc.
func (s *SessionStore) WithEncryptor(enc cryptoutil.Encryptor) *SessionStore {
	s.enc = enc
	return s
}

func (s *SessionStore) seal(data []byte) ([]byte, error) {
	if s.enc == nil {
		return data, nil
	}
	sealed, err := s.enc.Encrypt(data)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

// open accepts plain JSON as well, so sessions written before encryption
// was enabled stay readable until they expire.
func (s *SessionStore) open(data []byte) ([]byte, error) {
	if s.enc == nil || (len(data) > 0 && data[0] == '{') {
		return data, nil
	}
	return s.enc.Decrypt(string(data))
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if data, err = s.seal(data); err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	if data, err = s.open(data); err != nil {
		return domainauth.Session{}, fmt.Errorf("decrypt session: %w", err)
	}
	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}
