package resume

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"relaygo/internal/redis"
)

// DefaultTTL bounds how long a dropped connection stays resumable.
const DefaultTTL = 2 * time.Minute

const keyPrefix = "resume:"

// Store judges whether an incoming connection continues a prior one. Each
// connection is issued a random session token; when the connection drops, a
// marker for the token is written to redis with a TTL. A client presenting
// a token whose marker is still present is judged recovered. The markers
// are ephemeral transport state, deliberately separate from the durable
// message log.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// NewSessionID mints the random token handed to a fresh connection.
func NewSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Claim reports whether sid identifies a resumable prior connection and
// consumes the marker so the same token cannot be claimed twice. Without a
// redis client nothing is ever judged recovered.
func (s *Store) Claim(ctx context.Context, sid string) bool {
	if s == nil || s.client == nil || sid == "" {
		return false
	}
	if _, err := s.client.Get(ctx, keyPrefix+sid); err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("resume lookup for %s failed: %v", sid, err)
		}
		return false
	}
	if err := s.client.Del(ctx, keyPrefix+sid); err != nil {
		log.Printf("resume claim for %s failed: %v", sid, err)
	}
	return true
}

// MarkDisconnected records that sid just dropped and may resume within the
// TTL. Best-effort: a failed write only means the next connection is
// treated as fresh.
func (s *Store) MarkDisconnected(ctx context.Context, sid string) {
	if s == nil || s.client == nil || sid == "" {
		return
	}
	if err := s.client.Set(ctx, keyPrefix+sid, time.Now().UTC().Format(time.RFC3339), s.ttl); err != nil {
		log.Printf("resume mark for %s failed: %v", sid, err)
	}
}
