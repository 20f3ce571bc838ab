package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trainer-booking/internal/models"
	"trainer-booking/pkg/response"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps admin sessions under the SHA-256 digest of the token, so
// a dump of the keyspace does not reveal usable credentials.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

type record struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "session"}
}

func (s *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session, ttl time.Duration) error {
	const op = "session.RedisStore.Create"

	payload, err := json.Marshal(record{Email: session.Email, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.client.Set(ctx, s.key(session.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, response.ErrStorage, err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	const op = "session.RedisStore.Get"

	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, response.ErrStorage, err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Session{Token: token, Email: rec.Email, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	const op = "session.RedisStore.Delete"

	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, response.ErrStorage, err)
	}

	return nil
}
