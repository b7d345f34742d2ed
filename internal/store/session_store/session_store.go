package session_store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"storyrelaygo/internal/game"
)

const keyPrefix = "story:sess:"

// Store persists one JSON snapshot per room code. The idle TTL is refreshed
// on every save so abandoned rooms eventually expire without a reaper.
type Store struct {
	rdc     *redis.Client
	idleTTL time.Duration
}

func New(rdc *redis.Client, idleTTL time.Duration) *Store {
	return &Store{rdc: rdc, idleTTL: idleTTL}
}

// Load returns the snapshot for code, or a fresh lobby session when the key
// does not exist. A room comes into being on first access.
func (s *Store) Load(ctx context.Context, code string) (*game.Session, error) {
	data, err := s.rdc.Get(ctx, keyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.NewSession(code), nil
	}
	if err != nil {
		return nil, err
	}
	sess := &game.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) Save(ctx context.Context, sess *game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdc.Set(ctx, keyPrefix+sess.Code, data, s.idleTTL).Err()
}
