package export_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"storyrelaygo/internal/game"
)

const (
	keyPrefix   = "story:share:"
	maxAttempts = 10
)

// ErrIDExhausted is returned when a unique share id could not be generated
// within the attempt budget. With a 56-char alphabet and 8 positions this is
// effectively unreachable.
var ErrIDExhausted = errors.New("failed to generate unique story id")

// Export is the durable, immutable shared-story artifact.
type Export struct {
	ID        string              `json:"id"`
	Story     []game.Contribution `json:"story"`
	RoomCode  string              `json:"roomCode"`
	CreatedAt int64               `json:"createdAt"`
	ExpiresAt int64               `json:"expiresAt"`
}

type Store struct {
	rdc *redis.Client
	ttl time.Duration

	newID func() string // swapped in tests
}

func New(rdc *redis.Client, ttl time.Duration) *Store {
	return &Store{rdc: rdc, ttl: ttl, newID: game.NewShareID}
}

// Put validates and stores a finished story under a freshly generated id,
// collision-checked against the store with bounded retries.
func (s *Store) Put(ctx context.Context, story []game.Contribution, roomCode string, createdAt int64) (*Export, error) {
	if len(story) == 0 {
		return nil, fmt.Errorf("%w: story must be a non-empty array", game.ErrInvalidArgument)
	}
	for _, entry := range story {
		if entry.AuthorName == "" || strings.TrimSpace(entry.Sentence) == "" {
			return nil, fmt.Errorf("%w: each story entry must have playerName and sentence", game.ErrInvalidArgument)
		}
	}
	if roomCode == "" {
		roomCode = "UNKNOWN"
	}
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	exp := &Export{
		Story:     story,
		RoomCode:  roomCode,
		CreatedAt: createdAt,
		ExpiresAt: time.UnixMilli(createdAt).Add(s.ttl).UnixMilli(),
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		exp.ID = s.newID()
		data, err := json.Marshal(exp)
		if err != nil {
			return nil, err
		}
		ok, err := s.rdc.SetNX(ctx, keyPrefix+exp.ID, data, s.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return exp, nil
		}
	}
	return nil, ErrIDExhausted
}

// Get returns the stored export, or game.ErrNotFound for unknown or expired
// ids (expiry is the TTL simply having removed the key).
func (s *Store) Get(ctx context.Context, id string) (*Export, error) {
	data, err := s.rdc.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: story %s", game.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	exp := &Export{}
	if err := json.Unmarshal(data, exp); err != nil {
		return nil, err
	}
	return exp, nil
}
