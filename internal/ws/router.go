package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storyrelaygo/internal/game"
)

// ConnContext carries the identity of the connection a frame arrived on.
type ConnContext struct {
	RoomCode string
	ConnID   string
	Room     *Room
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, frame json.RawMessage) error

// Router keeps a map[type]handler over the enumerated message kinds.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds a message type to a strongly-typed handler. The handler
// receives the whole frame decoded into Req; fields sit beside "type".
func Register[Req any](
	r *Router,
	msgType string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(ctx context.Context, c *ConnContext, frame json.RawMessage) error {
		var req Req
		if len(frame) > 0 {
			if err := json.Unmarshal(frame, &req); err != nil {
				return fmt.Errorf("%w: invalid message format", game.ErrInvalidArgument)
			}
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server's reader loop with one raw frame.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, frame []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &tag); err != nil {
		return fmt.Errorf("%w: invalid message format", game.ErrInvalidArgument)
	}

	r.mu.RLock()
	h, ok := r.handlers[tag.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown message type", game.ErrInvalidArgument)
	}
	return h(ctx, c, frame)
}
