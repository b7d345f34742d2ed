package ws

import (
	"sync"
	"time"
)

// Room bundles one code's coordinator with its socket gateway.
type Room struct {
	Code    string
	Coord   *Coordinator
	Gateway *Gateway
}

// Hub keeps one Room per room code, created lazily on first access and kept
// for the life of the process.
type Hub struct {
	store      Store
	syncBuffer time.Duration
	rooms      sync.Map // code -> *Room
}

func NewHub(store Store, syncBuffer time.Duration) *Hub {
	return &Hub{store: store, syncBuffer: syncBuffer}
}

func (h *Hub) Room(code string) *Room {
	if v, ok := h.rooms.Load(code); ok {
		return v.(*Room)
	}
	gw := NewGateway()
	room := &Room{
		Code:    code,
		Coord:   NewCoordinator(code, h.store, gw, h.syncBuffer),
		Gateway: gw,
	}
	v, _ := h.rooms.LoadOrStore(code, room)
	return v.(*Room)
}
