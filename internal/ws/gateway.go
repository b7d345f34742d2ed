package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Sender is the coordinator's view of message delivery.
type Sender interface {
	Send(connID string, msg any)
	Broadcast(msg any)
	Drop(connID string)
}

// Gateway is the in-memory registry of live sockets for one room, keyed by
// ephemeral connection id. It is rebuilt empty on every process start and is
// never the source of truth for identity. Sends to unknown or dead sockets
// drop silently: disconnect races are expected and non-fatal.
type Gateway struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

func NewGateway() *Gateway {
	return &Gateway{conns: map[string]*clientConn{}}
}

func (g *Gateway) Register(connID string, c *clientConn) {
	g.mu.Lock()
	g.conns[connID] = c
	g.mu.Unlock()
}

func (g *Gateway) Unregister(connID string) {
	g.mu.Lock()
	delete(g.conns, connID)
	g.mu.Unlock()
}

// Drop evicts and closes a socket, typically the stale connection left
// behind when a player reconnects.
func (g *Gateway) Drop(connID string) {
	g.mu.Lock()
	c, ok := g.conns[connID]
	delete(g.conns, connID)
	g.mu.Unlock()
	if ok {
		c.close()
	}
}

func (g *Gateway) Send(connID string, msg any) {
	g.mu.RLock()
	c, ok := g.conns[connID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.writeJSON(msg); err != nil {
		zap.L().Debug("ws.send_failed", zap.String("conn", connID), zap.Error(err))
		g.Drop(connID)
	}
}

// Broadcast delivers msg to every registered socket. One dead socket never
// aborts delivery to the rest.
func (g *Gateway) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		zap.L().Warn("ws.broadcast_marshal", zap.Error(err))
		return
	}

	// Snapshot the registry, do the I/O outside the lock.
	g.mu.RLock()
	ids := make([]string, 0, len(g.conns))
	conns := make([]*clientConn, 0, len(g.conns))
	for id, c := range g.conns {
		ids = append(ids, id)
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for i, c := range conns {
		if err := c.write(websocket.TextMessage, data); err != nil {
			g.Drop(ids[i])
		}
	}
}
