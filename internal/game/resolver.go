package game

import "github.com/google/uuid"

// ResolveJoin reconciles an incoming join against existing membership.
// A token match means reconnection and the matching player is returned for
// in-place update. No match (or no token) means a brand-new join.
//
// The token is the sole source of truth for identity. The client-supplied
// "isReconnection" hint is advisory only; trusting it would let a buggy or
// malicious client take over another player's seat.
func ResolveJoin(players []*Player, sessionToken string) *Player {
	if sessionToken == "" {
		return nil
	}
	for _, p := range players {
		if p.SessionToken == sessionToken {
			return p
		}
	}
	return nil
}

// MintToken issues a fresh durable session token for a first-time join.
func MintToken() string { return uuid.NewString() }
