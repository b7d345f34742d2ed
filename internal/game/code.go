package game

import (
	"math/rand/v2"
	"strings"
)

// Alphabets exclude visually ambiguous glyphs (0/O, 1/I/l).
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	shareIDAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

	RoomCodeLength = 4
	ShareIDLength  = 8
)

// NewRoomCode returns a 4-character human-shareable room code.
func NewRoomCode() string {
	return randomString(roomCodeAlphabet, RoomCodeLength)
}

// NewShareID returns an 8-character opaque story export identifier.
func NewShareID() string {
	return randomString(shareIDAlphabet, ShareIDLength)
}

// ValidRoomCode reports whether code is exactly four characters from the
// room-code alphabet. Callers should upcase first.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(roomCodeAlphabet, r) {
			return false
		}
	}
	return true
}

func randomString(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
