package game

// Session is the full snapshot of one story room. It is owned by exactly one
// coordinator for its lifetime; nothing outside the coordinator mutates it.
type Session struct {
	Code            string         `json:"roomCode"`
	Players         []*Player      `json:"players"`
	Story           []Contribution `json:"story"`
	Started         bool           `json:"gameStarted"`
	Completed       bool           `json:"gameComplete"`
	TurnCursor      int            `json:"currentTurnIndex"`
	RoundsPerPlayer int            `json:"roundsPerPlayer"`
	TotalTurns      int            `json:"totalTurns"`
	Playback        PlaybackState  `json:"ttsState"`
}

// Player is one participant. SessionToken is the durable identity; the
// connection id is swapped on every reconnect.
type Player struct {
	ConnectionID string `json:"id"`
	Name         string `json:"name"`
	SessionToken string `json:"sessionId"`
	Connected    bool   `json:"connected"`
	LastSeen     int64  `json:"lastSeen"`
}

// Contribution is one turn's sentence, immutable once appended.
type Contribution struct {
	AuthorToken string `json:"authorId"`
	AuthorName  string `json:"playerName"`
	Sentence    string `json:"sentence"`
	Round       int    `json:"roundNumber"`
	Turn        int    `json:"turnNumber"`
}

// PlaybackState tracks the synchronized read-aloud of a finished story.
type PlaybackState struct {
	Active         bool   `json:"isPlaying"`
	InitiatorToken string `json:"startedBy,omitempty"`
	StartAt        int64  `json:"startTime,omitempty"`
	SentenceIndex  int    `json:"currentSentenceIndex"`
}

// SessionInfo is the read-only out-of-band summary of a room.
type SessionInfo struct {
	Code        string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	Started     bool   `json:"gameStarted"`
	Completed   bool   `json:"gameComplete"`
}

func NewSession(code string) *Session {
	return &Session{
		Code:            code,
		Players:         []*Player{},
		Story:           []Contribution{},
		RoundsPerPlayer: 1,
	}
}

func (s *Session) Info() SessionInfo {
	return SessionInfo{
		Code:        s.Code,
		PlayerCount: len(s.Players),
		Started:     s.Started,
		Completed:   s.Completed,
	}
}

// Host is the player at index 0. Callers must never reorder Players: the
// slice order defines both host privilege and turn rotation.
func (s *Session) Host() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[0]
}

func (s *Session) IsHost(connectionID string) bool {
	h := s.Host()
	return h != nil && h.ConnectionID == connectionID
}

// CurrentPlayer is only meaningful while the game is in progress.
func (s *Session) CurrentPlayer() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[CurrentMemberIndex(s.TurnCursor, len(s.Players))]
}

func (s *Session) PlayerByConnection(connectionID string) *Player {
	for _, p := range s.Players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

func (s *Session) RemovePlayer(connectionID string) {
	for i, p := range s.Players {
		if p.ConnectionID == connectionID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return
		}
	}
}

// LastSentence returns the most recent contribution's text, or nil before
// the first turn. Each actor only ever sees this single sentence.
func (s *Session) LastSentence() *string {
	if len(s.Story) == 0 {
		return nil
	}
	return &s.Story[len(s.Story)-1].Sentence
}
