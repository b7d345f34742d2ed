package ws

import "storyrelaygo/internal/game"

// Client -> coordinator message types.
const (
	msgJoin             = "join"
	msgUpdateSettings   = "update_game_settings"
	msgStartGame        = "start_game"
	msgSubmitSentence   = "submit_sentence"
	msgStartPlayback    = "start_tts_playback"
	msgPlaybackComplete = "tts_sentence_complete"
)

// ──────────────────────────── Inbound DTOs ──────────────────────────────────

type JoinRequest struct {
	PlayerName     string `json:"playerName"`
	SessionID      string `json:"sessionId"`
	IsReconnection bool   `json:"isReconnection"` // advisory only, never trusted
}

type UpdateSettingsRequest struct {
	RoundsPerPlayer int `json:"roundsPerPlayer"`
}

type StartGameRequest struct{}

type SubmitSentenceRequest struct {
	Sentence string `json:"sentence"`
}

type StartPlaybackRequest struct{}

type PlaybackCompleteRequest struct {
	SentenceIndex int `json:"sentenceIndex"`
}

// ──────────────────────────── Outbound DTOs ─────────────────────────────────

// PlayerView is the membership entry shared with every client. Session
// tokens stay server-side; broadcasting them would allow seat takeover.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

func memberViews(players []*game.Player) []PlayerView {
	views := make([]PlayerView, len(players))
	for i, p := range players {
		views[i] = PlayerView{ID: p.ConnectionID, Name: p.Name, Connected: p.Connected}
	}
	return views
}

type ConnectedMsg struct {
	Type     string `json:"type"` // "connected"
	PlayerID string `json:"playerId"`
}

type JoinSuccessMsg struct {
	Type      string       `json:"type"` // "join_success"
	PlayerID  string       `json:"playerId"`
	SessionID string       `json:"sessionId"`
	IsHost    bool         `json:"isHost"`
	Players   []PlayerView `json:"players"`
	RoomCode  string       `json:"roomCode"`
}

type PlayerJoinedMsg struct {
	Type            string       `json:"type"` // "player_joined"
	PlayerName      string       `json:"playerName"`
	Players         []PlayerView `json:"players"`
	RoomCode        string       `json:"roomCode"`
	RoundsPerPlayer int          `json:"roundsPerPlayer"`
}

type PlayerLeftMsg struct {
	Type    string       `json:"type"` // "player_left"
	Players []PlayerView `json:"players"`
}

type PlayerDisconnectedMsg struct {
	Type       string       `json:"type"` // "player_disconnected"
	PlayerName string       `json:"playerName"`
	Players    []PlayerView `json:"players"`
}

type PlayerReconnectedMsg struct {
	Type       string       `json:"type"` // "player_reconnected"
	PlayerName string       `json:"playerName"`
	Players    []PlayerView `json:"players"`
}

type SettingsUpdatedMsg struct {
	Type            string `json:"type"` // "game_settings_updated"
	RoundsPerPlayer int    `json:"roundsPerPlayer"`
	TotalTurns      int    `json:"totalTurns"`
}

type GameStartedMsg struct {
	Type          string       `json:"type"` // "game_started"
	Players       []PlayerView `json:"players"`
	CurrentPlayer PlayerView   `json:"currentPlayer"`
}

type YourTurnMsg struct {
	Type             string  `json:"type"` // "your_turn"
	PreviousSentence *string `json:"previousSentence"`
	TurnNumber       int     `json:"turnNumber"`
	TotalTurns       int     `json:"totalTurns"`
	CurrentRound     int     `json:"currentRound"`
	TotalRounds      int     `json:"totalRounds"`
}

type WaitingTurnMsg struct {
	Type              string `json:"type"` // "waiting_turn"
	CurrentPlayerName string `json:"currentPlayerName"`
	TurnNumber        int    `json:"turnNumber"`
	TotalTurns        int    `json:"totalTurns"`
	CurrentRound      int    `json:"currentRound"`
	TotalRounds       int    `json:"totalRounds"`
}

type StoryCompleteMsg struct {
	Type  string              `json:"type"` // "story_complete"
	Story []game.Contribution `json:"story"`
}

type PlaybackStartMsg struct {
	Type    string `json:"type"` // "tts_playback_start"
	StartAt int64  `json:"startTime"`
}

// RoundInfo accompanies turn prompts inside reconnection resyncs.
type RoundInfo struct {
	CurrentRound int `json:"currentRound"`
	TotalRounds  int `json:"totalRounds"`
}

// ResyncState is the phase-tailored snapshot sent to a reconnecting player.
type ResyncState struct {
	GameStarted       bool                `json:"gameStarted"`
	GameComplete      bool                `json:"gameComplete,omitempty"`
	CurrentTurn       bool                `json:"currentTurn,omitempty"`
	PreviousSentence  *string             `json:"previousSentence,omitempty"`
	CurrentPlayerName string              `json:"currentPlayerName,omitempty"`
	TurnNumber        int                 `json:"turnNumber,omitempty"`
	TotalTurns        int                 `json:"totalTurns,omitempty"`
	RoundInfo         *RoundInfo          `json:"roundInfo,omitempty"`
	Story             []game.Contribution `json:"story,omitempty"`
	Players           []PlayerView        `json:"players"`
	RoomCode          string              `json:"roomCode,omitempty"`
}

type ReconnectedMsg struct {
	Type      string      `json:"type"` // "reconnected"
	SessionID string      `json:"sessionId"`
	GameState ResyncState `json:"gameState"`
}

type ErrorMsg struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
