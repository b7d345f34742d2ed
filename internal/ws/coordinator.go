package ws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storyrelaygo/internal/game"
)

// Store persists session snapshots.
type Store interface {
	Load(ctx context.Context, code string) (*game.Session, error)
	Save(ctx context.Context, sess *game.Session) error
}

// Coordinator is the single-writer actor owning one room's authoritative
// state. Every operation runs under the coordinator mutex from validation
// through persistence and delivery, so exactly one event is in flight per
// room at any time. Rooms are fully independent of each other.
type Coordinator struct {
	code  string
	store Store
	gw    Sender

	syncBuffer time.Duration
	now        func() time.Time

	mu sync.Mutex
}

func NewCoordinator(code string, store Store, gw Sender, syncBuffer time.Duration) *Coordinator {
	return &Coordinator{
		code:       code,
		store:      store,
		gw:         gw,
		syncBuffer: syncBuffer,
		now:        time.Now,
	}
}

// Join handles both first-time joins and reconnections. The session token is
// the sole source of truth for which one it is.
func (co *Coordinator) Join(ctx context.Context, connID string, req JoinRequest) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}

	if p := game.ResolveJoin(sess.Players, req.SessionID); p != nil {
		return co.reconnect(ctx, sess, p, connID)
	}

	if req.IsReconnection {
		// Hint without a matching token: treat as a plain join, but leave a
		// trace for debugging flaky clients.
		zap.L().Info("ws.reconnect_hint_unmatched",
			zap.String("room", co.code), zap.String("conn", connID))
	}

	if sess.Started {
		return game.ErrGameNotJoinable
	}

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		name = fmt.Sprintf("Player %d", len(sess.Players)+1)
	}
	token := req.SessionID
	if token == "" {
		token = game.MintToken()
	}

	player := &game.Player{
		ConnectionID: connID,
		Name:         name,
		SessionToken: token,
		Connected:    true,
		LastSeen:     co.now().UnixMilli(),
	}
	sess.Players = append(sess.Players, player)

	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}

	co.gw.Send(connID, JoinSuccessMsg{
		Type:      "join_success",
		PlayerID:  connID,
		SessionID: token,
		IsHost:    len(sess.Players) == 1,
		Players:   memberViews(sess.Players),
		RoomCode:  sess.Code,
	})
	co.gw.Broadcast(PlayerJoinedMsg{
		Type:            "player_joined",
		PlayerName:      player.Name,
		Players:         memberViews(sess.Players),
		RoomCode:        sess.Code,
		RoundsPerPlayer: sess.RoundsPerPlayer,
	})
	return nil
}

func (co *Coordinator) reconnect(ctx context.Context, sess *game.Session, p *game.Player, connID string) error {
	oldConn := p.ConnectionID
	p.ConnectionID = connID
	p.Connected = true
	p.LastSeen = co.now().UnixMilli()

	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}

	// Evict the stale socket, if one is still registered under the old id.
	if oldConn != connID {
		co.gw.Drop(oldConn)
	}

	co.gw.Send(connID, ReconnectedMsg{
		Type:      "reconnected",
		SessionID: p.SessionToken,
		GameState: co.resyncState(sess, p),
	})
	co.gw.Broadcast(PlayerReconnectedMsg{
		Type:       "player_reconnected",
		PlayerName: p.Name,
		Players:    memberViews(sess.Players),
	})
	return nil
}

// resyncState builds the snapshot a reconnecting player needs, tailored to
// the game phase.
func (co *Coordinator) resyncState(sess *game.Session, p *game.Player) ResyncState {
	views := memberViews(sess.Players)

	if !sess.Started {
		return ResyncState{Players: views, RoomCode: sess.Code}
	}

	if sess.Completed {
		return ResyncState{
			GameStarted:  true,
			GameComplete: true,
			Story:        sess.Story,
			Players:      views,
		}
	}

	current := sess.CurrentPlayer()
	state := ResyncState{
		GameStarted: true,
		TurnNumber:  sess.TurnCursor + 1,
		TotalTurns:  sess.TotalTurns,
		RoundInfo: &RoundInfo{
			CurrentRound: game.CurrentRound(sess.TurnCursor, len(sess.Players)),
			TotalRounds:  sess.RoundsPerPlayer,
		},
		Players: views,
	}
	if current == p {
		state.CurrentTurn = true
		state.PreviousSentence = sess.LastSentence()
	} else {
		state.CurrentPlayerName = current.Name
	}
	return state
}

// UpdateSettings changes rounds-per-player. Host-only, lobby-only.
func (co *Coordinator) UpdateSettings(ctx context.Context, connID string, rounds int) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}
	if !sess.IsHost(connID) {
		return fmt.Errorf("%w: only the host can change game settings", game.ErrForbidden)
	}
	if sess.Started {
		return fmt.Errorf("%w: cannot change settings after the game has started", game.ErrForbidden)
	}
	if rounds < 1 || rounds > 10 {
		return fmt.Errorf("%w: rounds per player must be between 1 and 10", game.ErrInvalidArgument)
	}

	sess.RoundsPerPlayer = rounds
	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}

	co.gw.Broadcast(SettingsUpdatedMsg{
		Type:            "game_settings_updated",
		RoundsPerPlayer: rounds,
		TotalTurns:      game.TotalTurns(len(sess.Players), rounds),
	})
	return nil
}

// StartGame transitions lobby -> in progress. Host-only, needs two players.
func (co *Coordinator) StartGame(ctx context.Context, connID string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}
	if !sess.IsHost(connID) {
		return fmt.Errorf("%w: only the host can start the game", game.ErrForbidden)
	}
	if sess.Started {
		return fmt.Errorf("%w: game already started", game.ErrPreconditionFailed)
	}
	if len(sess.Players) < 2 {
		return fmt.Errorf("%w: need at least 2 players to start", game.ErrPreconditionFailed)
	}

	sess.Started = true
	sess.TurnCursor = 0
	sess.Story = []game.Contribution{}
	sess.TotalTurns = game.TotalTurns(len(sess.Players), sess.RoundsPerPlayer)

	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}

	co.gw.Broadcast(GameStartedMsg{
		Type:          "game_started",
		Players:       memberViews(sess.Players),
		CurrentPlayer: memberViews(sess.Players)[0],
	})
	co.sendTurnPrompts(sess, nil)
	return nil
}

// SubmitSentence appends the current player's contribution and advances the
// turn cursor, completing the game when the last turn lands.
func (co *Coordinator) SubmitSentence(ctx context.Context, connID, sentence string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}
	if !sess.Started || sess.Completed {
		return fmt.Errorf("%w: game is not in progress", game.ErrPreconditionFailed)
	}

	current := sess.CurrentPlayer()
	if current.ConnectionID != connID {
		return game.ErrOutOfTurn
	}

	trimmed := strings.TrimSpace(sentence)
	if trimmed == "" {
		return fmt.Errorf("%w: sentence cannot be empty", game.ErrInvalidArgument)
	}

	sess.Story = append(sess.Story, game.Contribution{
		AuthorToken: current.SessionToken,
		AuthorName:  current.Name,
		Sentence:    trimmed,
		Round:       game.CurrentRound(sess.TurnCursor, len(sess.Players)),
		Turn:        sess.TurnCursor + 1,
	})
	sess.TurnCursor++

	if game.IsComplete(sess.TurnCursor, len(sess.Players), sess.RoundsPerPlayer) {
		sess.Completed = true
		if err := co.store.Save(ctx, sess); err != nil {
			return err
		}
		co.gw.Broadcast(StoryCompleteMsg{Type: "story_complete", Story: sess.Story})
		return nil
	}

	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}
	co.sendTurnPrompts(sess, sess.LastSentence())
	return nil
}

// sendTurnPrompts tells the current player it is their turn (with only the
// immediately preceding sentence, never the full story) and everyone else
// who they are waiting on.
func (co *Coordinator) sendTurnPrompts(sess *game.Session, previous *string) {
	current := sess.CurrentPlayer()
	turnNumber := sess.TurnCursor + 1
	round := game.CurrentRound(sess.TurnCursor, len(sess.Players))

	co.gw.Send(current.ConnectionID, YourTurnMsg{
		Type:             "your_turn",
		PreviousSentence: previous,
		TurnNumber:       turnNumber,
		TotalTurns:       sess.TotalTurns,
		CurrentRound:     round,
		TotalRounds:      sess.RoundsPerPlayer,
	})
	for _, p := range sess.Players {
		if p == current {
			continue
		}
		co.gw.Send(p.ConnectionID, WaitingTurnMsg{
			Type:              "waiting_turn",
			CurrentPlayerName: current.Name,
			TurnNumber:        turnNumber,
			TotalTurns:        sess.TotalTurns,
			CurrentRound:      round,
			TotalRounds:       sess.RoundsPerPlayer,
		})
	}
}

// StartPlayback schedules the synchronized read-aloud: a single shared start
// instant a short buffer from now, giving every client time to prepare.
func (co *Coordinator) StartPlayback(ctx context.Context, connID string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}
	if !sess.Completed {
		return fmt.Errorf("%w: game must be complete to play audio", game.ErrPreconditionFailed)
	}

	var initiator string
	if p := sess.PlayerByConnection(connID); p != nil {
		initiator = p.SessionToken
	}
	startAt := co.now().Add(co.syncBuffer).UnixMilli()
	sess.Playback = game.PlaybackState{
		Active:         true,
		InitiatorToken: initiator,
		StartAt:        startAt,
	}

	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}
	co.gw.Broadcast(PlaybackStartMsg{Type: "tts_playback_start", StartAt: startAt})
	return nil
}

// PlaybackComplete records one client's progress marker. Low stakes, no
// broadcast.
func (co *Coordinator) PlaybackComplete(ctx context.Context, connID string, index int) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}

	next := index + 1
	if next < 0 {
		next = 0
	}
	if next > len(sess.Story) {
		next = len(sess.Story)
	}
	sess.Playback.SentenceIndex = next
	return co.store.Save(ctx, sess)
}

// Disconnect handles a socket going away. Pre-game the player is removed;
// once the game has started they are kept offline forever so their token
// stays resolvable and their contributions stay attributed.
func (co *Coordinator) Disconnect(ctx context.Context, connID string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	sess, err := co.store.Load(ctx, co.code)
	if err != nil {
		return err
	}
	p := sess.PlayerByConnection(connID)
	if p == nil {
		return nil // stale connection, already superseded
	}

	if !sess.Started {
		sess.RemovePlayer(connID)
		if err := co.store.Save(ctx, sess); err != nil {
			return err
		}
		co.gw.Broadcast(PlayerLeftMsg{Type: "player_left", Players: memberViews(sess.Players)})
		return nil
	}

	p.Connected = false
	p.LastSeen = co.now().UnixMilli()
	if err := co.store.Save(ctx, sess); err != nil {
		return err
	}
	co.gw.Broadcast(PlayerDisconnectedMsg{
		Type:       "player_disconnected",
		PlayerName: p.Name,
		Players:    memberViews(sess.Players),
	})
	return nil
}
