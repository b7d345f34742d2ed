package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyrelaygo/internal/game"
)

// memStore keeps snapshots in memory, matching the store contract that a
// missing code loads as a fresh lobby.
type memStore struct {
	sessions map[string]*game.Session
	saves    int
}

func newMemStore() *memStore { return &memStore{sessions: map[string]*game.Session{}} }

func (m *memStore) Load(_ context.Context, code string) (*game.Session, error) {
	if s, ok := m.sessions[code]; ok {
		return s, nil
	}
	return game.NewSession(code), nil
}

func (m *memStore) Save(_ context.Context, sess *game.Session) error {
	m.sessions[sess.Code] = sess
	m.saves++
	return nil
}

// fakeSender records every delivery in issue order. Broadcasts are recorded
// with an empty conn id.
type delivery struct {
	connID string
	msg    any
}

type fakeSender struct {
	sent    []delivery
	dropped []string
}

func (f *fakeSender) Send(connID string, msg any) { f.sent = append(f.sent, delivery{connID, msg}) }
func (f *fakeSender) Broadcast(msg any)           { f.sent = append(f.sent, delivery{"", msg}) }
func (f *fakeSender) Drop(connID string)          { f.dropped = append(f.dropped, connID) }

func (f *fakeSender) reset() { f.sent = nil; f.dropped = nil }

// yourTurns returns every your_turn prompt delivered to connID.
func (f *fakeSender) yourTurns(connID string) []YourTurnMsg {
	var out []YourTurnMsg
	for _, d := range f.sent {
		if d.connID == connID {
			if m, ok := d.msg.(YourTurnMsg); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (f *fakeSender) broadcasts() []any {
	var out []any
	for _, d := range f.sent {
		if d.connID == "" {
			out = append(out, d.msg)
		}
	}
	return out
}

var testNow = time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeSender, *memStore) {
	t.Helper()
	store := newMemStore()
	sender := &fakeSender{}
	co := NewCoordinator("ABCD", store, sender, time.Second)
	co.now = func() time.Time { return testNow }
	return co, sender, store
}

// join runs a first-time join and returns the minted session token.
func join(t *testing.T, co *Coordinator, f *fakeSender, connID, name string) string {
	t.Helper()
	require.NoError(t, co.Join(context.Background(), connID, JoinRequest{PlayerName: name}))
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].connID == connID {
			if m, ok := f.sent[i].msg.(JoinSuccessMsg); ok {
				return m.SessionID
			}
		}
	}
	t.Fatalf("no join_success delivered to %s", connID)
	return ""
}

func startTwoPlayerGame(t *testing.T, co *Coordinator, f *fakeSender) (hostToken, benToken string) {
	t.Helper()
	hostToken = join(t, co, f, "c-ada", "Ada")
	benToken = join(t, co, f, "c-ben", "Ben")
	require.NoError(t, co.StartGame(context.Background(), "c-ada"))
	return hostToken, benToken
}

func TestJoinAssignsHostToFirstPlayer(t *testing.T) {
	co, f, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, co.Join(ctx, "c-ada", JoinRequest{PlayerName: "Ada"}))

	require.NotEmpty(t, f.sent)
	first, ok := f.sent[0].msg.(JoinSuccessMsg)
	require.True(t, ok, "requester's confirmation is delivered before any broadcast")
	assert.Equal(t, "c-ada", f.sent[0].connID)
	assert.True(t, first.IsHost)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "ABCD", first.RoomCode)

	require.NoError(t, co.Join(ctx, "c-ben", JoinRequest{PlayerName: "Ben"}))
	var second JoinSuccessMsg
	for _, d := range f.sent {
		if d.connID == "c-ben" {
			second, _ = d.msg.(JoinSuccessMsg)
		}
	}
	assert.False(t, second.IsHost)

	joined, ok := f.sent[len(f.sent)-1].msg.(PlayerJoinedMsg)
	require.True(t, ok)
	assert.Equal(t, "Ben", joined.PlayerName)
	assert.Len(t, joined.Players, 2)
	assert.Equal(t, 1, joined.RoundsPerPlayer)
}

func TestJoinDefaultsBlankName(t *testing.T) {
	co, f, store := newTestCoordinator(t)

	join(t, co, f, "c-1", "  ")

	sess := store.sessions["ABCD"]
	require.Len(t, sess.Players, 1)
	assert.Equal(t, "Player 1", sess.Players[0].Name)
}

func TestNewJoinRejectedOnceStarted(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	startTwoPlayerGame(t, co, f)

	err := co.Join(context.Background(), "c-late", JoinRequest{PlayerName: "Late"})
	assert.ErrorIs(t, err, game.ErrGameNotJoinable)
	assert.Len(t, store.sessions["ABCD"].Players, 2)
}

func TestReconnectionIsIdempotent(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	token := join(t, co, f, "c-old", "Ada")
	f.reset()

	// Same token joining again never creates a second player.
	require.NoError(t, co.Join(context.Background(), "c-new", JoinRequest{
		PlayerName: "Ada", SessionID: token, IsReconnection: true,
	}))

	sess := store.sessions["ABCD"]
	require.Len(t, sess.Players, 1)
	assert.Equal(t, "c-new", sess.Players[0].ConnectionID)
	assert.True(t, sess.Players[0].Connected)
	assert.Contains(t, f.dropped, "c-old", "stale socket is evicted")

	resync, ok := f.sent[0].msg.(ReconnectedMsg)
	require.True(t, ok)
	assert.Equal(t, "c-new", f.sent[0].connID)
	assert.Equal(t, token, resync.SessionID)
	assert.False(t, resync.GameState.GameStarted)
	assert.Equal(t, "ABCD", resync.GameState.RoomCode)
}

func TestReconnectHintWithoutTokenIsPlainJoin(t *testing.T) {
	co, _, store := newTestCoordinator(t)

	// The advisory flag alone must never resolve to an existing seat.
	require.NoError(t, co.Join(context.Background(), "c-1", JoinRequest{
		PlayerName: "Ada", IsReconnection: true,
	}))
	require.NoError(t, co.Join(context.Background(), "c-2", JoinRequest{
		PlayerName: "Mallory", IsReconnection: true,
	}))

	assert.Len(t, store.sessions["ABCD"].Players, 2)
}

func TestUpdateSettings(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	join(t, co, f, "c-ada", "Ada")
	join(t, co, f, "c-ben", "Ben")
	f.reset()

	assert.ErrorIs(t, co.UpdateSettings(ctx, "c-ben", 3), game.ErrForbidden)
	assert.ErrorIs(t, co.UpdateSettings(ctx, "c-ada", 0), game.ErrInvalidArgument)
	assert.ErrorIs(t, co.UpdateSettings(ctx, "c-ada", 11), game.ErrInvalidArgument)
	assert.Empty(t, f.sent, "rejected updates emit nothing")

	require.NoError(t, co.UpdateSettings(ctx, "c-ada", 3))
	assert.Equal(t, 3, store.sessions["ABCD"].RoundsPerPlayer)

	updated, ok := f.sent[0].msg.(SettingsUpdatedMsg)
	require.True(t, ok)
	assert.Equal(t, 3, updated.RoundsPerPlayer)
	assert.Equal(t, 6, updated.TotalTurns)
}

func TestUpdateSettingsRejectedAfterStart(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	startTwoPlayerGame(t, co, f)

	// Regardless of sender, including the host.
	assert.ErrorIs(t, co.UpdateSettings(context.Background(), "c-ada", 2), game.ErrForbidden)
	assert.Equal(t, 1, store.sessions["ABCD"].RoundsPerPlayer)
}

func TestStartGamePreconditions(t *testing.T) {
	co, f, _ := newTestCoordinator(t)
	ctx := context.Background()
	join(t, co, f, "c-ada", "Ada")

	err := co.StartGame(ctx, "c-ada")
	assert.ErrorIs(t, err, game.ErrPreconditionFailed, "needs at least two players")

	join(t, co, f, "c-ben", "Ben")
	assert.ErrorIs(t, co.StartGame(ctx, "c-ben"), game.ErrForbidden, "only the host starts")

	require.NoError(t, co.StartGame(ctx, "c-ada"))
	assert.ErrorIs(t, co.StartGame(ctx, "c-ada"), game.ErrPreconditionFailed, "no restart")
}

func TestStartGamePrompts(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	join(t, co, f, "c-ada", "Ada")
	join(t, co, f, "c-ben", "Ben")
	f.reset()

	require.NoError(t, co.StartGame(context.Background(), "c-ada"))

	sess := store.sessions["ABCD"]
	assert.True(t, sess.Started)
	assert.Equal(t, 0, sess.TurnCursor)
	assert.Equal(t, 2, sess.TotalTurns)

	started, ok := f.sent[0].msg.(GameStartedMsg)
	require.True(t, ok)
	assert.Equal(t, "Ada", started.CurrentPlayer.Name)

	turns := f.yourTurns("c-ada")
	require.Len(t, turns, 1)
	assert.Nil(t, turns[0].PreviousSentence)
	assert.Equal(t, 1, turns[0].TurnNumber)
	assert.Equal(t, 2, turns[0].TotalTurns)
	assert.Equal(t, 1, turns[0].CurrentRound)
	assert.Equal(t, 1, turns[0].TotalRounds)

	waiting, ok := f.sent[len(f.sent)-1].msg.(WaitingTurnMsg)
	require.True(t, ok)
	assert.Equal(t, "c-ben", f.sent[len(f.sent)-1].connID)
	assert.Equal(t, "Ada", waiting.CurrentPlayerName)
}

func TestOutOfTurnSubmissionNeverMutates(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	startTwoPlayerGame(t, co, f)
	f.reset()

	err := co.SubmitSentence(context.Background(), "c-ben", "I go first!")
	assert.ErrorIs(t, err, game.ErrOutOfTurn)

	sess := store.sessions["ABCD"]
	assert.Empty(t, sess.Story)
	assert.Equal(t, 0, sess.TurnCursor)
	assert.Empty(t, f.sent)
}

func TestSubmitRejectsBlankSentence(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	startTwoPlayerGame(t, co, f)

	err := co.SubmitSentence(context.Background(), "c-ada", "   ")
	assert.ErrorIs(t, err, game.ErrInvalidArgument)
	assert.Empty(t, store.sessions["ABCD"].Story)
}

func TestSubmitBeforeStartRejected(t *testing.T) {
	co, f, _ := newTestCoordinator(t)
	join(t, co, f, "c-ada", "Ada")

	err := co.SubmitSentence(context.Background(), "c-ada", "Too early.")
	assert.ErrorIs(t, err, game.ErrPreconditionFailed)
}

// Two players, one round each: the second player sees only the first
// sentence, and completion broadcasts the exact story.
func TestTwoPlayersSingleRound(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	hostToken, benToken := startTwoPlayerGame(t, co, f)
	f.reset()

	require.NoError(t, co.SubmitSentence(ctx, "c-ada", "The cat sat."))

	turns := f.yourTurns("c-ben")
	require.Len(t, turns, 1)
	require.NotNil(t, turns[0].PreviousSentence)
	assert.Equal(t, "The cat sat.", *turns[0].PreviousSentence)
	assert.Equal(t, 2, turns[0].TurnNumber)

	require.NoError(t, co.SubmitSentence(ctx, "c-ben", "It purred."))

	var complete *StoryCompleteMsg
	for _, b := range f.broadcasts() {
		if m, ok := b.(StoryCompleteMsg); ok {
			complete = &m
		}
	}
	require.NotNil(t, complete, "completion is broadcast to everyone")
	assert.Equal(t, []game.Contribution{
		{AuthorToken: hostToken, AuthorName: "Ada", Sentence: "The cat sat.", Round: 1, Turn: 1},
		{AuthorToken: benToken, AuthorName: "Ben", Sentence: "It purred.", Round: 1, Turn: 2},
	}, complete.Story)

	sess := store.sessions["ABCD"]
	assert.True(t, sess.Completed)
	assert.Equal(t, 2, sess.TurnCursor)
	assert.Len(t, sess.Story, 2)
}

// Two players, two rounds: prompts report rounds 1,1,2,2 and each player
// authors exactly roundsPerPlayer sentences in round-robin order.
func TestTwoPlayersTwoRounds(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	join(t, co, f, "c-ada", "Ada")
	join(t, co, f, "c-ben", "Ben")
	require.NoError(t, co.UpdateSettings(ctx, "c-ada", 2))
	f.reset()
	require.NoError(t, co.StartGame(ctx, "c-ada"))

	sentences := []struct {
		conn string
		text string
	}{
		{"c-ada", "One."},
		{"c-ben", "Two."},
		{"c-ada", "Three."},
		{"c-ben", "Four."},
	}
	for _, s := range sentences {
		require.NoError(t, co.SubmitSentence(ctx, s.conn, s.text))
	}

	var rounds []int
	for _, d := range f.sent {
		if m, ok := d.msg.(YourTurnMsg); ok && d.connID != "" {
			rounds = append(rounds, m.CurrentRound)
		}
	}
	assert.Equal(t, []int{1, 1, 2, 2}, rounds)

	sess := store.sessions["ABCD"]
	require.True(t, sess.Completed)
	require.Len(t, sess.Story, 4)
	authors := map[string]int{}
	for i, c := range sess.Story {
		authors[c.AuthorName]++
		assert.Equal(t, i+1, c.Turn)
		assert.Equal(t, i/2+1, c.Round)
	}
	assert.Equal(t, map[string]int{"Ada": 2, "Ben": 2}, authors)
}

// A player who drops mid-game and reconnects with the same token still gets
// their turn prompt, with the correct previous sentence, on the new socket.
func TestDisconnectThenReconnectKeepsTurn(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	_, benToken := startTwoPlayerGame(t, co, f)
	f.reset()

	require.NoError(t, co.Disconnect(ctx, "c-ben"))

	sess := store.sessions["ABCD"]
	require.Len(t, sess.Players, 2, "mid-game disconnects never remove players")
	assert.False(t, sess.Players[1].Connected)
	gone, ok := f.sent[0].msg.(PlayerDisconnectedMsg)
	require.True(t, ok)
	assert.Equal(t, "Ben", gone.PlayerName)

	require.NoError(t, co.Join(ctx, "c-ben2", JoinRequest{PlayerName: "Ben", SessionID: benToken}))
	resync := f.sent[1].msg.(ReconnectedMsg)
	assert.True(t, resync.GameState.GameStarted)
	assert.False(t, resync.GameState.CurrentTurn)
	assert.Equal(t, "Ada", resync.GameState.CurrentPlayerName)

	f.reset()
	require.NoError(t, co.SubmitSentence(ctx, "c-ada", "The cat sat."))

	turns := f.yourTurns("c-ben2")
	require.Len(t, turns, 1)
	require.NotNil(t, turns[0].PreviousSentence)
	assert.Equal(t, "The cat sat.", *turns[0].PreviousSentence)
}

func TestLobbyDisconnectRemovesPlayer(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	join(t, co, f, "c-ada", "Ada")
	join(t, co, f, "c-ben", "Ben")
	f.reset()

	require.NoError(t, co.Disconnect(ctx, "c-ben"))

	sess := store.sessions["ABCD"]
	require.Len(t, sess.Players, 1)
	left, ok := f.sent[0].msg.(PlayerLeftMsg)
	require.True(t, ok)
	assert.Len(t, left.Players, 1)

	// Unknown connection ids are stale and ignored.
	saves := store.saves
	require.NoError(t, co.Disconnect(ctx, "c-gone"))
	assert.Equal(t, saves, store.saves)
	assert.Len(t, f.sent, 1)
}

func TestPlaybackLifecycle(t *testing.T) {
	co, f, store := newTestCoordinator(t)
	ctx := context.Background()
	_, benToken := startTwoPlayerGame(t, co, f)

	err := co.StartPlayback(ctx, "c-ada")
	assert.ErrorIs(t, err, game.ErrPreconditionFailed, "playback needs a finished story")

	require.NoError(t, co.SubmitSentence(ctx, "c-ada", "The cat sat."))
	require.NoError(t, co.SubmitSentence(ctx, "c-ben", "It purred."))
	f.reset()

	require.NoError(t, co.StartPlayback(ctx, "c-ben"))

	start, ok := f.sent[0].msg.(PlaybackStartMsg)
	require.True(t, ok)
	assert.Equal(t, testNow.Add(time.Second).UnixMilli(), start.StartAt)

	sess := store.sessions["ABCD"]
	assert.True(t, sess.Playback.Active)
	assert.Equal(t, benToken, sess.Playback.InitiatorToken)

	require.NoError(t, co.PlaybackComplete(ctx, "c-ada", 0))
	assert.Equal(t, 1, sess.Playback.SentenceIndex)

	// Progress markers clamp to the story length and emit nothing.
	require.NoError(t, co.PlaybackComplete(ctx, "c-ada", 99))
	assert.Equal(t, 2, sess.Playback.SentenceIndex)
	assert.Len(t, f.sent, 1)
}

func TestReconnectResyncAfterCompletion(t *testing.T) {
	co, f, _ := newTestCoordinator(t)
	ctx := context.Background()
	_, benToken := startTwoPlayerGame(t, co, f)
	require.NoError(t, co.SubmitSentence(ctx, "c-ada", "The cat sat."))
	require.NoError(t, co.SubmitSentence(ctx, "c-ben", "It purred."))
	f.reset()

	require.NoError(t, co.Join(ctx, "c-ben2", JoinRequest{SessionID: benToken}))

	resync := f.sent[0].msg.(ReconnectedMsg)
	assert.True(t, resync.GameState.GameComplete)
	require.Len(t, resync.GameState.Story, 2)
	assert.Equal(t, "It purred.", resync.GameState.Story[1].Sentence)
}
