package room

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/events/mocks"
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/match"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/pkg/proto"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeParticipant struct {
	endpoint string
	local    bool

	mu      sync.Mutex
	msgs    []proto.Message
	stopped bool
}

func newFake(endpoint string) *fakeParticipant {
	return &fakeParticipant{endpoint: endpoint}
}

func (f *fakeParticipant) Deliver(msg proto.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeParticipant) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeParticipant) Endpoint() string { return f.endpoint }
func (f *fakeParticipant) Local() bool      { return f.local }

func (f *fakeParticipant) received() []proto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proto.Message(nil), f.msgs...)
}

func (f *fakeParticipant) ops() []proto.OpCode {
	var ops []proto.OpCode
	for _, msg := range f.received() {
		ops = append(ops, msg.Op)
	}
	return ops
}

func (f *fakeParticipant) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeParticipant) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

func newTestRoom(t *testing.T, local bool) *Room {
	t.Helper()
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	r := New(Config{Port: 8001, Local: local, TurnTimeout: time.Minute, Publisher: pub})
	t.Cleanup(r.stopTurnTimer)
	return r
}

// remoteMatch joins two remote participants and starts a match between them.
func remoteMatch(t *testing.T) (*Room, *fakeParticipant, *fakeParticipant) {
	t.Helper()
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice, bob := newFake("10.0.0.1:4000"), newFake("10.0.0.2:4000")
	r.join(ctx, alice)
	r.join(ctx, bob)

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice", "b")))
	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Ready, "bob")))
	require.Equal(t, match.OnGoing, r.match.Status())
	alice.reset()
	bob.reset()
	return r, alice, bob
}

func TestReadyStartsMatchAndArmsTimer(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice, bob := newFake("10.0.0.1:4000"), newFake("10.0.0.2:4000")
	r.join(ctx, alice)
	r.join(ctx, bob)

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice", "w")))
	assert.Equal(t, match.NotPrepared, r.match.Status())
	assert.Nil(t, r.turnTimerC, "no timer before the match starts")
	assert.Equal(t, []proto.OpCode{proto.Ready}, bob.ops())

	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Ready, "bob")))
	assert.Equal(t, match.OnGoing, r.match.Status())
	assert.Equal(t, []proto.OpCode{proto.Ready}, alice.ops())

	black, err := r.match.Player(game.Black, nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", black.Name)
	assert.NotNil(t, r.turnTimerC)
	assert.Equal(t, game.Black, r.timedPlayer.Role)
}

func TestReadyRejectsBadNamesAndDuplicates(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice := newFake("10.0.0.1:4000")
	r.join(ctx, alice)

	err := r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "not a name", "b"))
	assert.ErrorIs(t, err, proto.ErrProtocolViolation)

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice", "b")))
	err = r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice", "w"))
	assert.ErrorIs(t, err, match.ErrRoster)
	assert.Equal(t, match.NotPrepared, r.match.Status())
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice, bob := newFake("10.0.0.1:4000"), newFake("10.0.0.2:4000")
	r.join(ctx, alice)
	r.join(ctx, bob)

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice", "b")))
	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Reject)))
	assert.Empty(t, r.match.Players())
	assert.Equal(t, []proto.OpCode{proto.Reject}, alice.ops())
}

func TestRejectRefreshesLocalUI(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, true)
	solo := newFake("127.0.0.1:5000")
	solo.local = true
	r.join(ctx, solo)

	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.Ready, "solo", "b")))
	solo.reset()
	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.Reject)))
	assert.Empty(t, r.match.Players())
	assert.Equal(t, []proto.OpCode{proto.UpdateUIState}, solo.ops())
}

func TestMoveRelaysAndRearmsTimer(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Move, "E5", "1200")))

	assert.Equal(t, []proto.Message{proto.NewMessage(proto.Move, "E5", "1200")}, bob.received())
	assert.Empty(t, alice.received(), "the mover gets no echo")
	assert.Equal(t, 1, r.match.Round())
	assert.Equal(t, game.White, r.match.Current().Turn)
	assert.Equal(t, game.White, r.timedPlayer.Role)
	assert.NotNil(t, r.turnTimerC)
}

func TestMoveRejections(t *testing.T) {
	tests := []struct {
		name    string
		from    func(alice, bob *fakeParticipant) *fakeParticipant
		msg     proto.Message
		wantErr error
	}{
		{
			name:    "out of turn",
			from:    func(_, bob *fakeParticipant) *fakeParticipant { return bob },
			msg:     proto.NewMessage(proto.Move, "E5", "10"),
			wantErr: match.ErrIllegalOperation,
		},
		{
			name:    "off the board",
			from:    func(alice, _ *fakeParticipant) *fakeParticipant { return alice },
			msg:     proto.NewMessage(proto.Move, "J1", "10"),
			wantErr: proto.ErrProtocolViolation,
		},
		{
			name:    "bad elapsed time",
			from:    func(alice, _ *fakeParticipant) *fakeParticipant { return alice },
			msg:     proto.NewMessage(proto.Move, "E5", "soon"),
			wantErr: proto.ErrProtocolViolation,
		},
		{
			name:    "spectator",
			from:    func(_, _ *fakeParticipant) *fakeParticipant { return newFake("10.0.0.3:4000") },
			msg:     proto.NewMessage(proto.Move, "E5", "10"),
			wantErr: match.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, alice, bob := remoteMatch(t)
			before := r.match.Current()

			err := r.handleMessage(context.Background(), tt.from(alice, bob), tt.msg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, r.match.Current())
			assert.Equal(t, match.OnGoing, r.match.Status())
			assert.Equal(t, game.Black, r.timedPlayer.Role, "the running clock is untouched")
		})
	}
}

func TestMoveOnOccupiedPoint(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Move, "E5", "10")))

	err := r.handleMessage(ctx, bob, proto.NewMessage(proto.Move, "E5", "10"))
	assert.ErrorIs(t, err, match.ErrOccupied)
	assert.Equal(t, 1, r.match.Round())
}

func TestCaptureEndsMatchWithSuicide(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)

	moves := []string{"B1", "B2", "A2", "I9", "C2", "I8", "B3"}
	for i, token := range moves {
		from := alice
		if i%2 == 1 {
			from = bob
		}
		require.NoError(t, r.handleMessage(ctx, from, proto.NewMessage(proto.Move, token, strconv.Itoa(100*i))), token)
	}

	assert.Equal(t, match.GameOver, r.match.Status())
	assert.Equal(t, match.Result{Winner: game.White, Kind: match.WinSuicide}, r.match.Result())
	aliceOps := alice.ops()
	assert.Equal(t, proto.SuicideEnd, aliceOps[len(aliceOps)-1])
	assert.NotContains(t, bob.ops(), proto.SuicideEnd)
	assert.Nil(t, r.turnTimerC, "no clock once the match is over")
}

func TestGiveUp(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)

	err := r.handleMessage(ctx, bob, proto.NewMessage(proto.GiveUp, "", "w"))
	assert.ErrorIs(t, err, match.ErrIllegalOperation, "only the player to move may give up")

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.GiveUp, "", "b")))
	assert.Equal(t, match.Result{Winner: game.White, Kind: match.WinGiveUp}, r.match.Result())
	assert.Equal(t, []proto.OpCode{proto.GiveUpEnd}, bob.ops())
	assert.Empty(t, alice.received())
	assert.Equal(t, "G", r.match.Encode())
}

func TestTurnTimeout(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Move, "E5", "10")))

	r.handleTurnTimeout(ctx)

	assert.Equal(t, match.Result{Winner: game.Black, Kind: match.WinTimeout}, r.match.Result())
	assert.Equal(t, []proto.OpCode{proto.Move, proto.TimeoutEnd}, bob.ops())
	assert.Equal(t, "E5 T", r.match.Encode())
	assert.Nil(t, r.turnTimerC)
}

func TestServerOnlyOpsAreViolations(t *testing.T) {
	for _, op := range []proto.OpCode{proto.UpdateUIState, proto.TimeoutEnd, proto.SuicideEnd, proto.GiveUpEnd} {
		t.Run(op.String(), func(t *testing.T) {
			r, alice, _ := remoteMatch(t)
			err := r.handleMessage(context.Background(), alice, proto.NewMessage(op))
			assert.ErrorIs(t, err, proto.ErrProtocolViolation)
			assert.Contains(t, err.Error(), "server-only")
			assert.Equal(t, match.OnGoing, r.match.Status())
		})
	}
}

func TestLocalOpsOnRemoteRoom(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice := newFake("10.0.0.1:4000")
	r.join(ctx, alice)

	assert.ErrorIs(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.StartLocalGame)), proto.ErrProtocolViolation)
	assert.ErrorIs(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.LocalGameTimeout, "b")), proto.ErrProtocolViolation)
}

func TestLocalGame(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, true)
	solo := newFake("127.0.0.1:5000")
	solo.local = true
	r.join(ctx, solo)

	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.StartLocalGame)))
	assert.Equal(t, match.OnGoing, r.match.Status())
	assert.Equal(t, []proto.OpCode{proto.UpdateUIState}, solo.ops())

	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.Move, "E5", "10")))
	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.Move, "E6", "10")))
	assert.Equal(t, 2, r.match.Round())
	assert.Equal(t, game.Black, r.timedPlayer.Role)
	assert.Equal(t, []proto.OpCode{proto.UpdateUIState, proto.UpdateUIState, proto.UpdateUIState}, solo.ops())

	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.LocalGameTimeout, "b")))
	assert.Equal(t, match.Result{Winner: game.White, Kind: match.WinTimeout}, r.match.Result())

	// A finished local game can be restarted.
	require.NoError(t, r.handleMessage(ctx, solo, proto.NewMessage(proto.StartLocalGame)))
	assert.Equal(t, match.OnGoing, r.match.Status())
	assert.Zero(t, r.match.Round())
}

func TestRematchAfterGameOver(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.GiveUp, "", "b")))
	require.Equal(t, match.GameOver, r.match.Status())

	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Ready, "bob", "b")))
	assert.Equal(t, match.NotPrepared, r.match.Status())
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice")))
	assert.Equal(t, match.OnGoing, r.match.Status())

	black, err := r.match.Player(game.Black, nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", black.Name)
}

func TestChatHistoryKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t, false)
	alice, bob := newFake("10.0.0.1:4000"), newFake("10.0.0.2:4000")
	r.join(ctx, alice)
	r.join(ctx, bob)

	const sent = 105
	for i := 0; i < sent; i++ {
		require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Chat, strconv.Itoa(i))))
	}
	assert.Empty(t, alice.received(), "chat is not echoed to the sender")
	assert.Len(t, bob.received(), sent)

	carol := newFake("10.0.0.3:4000")
	r.join(ctx, carol)
	replayed := carol.received()
	require.Len(t, replayed, maxRecentMessages)
	for i, msg := range replayed {
		assert.Equal(t, strconv.Itoa(sent-maxRecentMessages+i), msg.Data1)
	}
}

func TestLeaveKeepsMatch(t *testing.T) {
	ctx := context.Background()
	r, alice, bob := remoteMatch(t)

	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Leave)))
	assert.True(t, bob.isStopped())
	assert.NotContains(t, r.participants, player.Participant(bob))
	assert.Equal(t, match.OnGoing, r.match.Status())

	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Chat, "anyone?")))
	assert.Empty(t, bob.received())
}

func TestRecentMessages(t *testing.T) {
	q := newRecentMessages(2)
	q.Push(proto.NewMessage(proto.Chat, "a"))
	q.Push(proto.NewMessage(proto.Chat, "b"))
	q.Push(proto.NewMessage(proto.Chat, "c"))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []proto.Message{proto.NewMessage(proto.Chat, "b"), proto.NewMessage(proto.Chat, "c")}, q.All())
}

func TestEventsArePublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	var mu sync.Mutex
	var got []events.Type
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
		return nil
	}).AnyTimes()

	ctx := context.Background()
	r := New(Config{Port: 8001, TurnTimeout: time.Minute, Publisher: pub})
	t.Cleanup(r.stopTurnTimer)
	alice, bob := newFake("10.0.0.1:4000"), newFake("10.0.0.2:4000")
	r.join(ctx, alice)
	r.join(ctx, bob)
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Ready, "alice")))
	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Ready, "bob")))
	require.NoError(t, r.handleMessage(ctx, alice, proto.NewMessage(proto.Move, "A1", "5")))
	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.Chat, "gg")))
	require.NoError(t, r.handleMessage(ctx, bob, proto.NewMessage(proto.GiveUp, "", "w")))
	r.leave(ctx, bob)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.Type{
		events.ParticipantJoined,
		events.ParticipantJoined,
		events.MatchStarted,
		events.MovePlayed,
		events.ChatPosted,
		events.MatchOver,
		events.ParticipantLeft,
	}, got)
}
