package battle

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return NewCoordinator(NewRegistry())
}

func createTestRoom(t *testing.T, c *Coordinator, name string) string {
	t.Helper()
	info, token, err := c.CreateRoom(CreateRoomParams{
		Name:              name,
		HostName:          "alice",
		WinScore:          10,
		ConditionType:     "score",
		MemorySetID:       "default",
		MemorizeTime:      3,
		QuestionsPerRound: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, StatusWaiting, info.Status)
	return info.ID
}

func joinBoth(t *testing.T, c *Coordinator, roomID string) (*fakeConn, *fakeConn) {
	t.Helper()
	a, b := newFakeConn(), newFakeConn()
	require.NoError(t, c.Join(roomID, "A", a))
	require.NoError(t, c.Join(roomID, "B", b))
	return a, b
}

func parseRoundFrame(t *testing.T, frame string) (int, string) {
	t.Helper()
	body, found := strings.CutPrefix(frame, "SERVER:NEXT_ROUND:")
	require.True(t, found, "not a NEXT_ROUND frame: %s", frame)
	var p roundPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p.Round, p.Seed
}

func lastRoundFrame(t *testing.T, conn *fakeConn) (int, string) {
	t.Helper()
	frames := conn.received()
	for i := len(frames) - 1; i >= 0; i-- {
		if strings.HasPrefix(frames[i], "SERVER:NEXT_ROUND:") {
			return parseRoundFrame(t, frames[i])
		}
	}
	t.Fatal("no NEXT_ROUND frame received")
	return 0, ""
}

func TestSecondJoinStartsMatch(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")

	a, b := joinBoth(t, c, roomID)

	for _, conn := range []*fakeConn{a, b} {
		frames := conn.received()
		require.Len(t, frames, 2)
		assert.Equal(t, "SERVER:MATCHED", frames[0])
		round, seed := parseRoundFrame(t, frames[1])
		assert.Equal(t, 1, round)
		assert.NotEmpty(t, seed)
	}

	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, StatusPlaying, rooms[0].Status)
	assert.Equal(t, 2, rooms[0].PlayerCount)
}

func TestThirdPlayerRejected(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	joinBoth(t, c, roomID)

	err := c.Join(roomID, "C", newFakeConn())
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinUnknownRoom(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Join("nope", "A", newFakeConn())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestScoreUpAcceptedAtMostOnce(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	// Simultaneous correct answers for the same round: only the first
	// report is committed.
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	c.HandleFrame(roomID, "B", "B:SCORE_UP:round1")

	assert.Equal(t, 1, a.countPrefix("A:SCORE_UP"))
	assert.Equal(t, 0, a.countPrefix("B:SCORE_UP"))
	assert.Equal(t, 1, b.countPrefix("A:SCORE_UP"))

	c.mu.Lock()
	rm := c.rooms[roomID]
	assert.Equal(t, 1, rm.resolvedRound)
	assert.Equal(t, 1, rm.players["A"].score)
	assert.Equal(t, 0, rm.players["B"].score)
	c.mu.Unlock()
}

func TestRoundAdvancesAfterDelay(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)
	_, firstSeed := lastRoundFrame(t, a)

	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	for _, conn := range []*fakeConn{a, b} {
		round, seed := lastRoundFrame(t, conn)
		assert.Equal(t, 2, round)
		assert.NotEqual(t, firstSeed, seed)
	}

	// A late duplicate for the old round has no observable effect.
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	assert.Equal(t, 1, a.countPrefix("A:SCORE_UP"))
	c.mu.Lock()
	assert.Equal(t, 1, c.rooms[roomID].players["A"].score)
	c.mu.Unlock()
}

func TestBothMissAdvancesExactlyOnce(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	c.HandleFrame(roomID, "A", "A:MISS:round1")
	c.mu.Lock()
	assert.Equal(t, 0, c.rooms[roomID].resolvedRound, "one miss must not resolve the round")
	c.mu.Unlock()

	c.HandleFrame(roomID, "B", "B:MISS:round1")
	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	for _, conn := range []*fakeConn{a, b} {
		assert.Equal(t, 1, conn.countPrefix("A:MISS"))
		assert.Equal(t, 1, conn.countPrefix("B:MISS"))
		round, _ := lastRoundFrame(t, conn)
		assert.Equal(t, 2, round)
	}
	// Exactly one transition: MATCHED round plus one advance.
	assert.Equal(t, 2, a.countPrefix("SERVER:NEXT_ROUND:"))

	c.mu.Lock()
	rm := c.rooms[roomID]
	assert.Equal(t, 2, rm.round)
	assert.Equal(t, 0, rm.players["A"].score)
	assert.Equal(t, 0, rm.players["B"].score)
	c.mu.Unlock()
}

func TestMissForResolvedRoundDropped(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	c.HandleFrame(roomID, "B", "B:MISS:round1")

	// Round 1 is already resolved: the MISS is fully handled by the
	// round gate and is not even forwarded.
	assert.Equal(t, 0, a.countPrefix("B:MISS"))
	assert.Equal(t, 0, b.countPrefix("B:MISS"))

	c.mu.Lock()
	assert.Equal(t, outcomePending, c.rooms[roomID].players["B"].outcome)
	c.mu.Unlock()
}

func TestMalformedRoundPayloadDropped(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, _ := joinBoth(t, c, roomID)
	before := len(a.received())

	c.HandleFrame(roomID, "A", "A:SCORE_UP:roundX")
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round")
	c.HandleFrame(roomID, "A", "A:MISS:round-3")

	assert.Len(t, a.received(), before)
	c.mu.Lock()
	rm := c.rooms[roomID]
	assert.Equal(t, 0, rm.resolvedRound)
	assert.Equal(t, 0, rm.players["A"].score)
	c.mu.Unlock()
}

func TestUnknownCommandForwardedVerbatim(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	c.HandleFrame(roomID, "A", "A:EMOTE:wave")

	assert.Equal(t, 1, a.countPrefix("A:EMOTE:wave"))
	assert.Equal(t, 1, b.countPrefix("A:EMOTE:wave"))
}

func TestNameRecordedAndForwarded(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	_, b := joinBoth(t, c, roomID)

	c.HandleFrame(roomID, "A", "A:NAME:Alice")

	assert.Equal(t, 1, b.countPrefix("A:NAME:Alice"))
	c.mu.Lock()
	assert.Equal(t, "Alice", c.rooms[roomID].players["A"].name)
	c.mu.Unlock()
}

func TestRetryRematchResetsMatch(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	c.mu.Lock()
	oldSession := c.rooms[roomID].sessionID
	c.mu.Unlock()

	c.HandleFrame(roomID, "A", "A:RETRY")
	c.mu.Lock()
	assert.Equal(t, 2, c.rooms[roomID].round, "single vote must not restart")
	c.mu.Unlock()

	c.HandleFrame(roomID, "B", "B:RETRY")

	c.mu.Lock()
	rm := c.rooms[roomID]
	assert.Equal(t, 1, rm.round)
	assert.Equal(t, 0, rm.resolvedRound)
	assert.Equal(t, 0, rm.players["A"].score)
	assert.NotEqual(t, oldSession, rm.sessionID)
	assert.Empty(t, rm.retryVotes)
	c.mu.Unlock()

	assert.Equal(t, 2, a.countPrefix("SERVER:MATCHED"))
	assert.Equal(t, 2, b.countPrefix("SERVER:MATCHED"))
}

func TestStaleRoundAdvanceAfterRematchIsNoop(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, _ := joinBoth(t, c, roomID)

	// Resolve round 1, then rematch before the advance fires: the new
	// session id must invalidate the in-flight action.
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	c.HandleFrame(roomID, "A", "A:RETRY")
	c.HandleFrame(roomID, "B", "B:RETRY")

	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	c.mu.Lock()
	assert.Equal(t, 1, c.rooms[roomID].round, "stale advance must not bump the rematch round")
	c.mu.Unlock()
	// NEXT_ROUND seen exactly twice: both match starts, no stale fire.
	assert.Equal(t, 2, a.countPrefix("SERVER:NEXT_ROUND:"))
}

func TestStalledPeerDoesNotStallOtherRooms(t *testing.T) {
	c := newTestCoordinator(t)
	r1 := createTestRoom(t, c, "R1")
	r2 := createTestRoom(t, c, "R2")

	stuck := newFakeConn()
	stuck.blockWrites = make(chan struct{})
	defer close(stuck.blockWrites)
	require.NoError(t, c.Join(r1, "A", stuck))

	// Park a delivery to R1 on the stalled peer.
	go c.HandleFrame(r1, "A", "A:EMOTE:wave")
	require.Eventually(t, func() bool {
		return stuck.countPrefix("A:EMOTE:") == 1
	}, time.Second, 5*time.Millisecond)

	// Events for an unrelated room must still go through.
	done := make(chan struct{})
	var b *fakeConn
	go func() {
		defer close(done)
		_, b = joinBoth(t, c, r2)
		c.HandleFrame(r2, "A", "A:SCORE_UP:round1")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unrelated room blocked behind a stalled peer")
	}
	assert.Equal(t, 1, b.countPrefix("A:SCORE_UP"))
	assert.Equal(t, 1, b.countPrefix("SERVER:MATCHED"))
}

func TestSpoofedSenderCannotActForOpponent(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	// A's channel reports results under B's id: dropped, not forwarded.
	c.HandleFrame(roomID, "A", "B:SCORE_UP:round1")
	c.HandleFrame(roomID, "A", "B:MISS:round1")
	c.HandleFrame(roomID, "A", "B:RETRY")

	assert.Equal(t, 0, a.countPrefix("B:"))
	assert.Equal(t, 0, b.countPrefix("B:"))
	c.mu.Lock()
	rm := c.rooms[roomID]
	assert.Equal(t, 0, rm.players["B"].score)
	assert.Equal(t, 0, rm.resolvedRound)
	assert.Empty(t, rm.retryVotes)
	c.mu.Unlock()

	// The genuine owner still scores the round.
	c.HandleFrame(roomID, "B", "B:SCORE_UP:round1")
	assert.Equal(t, 1, a.countPrefix("B:SCORE_UP"))
}

func TestDuplicateSessionClosesOldChannel(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	oldConn := newFakeConn()
	require.NoError(t, c.Join(roomID, "A", oldConn))

	newConn := newFakeConn()
	require.NoError(t, c.Join(roomID, "A", newConn))

	assert.True(t, oldConn.isClosed())
	assert.False(t, newConn.isClosed())

	// Only the authoritative channel gets subsequent broadcasts.
	oldFrames := len(oldConn.received())
	require.NoError(t, c.Join(roomID, "B", newFakeConn()))
	assert.Len(t, oldConn.received(), oldFrames)
	assert.Equal(t, 1, newConn.countPrefix("SERVER:MATCHED"))

	// The superseded channel's teardown must not remove A's presence.
	c.Leave(roomID, "A", oldConn)
	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].PlayerCount)
}

func TestDisconnectNotifiesOpponentAndRevertsStatus(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)

	c.Leave(roomID, "B", b)

	assert.Equal(t, 1, a.countPrefix("SERVER:OPPONENT_LEFT"))
	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, StatusWaiting, rooms[0].Status)
	assert.Equal(t, 1, rooms[0].PlayerCount)
}

func TestEmptyRoomRemovedAfterGracePeriod(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	conn := newFakeConn()
	require.NoError(t, c.Join(roomID, "A", conn))

	c.Leave(roomID, "A", conn)
	require.Len(t, c.ListRooms(), 1, "room survives while the grace period runs")

	time.Sleep(cleanupGrace + 400*time.Millisecond)

	assert.Empty(t, c.ListRooms())
	assert.ErrorIs(t, c.Join(roomID, "A", newFakeConn()), ErrRoomNotFound)
}

func TestRejoinWithinGraceCancelsCleanup(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	conn := newFakeConn()
	require.NoError(t, c.Join(roomID, "A", conn))
	c.Leave(roomID, "A", conn)

	require.NoError(t, c.Join(roomID, "A", newFakeConn()))

	time.Sleep(cleanupGrace + 400*time.Millisecond)
	rooms := c.ListRooms()
	require.Len(t, rooms, 1, "canceled cleanup must not fire")
	assert.Equal(t, 1, rooms[0].PlayerCount)
}

func TestRejoinMidMatchGetsSync(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	c.Leave(roomID, "B", b)
	back := newFakeConn()
	require.NoError(t, c.Join(roomID, "B", back))

	frames := back.received()
	require.Len(t, frames, 1)
	body, found := strings.CutPrefix(frames[0], "SERVER:SYNC:")
	require.True(t, found)
	var p syncPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, 2, p.Round)
	assert.Equal(t, 1, p.Scores["A"])

	// The player who stayed receives no sync.
	assert.Equal(t, 0, a.countPrefix("SERVER:SYNC:"))
}

func TestFastReconnectMidMatchGetsSync(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")
	a, b := joinBoth(t, c, roomID)
	c.HandleFrame(roomID, "A", "A:SCORE_UP:round1")
	time.Sleep(roundAdvanceDelay + 300*time.Millisecond)

	// B reconnects without a disconnect in between: presence survives,
	// the old channel is superseded, and the fresh one is resynced.
	back := newFakeConn()
	require.NoError(t, c.Join(roomID, "B", back))
	assert.True(t, b.isClosed())

	frames := back.received()
	require.Len(t, frames, 1)
	body, found := strings.CutPrefix(frames[0], "SERVER:SYNC:")
	require.True(t, found)
	var p syncPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, 2, p.Round)
	assert.Equal(t, 1, p.Scores["A"])
	assert.Equal(t, 0, a.countPrefix("SERVER:SYNC:"))
}

func TestDeleteRoomRequiresTokenWhileOccupied(t *testing.T) {
	c := newTestCoordinator(t)
	info, token, err := c.CreateRoom(CreateRoomParams{
		Name: "locked", HostName: "alice", WinScore: 10,
		ConditionType: "score", MemorySetID: "default",
	})
	require.NoError(t, err)

	conn := newFakeConn()
	require.NoError(t, c.Join(info.ID, "A", conn))

	assert.ErrorIs(t, c.DeleteRoom(info.ID, "wrong"), ErrForbidden)
	require.NoError(t, c.DeleteRoom(info.ID, token))
	assert.True(t, conn.isClosed(), "deletion evicts lingering channels")
	assert.Empty(t, c.ListRooms())
}

func TestVerifyPassword(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.CreateRoom(CreateRoomParams{
		Name: "secret", HostName: "alice", Password: "pw",
		WinScore: 10, ConditionType: "score", MemorySetID: "default",
	})
	require.NoError(t, err)

	assert.True(t, c.VerifyPassword("secret", "pw"))
	assert.False(t, c.VerifyPassword("secret", "nope"))
	assert.False(t, c.VerifyPassword("missing", "pw"))
}

func TestCreateRoomDuplicateName(t *testing.T) {
	c := newTestCoordinator(t)
	createTestRoom(t, c, "R1")
	_, _, err := c.CreateRoom(CreateRoomParams{
		Name: "R1", HostName: "bob", WinScore: 5,
		ConditionType: "score", MemorySetID: "default",
	})
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestRoomSeedExposedForProblemGeneration(t *testing.T) {
	c := newTestCoordinator(t)
	roomID := createTestRoom(t, c, "R1")

	setID, seed, ok := c.RoomSeed(roomID)
	require.True(t, ok)
	assert.Equal(t, "default", setID)
	assert.Empty(t, seed, "no seed before the match starts")

	a, _ := joinBoth(t, c, roomID)
	_, frameSeed := lastRoundFrame(t, a)
	_, seed, ok = c.RoomSeed(roomID)
	require.True(t, ok)
	assert.Equal(t, frameSeed, seed)
}
