package battle

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// roundAdvanceDelay is the pause between a round being resolved and
	// the NEXT_ROUND broadcast, so both clients can show the result.
	roundAdvanceDelay = 500 * time.Millisecond
	// cleanupGrace is how long an empty room survives before its state
	// is discarded. A reconnect within the window cancels the cleanup.
	cleanupGrace = time.Second
	// retryThreshold is the number of rematch votes required. Battles
	// are strictly two-player.
	retryThreshold = 2

	maxPlayersPerRoom = 2
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room name already in use")
	ErrRoomFull     = errors.New("room is full")
	ErrForbidden    = errors.New("not allowed")
)

// Coordinator is the per-process battle-room state machine. One mutex
// guards the room table and all per-room sub-state; every inbound event
// and every delayed action runs its whole transition under it, which is
// the Go rendering of a single-threaded event loop. Delayed actions
// re-validate their preconditions when they fire, so a stale fire is a
// harmless no-op.
//
// Peer I/O never runs under the mutex: transitions queue their outbound
// frames in an outbox, which is flushed after the lock is released. A
// peer with a full TCP window can stall its own delivery for the write
// deadline, but never another room's events.
type Coordinator struct {
	mu     sync.Mutex
	rooms  map[string]*room
	reg    *Registry
	outbox []delivery
}

// delivery is one queued outbound frame: a room broadcast, or a direct
// send when conn is set.
type delivery struct {
	roomID string
	conn   Conn
	msg    []byte
}

func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{
		rooms: make(map[string]*room),
		reg:   reg,
	}
}

// queueBroadcast and queueSend are called with c.mu held.
func (c *Coordinator) queueBroadcast(roomID string, msg []byte) {
	c.outbox = append(c.outbox, delivery{roomID: roomID, msg: msg})
}

func (c *Coordinator) queueSend(conn Conn, msg []byte) {
	c.outbox = append(c.outbox, delivery{conn: conn, msg: msg})
}

func (c *Coordinator) takeOutbox() []delivery {
	out := c.outbox
	c.outbox = nil
	return out
}

// unlockAndFlush releases the mutex and delivers everything the
// transition queued.
func (c *Coordinator) unlockAndFlush() {
	out := c.takeOutbox()
	c.mu.Unlock()
	for _, d := range out {
		if d.conn != nil {
			if err := d.conn.WriteText(d.msg); err != nil {
				zap.L().Debug("battle.direct_send", zap.Error(err))
			}
			continue
		}
		c.reg.Broadcast(d.msg, d.roomID)
	}
}

// ───────────────────────── room lifecycle (REST side) ─────────────────────────

func (c *Coordinator) CreateRoom(p CreateRoomParams) (RoomInfo, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[p.Name]; ok {
		return RoomInfo{}, "", ErrRoomExists
	}

	token := uuid.NewString()
	rm := &room{
		id:                p.Name,
		name:              p.Name,
		hostName:          p.HostName,
		locked:            p.Password != "",
		password:          p.Password,
		ownerToken:        token,
		memorySetID:       p.MemorySetID,
		winScore:          p.WinScore,
		conditionType:     p.ConditionType,
		memorizeTime:      p.MemorizeTime,
		questionsPerRound: p.QuestionsPerRound,
		status:            StatusWaiting,
		players:           make(map[string]*playerState),
		retryVotes:        make(map[string]struct{}),
	}
	c.rooms[rm.id] = rm

	zap.L().Info("battle.room_created", zap.String("room", rm.id), zap.String("host", rm.hostName))
	return rm.info(), token, nil
}

func (c *Coordinator) ListRooms() []RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RoomInfo, 0, len(c.rooms))
	for _, rm := range c.rooms {
		out = append(out, rm.info())
	}
	return out
}

// DeleteRoom removes a room explicitly. Allowed for the owner-token
// holder, or for anyone once the room is empty.
func (c *Coordinator) DeleteRoom(roomID, token string) error {
	c.mu.Lock()
	rm, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return ErrRoomNotFound
	}
	if rm.ownerToken != token && len(rm.players) > 0 {
		c.mu.Unlock()
		return ErrForbidden
	}
	delete(c.rooms, roomID)
	c.mu.Unlock()

	c.reg.EvictRoom(roomID)
	zap.L().Info("battle.room_deleted", zap.String("room", roomID))
	return nil
}

func (c *Coordinator) VerifyPassword(roomID, password string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, ok := c.rooms[roomID]
	return ok && rm.password == password
}

// RoomSeed exposes the set reference and current seed so the problem
// endpoint can serve both battling clients the same question sequence.
func (c *Coordinator) RoomSeed(roomID string) (setID, seed string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, found := c.rooms[roomID]
	if !found {
		return "", "", false
	}
	return rm.memorySetID, rm.seed, true
}

// ───────────────────────────── connection lifecycle ───────────────────────────

// Join attaches a channel to a room. Any pending grace-period cleanup for
// the room is canceled first, and that cancellation is awaited before
// room state is touched, so a join never observes a half-torn-down room.
func (c *Coordinator) Join(roomID, playerID string, conn Conn) error {
	c.mu.Lock()
	rm, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return ErrRoomNotFound
	}

	if task := rm.cleanup; task != nil {
		rm.cleanup = nil
		c.mu.Unlock()
		task.cancelAndWait()
		c.mu.Lock()
		// The task may have completed before the cancel reached it.
		if rm, ok = c.rooms[roomID]; !ok {
			c.mu.Unlock()
			return ErrRoomNotFound
		}
	}
	defer c.unlockAndFlush()

	if _, present := rm.players[playerID]; !present && len(rm.players) >= maxPlayersPerRoom {
		return ErrRoomFull
	}

	// At most one authoritative channel per player: a fast reconnect
	// forcibly closes the superseded duplicate before the new channel
	// is accepted.
	if old := c.reg.Claim(roomID, playerID, conn); old != nil {
		c.reg.Disconnect(old, roomID)
		_ = old.Close()
		zap.L().Debug("battle.duplicate_session_closed",
			zap.String("room", roomID), zap.String("player", playerID))
	}
	c.reg.Connect(conn, roomID)

	if _, present := rm.players[playerID]; !present {
		rm.players[playerID] = &playerState{}
	}

	if len(rm.players) == maxPlayersPerRoom {
		switch {
		case rm.status == StatusWaiting && rm.round == 0:
			c.startMatch(rm)
		case rm.round > 0:
			// Rejoin or fast reconnect mid-match: resume the session in
			// progress and bring only the arriving channel up to date.
			rm.status = StatusPlaying
			c.queueSend(conn, syncFrame(rm.round, rm.seed, rm.scores()))
		}
	}
	return nil
}

// Leave is the unconditional teardown path for a connection. Safe to call
// exactly once per connection regardless of how the message loop ended.
func (c *Coordinator) Leave(roomID, playerID string, conn Conn) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	c.reg.Disconnect(conn, roomID)

	// A superseded duplicate must not tear down the presence that now
	// belongs to the newer channel.
	if !c.reg.Release(roomID, playerID, conn) {
		return
	}

	rm, ok := c.rooms[roomID]
	if !ok {
		return
	}
	delete(rm.players, playerID)
	delete(rm.retryVotes, playerID)

	switch len(rm.players) {
	case 0:
		c.scheduleCleanup(rm)
	default:
		if len(rm.players) == 1 {
			rm.status = StatusWaiting
		}
		c.queueBroadcast(roomID, []byte(frameOpponentLeft))
	}
}

// ─────────────────────────────── inbound events ───────────────────────────────

// HandleFrame processes one inbound text frame from a player's channel.
// Malformed payloads are dropped without mutating state; unrecognized
// commands are forwarded verbatim to the whole room.
func (c *Coordinator) HandleFrame(roomID, playerID string, raw string) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	rm, ok := c.rooms[roomID]
	if !ok {
		return
	}

	sender, cmd, found := splitFrame(raw)
	if !found {
		sender, cmd = playerID, raw
	}

	// State-changing commands are only accepted under the sender id the
	// connection joined with; a frame claiming the opponent's id must not
	// score, miss or vote on their behalf. Chatter frames stay unchecked.
	spoofed := sender != playerID

	switch {
	case strings.HasPrefix(cmd, "SCORE_UP:"):
		n, valid := roundArg(cmd[len("SCORE_UP:"):])
		if !valid || spoofed {
			zap.L().Debug("battle.dropped_frame", zap.String("room", roomID), zap.String("frame", raw))
			return
		}
		c.handleScoreUp(rm, sender, n, raw)

	case strings.HasPrefix(cmd, "MISS:"):
		n, valid := roundArg(cmd[len("MISS:"):])
		if !valid || spoofed {
			zap.L().Debug("battle.dropped_frame", zap.String("room", roomID), zap.String("frame", raw))
			return
		}
		c.handleMiss(rm, sender, n, raw)

	case cmd == "RETRY":
		if spoofed {
			zap.L().Debug("battle.dropped_frame", zap.String("room", roomID), zap.String("frame", raw))
			return
		}
		c.handleRetry(rm, sender, raw)

	case strings.HasPrefix(cmd, "NAME:"):
		if p := rm.players[sender]; p != nil {
			p.name = cmd[len("NAME:"):]
		}
		c.queueBroadcast(rm.id, []byte(raw))

	default:
		// Opaque client chatter, forwarded as-is.
		c.queueBroadcast(rm.id, []byte(raw))
	}
}

// handleScoreUp commits the first correct answer for a round. The guard
// (reported round equals the current round and is beyond the last
// resolved one) makes acceptance at-most-once under concurrent or
// duplicate reports; everything else is silently dropped.
func (c *Coordinator) handleScoreUp(rm *room, sender string, n int, raw string) {
	if n != rm.round || n <= rm.resolvedRound {
		return
	}
	p := rm.players[sender]
	if p == nil {
		return
	}

	rm.resolvedRound = n
	p.score++
	c.queueBroadcast(rm.id, []byte(raw))
	p.outcome = outcomeCorrect
	c.scheduleRoundAdvance(rm, n)
}

// handleMiss records a wrong answer. When every tracked player has missed
// the current round, the round resolves without a winner and advances.
func (c *Coordinator) handleMiss(rm *room, sender string, n int, raw string) {
	if n != rm.round || n <= rm.resolvedRound {
		return
	}
	p := rm.players[sender]
	if p == nil {
		return
	}

	c.queueBroadcast(rm.id, []byte(raw))
	p.outcome = outcomeWrong
	if rm.allWrong() {
		rm.resolvedRound = n
		c.scheduleRoundAdvance(rm, n)
	}
}

func (c *Coordinator) handleRetry(rm *room, sender string, raw string) {
	if _, present := rm.players[sender]; !present {
		return
	}
	rm.retryVotes[sender] = struct{}{}
	c.queueBroadcast(rm.id, []byte(raw))

	if len(rm.retryVotes) >= retryThreshold {
		c.startMatch(rm)
	}
}

// ─────────────────────────────── match transitions ────────────────────────────

// startMatch begins a fresh match (first match and rematch alike):
// scores return to zero, the round counter restarts, and a new session id
// invalidates any delayed action still in flight from the previous match.
func (c *Coordinator) startMatch(rm *room) {
	rm.status = StatusPlaying
	rm.round = 1
	rm.resolvedRound = 0
	rm.seed = uuid.NewString()
	rm.sessionID = uuid.NewString()
	for _, p := range rm.players {
		p.score = 0
		p.outcome = outcomePending
	}
	rm.retryVotes = make(map[string]struct{})

	c.queueBroadcast(rm.id, []byte(frameMatched))
	c.queueBroadcast(rm.id, nextRoundFrame(rm.round, rm.seed))

	zap.L().Info("battle.match_started", zap.String("room", rm.id), zap.String("session", rm.sessionID))
}

// scheduleRoundAdvance arms the delayed transition to the next round,
// tagged with a snapshot of the session id and the round it resolves.
func (c *Coordinator) scheduleRoundAdvance(rm *room, round int) {
	roomID, session := rm.id, rm.sessionID
	time.AfterFunc(roundAdvanceDelay, func() {
		c.advanceRound(roomID, session, round)
	})
}

// advanceRound fires after roundAdvanceDelay. The triple staleness check
// (room still playing, same session, same round) makes a fire superseded
// by a rematch or a newer round a no-op.
func (c *Coordinator) advanceRound(roomID, session string, round int) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	rm, ok := c.rooms[roomID]
	if !ok || rm.status != StatusPlaying || rm.sessionID != session || rm.round != round {
		zap.L().Debug("battle.stale_round_advance", zap.String("room", roomID), zap.Int("round", round))
		return
	}

	rm.round++
	rm.seed = uuid.NewString()
	rm.resetOutcomes()
	c.queueBroadcast(rm.id, nextRoundFrame(rm.round, rm.seed))
}

// ─────────────────────────────── delayed cleanup ──────────────────────────────

type cleanupTask struct {
	timer *time.Timer
	done  chan struct{}
}

// cancelAndWait stops the task if it has not fired yet; if it is already
// running, it blocks until the run completes so the caller never observes
// a half-torn-down room.
func (t *cleanupTask) cancelAndWait() {
	if t.timer.Stop() {
		return
	}
	<-t.done
}

func (c *Coordinator) scheduleCleanup(rm *room) {
	task := &cleanupTask{done: make(chan struct{})}
	task.timer = time.AfterFunc(cleanupGrace, func() {
		defer close(task.done)
		c.cleanupRoom(rm.id, task)
	})
	rm.cleanup = task

	zap.L().Debug("battle.cleanup_scheduled", zap.String("room", rm.id))
}

func (c *Coordinator) cleanupRoom(roomID string, task *cleanupTask) {
	c.mu.Lock()
	rm, ok := c.rooms[roomID]
	// rm.cleanup != task means a join canceled us after the timer fired
	// but before we got the lock.
	if !ok || rm.cleanup != task || len(rm.players) > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.rooms, roomID)
	c.mu.Unlock()

	c.reg.EvictRoom(roomID)
	zap.L().Info("battle.room_expired", zap.String("room", roomID))
}
