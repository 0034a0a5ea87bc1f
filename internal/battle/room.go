package battle

// Room lifecycle status.
const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
)

// Per-player outcome for the current round.
type outcome uint8

const (
	outcomePending outcome = iota
	outcomeCorrect
	outcomeWrong
)

type playerState struct {
	outcome outcome
	score   int
	name    string
}

// room owns the whole of one match context: presence, scores, round
// progression and the pending delayed actions. Only the Coordinator's
// mutex guards it.
type room struct {
	id       string
	name     string
	hostName string
	locked   bool
	password string
	// ownerToken authorizes deletion of a non-empty room.
	ownerToken string

	memorySetID       string
	winScore          int
	conditionType     string
	memorizeTime      int
	questionsPerRound int

	status string
	// round is 0 until the first match starts. resolvedRound is the
	// highest round whose outcome has been committed; the invariant
	// resolvedRound <= round always holds and a round transition is
	// triggered at most once per round.
	round         int
	resolvedRound int
	// sessionID is regenerated on every match start and rematch so that
	// delayed actions scheduled under a previous match identify
	// themselves as stale.
	sessionID string
	// seed is regenerated per round and drives synchronized problem
	// generation on both clients.
	seed string

	players    map[string]*playerState
	retryVotes map[string]struct{}

	cleanup *cleanupTask
}

func (rm *room) allWrong() bool {
	if len(rm.players) == 0 {
		return false
	}
	for _, p := range rm.players {
		if p.outcome != outcomeWrong {
			return false
		}
	}
	return true
}

func (rm *room) resetOutcomes() {
	for _, p := range rm.players {
		p.outcome = outcomePending
	}
}

func (rm *room) scores() map[string]int {
	s := make(map[string]int, len(rm.players))
	for id, p := range rm.players {
		s[id] = p.score
	}
	return s
}

func (rm *room) info() RoomInfo {
	return RoomInfo{
		ID:                rm.id,
		Name:              rm.name,
		HostName:          rm.hostName,
		IsLocked:          rm.locked,
		WinScore:          rm.winScore,
		ConditionType:     rm.conditionType,
		Status:            rm.status,
		PlayerCount:       len(rm.players),
		MemorySetID:       rm.memorySetID,
		MemorizeTime:      rm.memorizeTime,
		QuestionsPerRound: rm.questionsPerRound,
	}
}

// RoomInfo is the lobby-facing view of a room. Field names follow the
// client payloads.
type RoomInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	HostName          string `json:"hostName"`
	IsLocked          bool   `json:"isLocked"`
	WinScore          int    `json:"winScore"`
	ConditionType     string `json:"conditionType"`
	Status            string `json:"status"`
	PlayerCount       int    `json:"playerCount"`
	MemorySetID       string `json:"memorySetId"`
	MemorizeTime      int    `json:"memorizeTime"`
	QuestionsPerRound int    `json:"questionsPerRound"`
}

// CreateRoomParams carries everything needed to open a room. MemorizeTime
// and QuestionsPerRound are resolved from the referenced memory set by the
// caller before the room is created.
type CreateRoomParams struct {
	Name              string
	HostName          string
	Password          string
	WinScore          int
	ConditionType     string
	MemorySetID       string
	MemorizeTime      int
	QuestionsPerRound int
}
