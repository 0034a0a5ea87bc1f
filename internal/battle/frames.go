package battle

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Client frames are plain text: "<playerId>:<command>". Commands the
// coordinator understands are SCORE_UP:round<N>, MISS:round<N>, RETRY and
// NAME:<displayName>; everything else is forwarded verbatim to the room.
//
// Server-originated frames carry the "SERVER:" prefix so clients can tell
// them apart from forwarded peer messages.

const serverPrefix = "SERVER:"

const (
	frameMatched      = serverPrefix + "MATCHED"
	frameOpponentLeft = serverPrefix + "OPPONENT_LEFT"
)

type roundPayload struct {
	Round int    `json:"round"`
	Seed  string `json:"seed"`
}

type syncPayload struct {
	Round  int            `json:"round"`
	Seed   string         `json:"seed"`
	Scores map[string]int `json:"scores"`
}

func nextRoundFrame(round int, seed string) []byte {
	b, _ := json.Marshal(roundPayload{Round: round, Seed: seed})
	return append([]byte(serverPrefix+"NEXT_ROUND:"), b...)
}

func syncFrame(round int, seed string, scores map[string]int) []byte {
	b, _ := json.Marshal(syncPayload{Round: round, Seed: seed, Scores: scores})
	return append([]byte(serverPrefix+"SYNC:"), b...)
}

// splitFrame separates the sender id from the command. Frames without a
// colon are treated as a bare command from the connection's own player.
func splitFrame(raw string) (sender, cmd string, ok bool) {
	sender, cmd, ok = strings.Cut(raw, ":")
	return
}

// roundArg parses the "<N>" out of a "round<N>" command argument.
// A second return of false means the payload is malformed and the
// event must be dropped.
func roundArg(arg string) (int, bool) {
	num, found := strings.CutPrefix(arg, "round")
	if !found || num == "" {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
