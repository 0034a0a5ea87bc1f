package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundArg(t *testing.T) {
	cases := []struct {
		arg   string
		want  int
		valid bool
	}{
		{"round1", 1, true},
		{"round42", 42, true},
		{"round", 0, false},
		{"roundX", 0, false},
		{"round-3", 0, false},
		{"round0", 0, false},
		{"1", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := roundArg(tc.arg)
		assert.Equal(t, tc.valid, ok, "arg %q", tc.arg)
		assert.Equal(t, tc.want, got, "arg %q", tc.arg)
	}
}

func TestSplitFrame(t *testing.T) {
	sender, cmd, ok := splitFrame("A:SCORE_UP:round1")
	assert.True(t, ok)
	assert.Equal(t, "A", sender)
	assert.Equal(t, "SCORE_UP:round1", cmd)

	_, _, ok = splitFrame("PING")
	assert.False(t, ok)
}

func TestNextRoundFrameShape(t *testing.T) {
	frame := nextRoundFrame(3, "abc")
	assert.Equal(t, `SERVER:NEXT_ROUND:{"round":3,"seed":"abc"}`, string(frame))
}
