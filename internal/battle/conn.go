package battle

// Conn is one live bidirectional channel to a player. The websocket
// transport implements it; tests use in-memory fakes.
type Conn interface {
	// WriteText sends one text frame. Concurrent callers must be safe.
	WriteText(msg []byte) error
	Close() error
	// Alive reports whether the channel is still usable. A channel that
	// has been closed (locally or by the peer) must return false.
	Alive() bool
}
