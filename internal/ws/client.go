package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("connection closed")

// clientConn wraps one websocket connection behind a write lock so the
// coordinator's broadcasts and the pinger never interleave frames. It is
// the transport-side implementation of battle.Conn.
//
// The closed flag lives outside the write lock: Close must stay prompt
// even while a write is stalled on a full peer window, and closing the
// underlying socket is what errors that write out.
type clientConn struct {
	rawConn *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *clientConn) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return errConnClosed
	}
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(websocket.TextMessage, data)
}

func (c *clientConn) writeControl(messageType int, data []byte) error {
	return c.rawConn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

func (c *clientConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.rawConn.Close()
}

func (c *clientConn) Alive() bool {
	return !c.closed.Load()
}

// markClosed flags the connection dead without a second Close syscall,
// for the read loop that already saw the peer go away.
func (c *clientConn) markClosed() {
	c.closed.Store(true)
}
