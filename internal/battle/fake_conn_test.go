package battle

import (
	"errors"
	"sync"
)

// fakeConn records everything written to it. When blockWrites is set,
// every write parks on the channel after recording its frame, simulating
// a peer whose TCP window is full.
type fakeConn struct {
	mu          sync.Mutex
	frames      []string
	closed      bool
	failWrites  bool
	blockWrites chan struct{}
}

func newFakeConn() *fakeConn { return &fakeConn{} }

func (f *fakeConn) WriteText(msg []byte) error {
	f.mu.Lock()
	if f.closed || f.failWrites {
		f.mu.Unlock()
		return errors.New("write on dead conn")
	}
	f.frames = append(f.frames, string(msg))
	block := f.blockWrites
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) countPrefix(prefix string) int {
	n := 0
	for _, fr := range f.received() {
		if len(fr) >= len(prefix) && fr[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
