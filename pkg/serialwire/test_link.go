package serialwire

import (
	"errors"
	"sync"
	"time"
)

// TestLink is an in-memory Link for tests. It records every written
// line and can be primed with acknowledgment lines and injected
// failures.
type TestLink struct {
	mu sync.Mutex

	open     bool
	lines    [][]byte
	acks     []string
	OpenErr  error
	failFrom int // fail writes starting at this index; <0 disables
	writes   int
}

func NewTestLink() *TestLink {
	return &TestLink{failFrom: -1}
}

// FailWritesFrom makes write number n (zero-based) and every later
// write fail.
func (l *TestLink) FailWritesFrom(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failFrom = n
}

func (l *TestLink) QueueAck(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acks = append(l.acks, line)
}

// Lines returns copies of every line written so far.
func (l *TestLink) Lines() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.lines))
	for i, line := range l.lines {
		out[i] = append([]byte(nil), line...)
	}
	return out
}

func (l *TestLink) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.OpenErr != nil {
		return l.OpenErr
	}
	l.open = true
	return nil
}

func (l *TestLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *TestLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return 0, ErrLinkClosed
	}
	n := l.writes
	l.writes++
	if l.failFrom >= 0 && n >= l.failFrom {
		return 0, errors.New("injected write failure")
	}
	l.lines = append(l.lines, append([]byte(nil), p...))
	return len(p), nil
}

func (l *TestLink) ReadLine(timeout time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return "", ErrLinkClosed
	}
	if len(l.acks) == 0 {
		return "", ErrAckTimeout
	}
	line := l.acks[0]
	l.acks = l.acks[1:]
	return line, nil
}

func (l *TestLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	return nil
}

// ensure interface compliance
var _ Link = (*TestLink)(nil)
