package serialwire

import (
	"errors"
	"testing"
	"time"

	"github.com/goburrow/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort stands in for a goburrow port so ReadLine's error handling
// can be exercised without hardware.
type fakePort struct {
	data    []byte
	readErr error
	reads   int
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.reads++
	if len(p.data) > 0 {
		buf[0] = p.data[0]
		p.data = p.data[1:]
		return 1, nil
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	return 0, serial.ErrTimeout
}

func (p *fakePort) Open(c *serial.Config) error { return nil }

func (p *fakePort) Write(buf []byte) (int, error) { return len(buf), nil }

func (p *fakePort) Close() error { return nil }

func TestReadLineReturnsLine(t *testing.T) {

	link := NewSerialLink("/dev/null", 9600, 10*time.Millisecond)
	link.port = &fakePort{data: []byte("States updated\n")}

	line, err := link.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "States updated", line)
}

func TestReadLineTimesOutOnSilence(t *testing.T) {

	link := NewSerialLink("/dev/null", 9600, 10*time.Millisecond)
	link.port = &fakePort{}

	_, err := link.ReadLine(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrAckTimeout)
}

func TestReadLineSurfacesChannelFailure(t *testing.T) {

	portErr := errors.New("device unplugged")
	port := &fakePort{readErr: portErr}
	link := NewSerialLink("/dev/null", 9600, 10*time.Millisecond)
	link.port = port

	start := time.Now()
	_, err := link.ReadLine(2 * time.Second)

	// a real channel failure comes back immediately, not after the
	// full ack window, and is not swallowed into a retry loop
	assert.ErrorIs(t, err, portErr)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, port.reads)
}
