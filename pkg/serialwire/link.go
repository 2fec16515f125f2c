package serialwire

import (
	"errors"
	"time"

	"github.com/goburrow/serial"
)

var (
	// ErrLinkUnavailable means the serial channel could not be opened.
	// The session stays usable; the next send retries the open.
	ErrLinkUnavailable = errors.New("serial link unavailable")

	ErrLinkClosed = errors.New("serial link closed")
)

// Link abstracts the half-duplex serial channel so the session can be
// exercised against an in-memory fake in tests.
type Link interface {
	Open() error
	IsOpen() bool
	Write(p []byte) (int, error)
	// ReadLine blocks until one newline-terminated line arrives or the
	// timeout elapses.
	ReadLine(timeout time.Duration) (string, error)
	Close() error
}

// SerialLink drives a physical port through goburrow/serial, 8N1 like
// the microcontroller expects.
type SerialLink struct {
	config serial.Config
	port   serial.Port
}

func NewSerialLink(address string, baudRate int, readTimeout time.Duration) *SerialLink {
	return &SerialLink{
		config: serial.Config{
			Address:  address,
			BaudRate: baudRate,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  readTimeout,
		},
	}
}

func (l *SerialLink) Open() error {
	if l.port != nil {
		return nil
	}
	port, err := serial.Open(&l.config)
	if err != nil {
		return err
	}
	l.port = port
	return nil
}

func (l *SerialLink) IsOpen() bool {
	return l.port != nil
}

func (l *SerialLink) Write(p []byte) (int, error) {
	if l.port == nil {
		return 0, ErrLinkClosed
	}
	return l.port.Write(p)
}

func (l *SerialLink) ReadLine(timeout time.Duration) (string, error) {
	if l.port == nil {
		return "", ErrLinkClosed
	}
	deadline := time.Now().Add(timeout)
	var line []byte
	buf := make([]byte, 1)
	for time.Now().Before(deadline) {
		n, err := l.port.Read(buf)
		if err != nil {
			// goburrow reports a timed-out read as ErrTimeout; keep
			// polling those until the caller's deadline. Anything else
			// is a real channel failure.
			if errors.Is(err, serial.ErrTimeout) {
				continue
			}
			return "", err
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' {
			return string(line), nil
		}
		line = append(line, buf[0])
	}
	return "", ErrAckTimeout
}

func (l *SerialLink) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// ensure interface compliance
var _ Link = (*SerialLink)(nil)
