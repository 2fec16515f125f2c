package serialwire

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFramePace  = 300 * time.Millisecond
	DefaultAckTimeout = 2 * time.Second
)

// ErrAckTimeout reports that no acknowledgment line arrived within the
// ack window. It is informational; the peer staying silent is expected.
var ErrAckTimeout = errors.New("no acknowledgment received")

// Session owns the serial channel lifecycle and the pacing discipline.
// The microcontroller on the far end is a slow, possibly
// single-buffered receiver, so a fixed pause between frames keeps it
// from dropping or coalescing lines. The session itself does not lock;
// the caller must guarantee at most one in-flight SendAll (the serial
// actor's mailbox does this in production).
type Session struct {
	link       Link
	framePace  time.Duration
	ackTimeout time.Duration
	logger     *zap.Logger
}

func NewSession(link Link, framePace, ackTimeout time.Duration, logger *zap.Logger) *Session {
	if framePace <= 0 {
		framePace = DefaultFramePace
	}
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Session{
		link:       link,
		framePace:  framePace,
		ackTimeout: ackTimeout,
		logger:     logger,
	}
}

// Open is idempotent. A failed open leaves the session degraded, not
// broken: the next SendAll retries it.
func (s *Session) Open() error {
	if s.link.IsOpen() {
		return nil
	}
	if err := s.link.Open(); err != nil {
		return fmt.Errorf("%w: %s", ErrLinkUnavailable, err)
	}
	return nil
}

// SendAll writes every frame in order, pausing framePace after each
// write. The first channel-level error aborts the remaining frames and
// is returned; the frames already written stay written. Re-running
// SendAll with the same frames is safe and produces byte-identical
// output.
func (s *Session) SendAll(frames []Frame) error {
	if err := s.Open(); err != nil {
		return err
	}
	for _, frame := range frames {
		line, err := Encode(frame)
		if err != nil {
			return fmt.Errorf("encode frame %v: %w", frame.Fields, err)
		}
		if _, err := s.link.Write(line); err != nil {
			return fmt.Errorf("write frame %v: %w", frame.Fields, err)
		}
		s.logger.Debug("serialwire: frame sent", zap.ByteString("line", line))
		time.Sleep(s.framePace)
	}
	return nil
}

// AwaitAck polls the channel for one line within the ack window. A
// silent peer is reported as ok=false, never as an error.
func (s *Session) AwaitAck() (string, bool) {
	if !s.link.IsOpen() {
		return "", false
	}
	line, err := s.link.ReadLine(s.ackTimeout)
	if err != nil {
		s.logger.Debug("serialwire: no acknowledgment", zap.Error(err))
		return "", false
	}
	return DecodeAck([]byte(line)), true
}

// Close is idempotent.
func (s *Session) Close() error {
	if !s.link.IsOpen() {
		return nil
	}
	return s.link.Close()
}

// FramePace exposes the configured inter-frame pause so callers can
// size their own timeouts around a full send cycle.
func (s *Session) FramePace() time.Duration {
	return s.framePace
}

func (s *Session) AckTimeout() time.Duration {
	return s.ackTimeout
}
