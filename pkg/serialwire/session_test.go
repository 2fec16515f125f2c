package serialwire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncodeFrame(t *testing.T) {

	line, err := Encode(Frame{Fields: []string{"room 1 light", "on"}})
	require.NoError(t, err)
	assert.Equal(t, "STARTroom 1 light,onEND\n", string(line))

	line, err = Encode(Frame{Fields: []string{"room 2 light", "on", "75"}})
	require.NoError(t, err)
	assert.Equal(t, "STARTroom 2 light,on,75END\n", string(line))

	// a field containing the delimiter gets CSV-quoted
	line, err = Encode(Frame{Fields: []string{"odd,name", "on"}})
	require.NoError(t, err)
	assert.Equal(t, "START\"odd,name\",onEND\n", string(line))

	_, err = Encode(Frame{})
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestDecodeAck(t *testing.T) {

	assert.Equal(t, "States updated", DecodeAck([]byte("States updated\r\n")))
	assert.Equal(t, "", DecodeAck([]byte("  \n")))
}

func testSession(link Link) *Session {
	return NewSession(link, 1*time.Millisecond, 20*time.Millisecond, zap.NewNop())
}

func TestSendAllWritesInOrder(t *testing.T) {

	link := NewTestLink()
	session := testSession(link)

	frames := []Frame{
		{Fields: []string{"room 1 light", "on"}},
		{Fields: []string{"room 2 light", "off", "0"}},
		{Fields: []string{"Servo motor", "clock", "90"}},
	}

	require.NoError(t, session.SendAll(frames))

	lines := link.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "STARTroom 1 light,onEND\n", string(lines[0]))
	assert.Equal(t, "STARTroom 2 light,off,0END\n", string(lines[1]))
	assert.Equal(t, "STARTServo motor,clock,90END\n", string(lines[2]))
}

func TestSendAllIsRepeatable(t *testing.T) {

	link := NewTestLink()
	session := testSession(link)

	frames := []Frame{{Fields: []string{"TV", "on"}}}

	require.NoError(t, session.SendAll(frames))
	require.NoError(t, session.SendAll(frames))

	lines := link.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, lines[0], lines[1], "re-send is byte-identical")
}

func TestSendAllAbortsOnWriteError(t *testing.T) {

	link := NewTestLink()
	link.FailWritesFrom(1)
	session := testSession(link)

	frames := []Frame{
		{Fields: []string{"TV", "on"}},
		{Fields: []string{"DC motor", "on"}},
		{Fields: []string{"Refrigerator", "on"}},
	}

	err := session.SendAll(frames)
	require.Error(t, err)
	// first frame already written stays written, the rest never go out
	assert.Len(t, link.Lines(), 1)
}

func TestSendAllOpensLazily(t *testing.T) {

	link := NewTestLink()
	session := testSession(link)

	require.False(t, link.IsOpen())
	require.NoError(t, session.SendAll([]Frame{{Fields: []string{"TV", "on"}}}))
	assert.True(t, link.IsOpen())
}

func TestSendAllReportsUnavailableLink(t *testing.T) {

	link := NewTestLink()
	link.OpenErr = assert.AnError
	session := testSession(link)

	err := session.SendAll([]Frame{{Fields: []string{"TV", "on"}}})
	assert.ErrorIs(t, err, ErrLinkUnavailable)
}

func TestAwaitAck(t *testing.T) {

	link := NewTestLink()
	session := testSession(link)
	require.NoError(t, session.Open())

	// silence is ok=false, not an error
	ack, ok := session.AwaitAck()
	assert.False(t, ok)
	assert.Equal(t, "", ack)

	link.QueueAck("States updated\r\n")
	ack, ok = session.AwaitAck()
	assert.True(t, ok)
	assert.Equal(t, "States updated", ack)
}

func TestCloseIsIdempotent(t *testing.T) {

	link := NewTestLink()
	session := testSession(link)

	require.NoError(t, session.Close())
	require.NoError(t, session.Open())
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
}
