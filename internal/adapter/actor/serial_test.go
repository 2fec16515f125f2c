package actor

import (
	"testing"
	"time"

	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/util/actorutil"
	"github.com/nvelasco/homeline/pkg/serialwire"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSerialSession(link serialwire.Link, logger *zap.Logger) *serialwire.Session {
	return serialwire.NewSession(link, 5*time.Millisecond, 20*time.Millisecond, logger)
}

func TestSerialActorSendStates(t *testing.T) {

	link := serialwire.NewTestLink()
	link.QueueAck("States updated")

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(testSerialSession(link, logger), logger)
	})
	pid := context.Spawn(props)

	snapshot := []domain.DeviceSnapshot{
		{ID: "room 1 light", State: domain.BinaryState{On: true}},
		{ID: "room 2 light", State: domain.DimmableState{On: true, Intensity: 75}},
		{ID: "Servo motor", State: domain.ActuatorState{Direction: domain.DirectionClock, Degrees: 90}},
	}

	result, err := context.RequestFuture(pid, domain.SendStatesRequest{Snapshot: snapshot}, 5*time.Second).Result()
	require.NoError(t, err)

	resp, ok := result.(domain.SendStatesResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())
	assert.Equal(t, "States updated", resp.Acknowledgment)

	lines := link.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "STARTroom 1 light,onEND\n", string(lines[0]))
	assert.Equal(t, "STARTroom 2 light,on,75END\n", string(lines[1]))
	assert.Equal(t, "STARTServo motor,clock,90END\n", string(lines[2]))

	context.Stop(pid)
	as.Shutdown()
}

func TestSerialActorCyclesDoNotInterleave(t *testing.T) {

	link := serialwire.NewTestLink()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(testSerialSession(link, logger), logger)
	})
	pid := context.Spawn(props)

	first := []domain.DeviceSnapshot{
		{ID: "TV", State: domain.BinaryState{On: true}},
		{ID: "DC motor", State: domain.BinaryState{On: true}},
	}
	second := []domain.DeviceSnapshot{
		{ID: "TV", State: domain.BinaryState{}},
		{ID: "DC motor", State: domain.BinaryState{}},
	}

	// both requests land back to back; the second must be stashed until
	// the first cycle completes
	f1 := context.RequestFuture(pid, domain.SendStatesRequest{Snapshot: first}, 5*time.Second)
	f2 := context.RequestFuture(pid, domain.SendStatesRequest{Snapshot: second}, 5*time.Second)

	_, err := f1.Result()
	require.NoError(t, err)
	_, err = f2.Result()
	require.NoError(t, err)

	lines := link.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, "STARTTV,onEND\n", string(lines[0]))
	assert.Equal(t, "STARTDC motor,onEND\n", string(lines[1]))
	assert.Equal(t, "STARTTV,offEND\n", string(lines[2]))
	assert.Equal(t, "STARTDC motor,offEND\n", string(lines[3]))

	context.Stop(pid)
	as.Shutdown()
}

func TestSerialActorReportsWriteFailure(t *testing.T) {

	link := serialwire.NewTestLink()
	link.FailWritesFrom(0)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(testSerialSession(link, logger), logger)
	})
	pid := context.Spawn(props)

	snapshot := []domain.DeviceSnapshot{
		{ID: "TV", State: domain.BinaryState{On: true}},
	}

	result, err := context.RequestFuture(pid, domain.SendStatesRequest{Snapshot: snapshot}, 5*time.Second).Result()
	require.NoError(t, err)

	resp, ok := result.(domain.SendStatesResponse)
	require.True(t, ok)
	assert.True(t, resp.HasResponseError())

	context.Stop(pid)
	as.Shutdown()
}

func TestSerialActorHealth(t *testing.T) {

	link := serialwire.NewTestLink()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(testSerialSession(link, logger), logger)
	})
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	resp, ok := result.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_SERIAL, resp.Id)

	context.Stop(pid)
	as.Shutdown()
}
