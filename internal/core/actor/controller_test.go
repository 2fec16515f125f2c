package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/nvelasco/homeline/internal/adapter/actor"
	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/util"
	"github.com/nvelasco/homeline/pkg/serialwire"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnTestController(t *testing.T) (*actor.RootContext, *actor.PID, *serialwire.TestLink, func()) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	registry, err := cfg.Registry()
	require.NoError(t, err)

	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	link := serialwire.NewTestLink()
	session := serialwire.NewSession(link, 5*time.Millisecond, 20*time.Millisecond, logger)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewControllerActor(cfg, registry, func() *adactor.SerialActor {
			return adactor.NewSerialActor(session, logger)
		}, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, registry, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "controller")
	require.NoError(t, err)

	return context, pid, link, func() {
		context.Stop(pid)
		as.Shutdown()
	}
}

func TestControllerHealthCheck(t *testing.T) {

	context, pid, _, teardown := spawnTestController(t)
	defer teardown()

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")
}

func TestControllerApplyCommand(t *testing.T) {

	context, pid, link, teardown := spawnTestController(t)
	defer teardown()

	doc := domain.UpdateDocument{
		DeviceStates: map[string]any{
			"kitchen light": "on",
			"room 2 light":  map[string]any{"intensity": 80},
		},
		ChatbotMessage: "Kitchen light is now on",
	}

	res, err := context.RequestFuture(pid, domain.ApplyCommandRequest{Document: doc}, 10*time.Second).Result()
	require.NoError(t, err)

	resp, ok := res.(domain.ApplyCommandResponse)
	require.True(t, ok)
	assert.Equal(t, "Kitchen light is now on", resp.Outcome.Message)
	assert.Equal(t, 0, resp.Outcome.DelaySeconds)
	assert.Equal(t, "on", resp.Outcome.DeviceStates["kitchen light"])
	assert.Equal(t, map[string]any{"state": "on", "intensity": 80}, resp.Outcome.DeviceStates["room 2 light"])

	// response comes before the send cycle; give the cycle time to finish
	time.Sleep(500 * time.Millisecond)

	lines := link.Lines()
	require.Len(t, lines, 9, "one frame per registered device")
	assert.Contains(t, string(lines[4]), "kitchen light,on")
	assert.Contains(t, string(lines[1]), "room 2 light,on,80")
}

func TestControllerDeferredDispatch(t *testing.T) {

	context, pid, link, teardown := spawnTestController(t)
	defer teardown()

	doc := domain.UpdateDocument{
		DeviceStates: map[string]any{"TV": "on"},
		DelaySeconds: 1,
	}

	res, err := context.RequestFuture(pid, domain.ApplyCommandRequest{Document: doc}, 10*time.Second).Result()
	require.NoError(t, err)

	resp, ok := res.(domain.ApplyCommandResponse)
	require.True(t, ok)
	assert.Equal(t, 1, resp.Outcome.DelaySeconds)
	// the store already reflects the end state
	assert.Equal(t, "on", resp.Outcome.DeviceStates["TV"])

	// nothing on the wire before the timer fires
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, link.Lines())

	time.Sleep(1500 * time.Millisecond)
	assert.NotEmpty(t, link.Lines(), "frames sent after the delay")
}

func TestControllerSnapshot(t *testing.T) {

	context, pid, _, teardown := spawnTestController(t)
	defer teardown()

	res, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	require.NoError(t, err)

	resp, ok := res.(domain.GetSnapshotResponse)
	require.True(t, ok)
	require.Len(t, resp.Snapshot, 9)
	assert.Equal(t, "room 1 light", resp.Snapshot[0].ID)
	assert.Equal(t, domain.BinaryState{}, resp.Snapshot[0].State)
}

func TestControllerNoLostUpdates(t *testing.T) {

	context, pid, _, teardown := spawnTestController(t)
	defer teardown()

	// two commands land back to back; the mailbox serializes the merges
	// and neither overwrites the other's device
	f1 := context.RequestFuture(pid, domain.ApplyCommandRequest{Document: domain.UpdateDocument{
		DeviceStates: map[string]any{"TV": "on"},
	}}, 10*time.Second)
	f2 := context.RequestFuture(pid, domain.ApplyCommandRequest{Document: domain.UpdateDocument{
		DeviceStates: map[string]any{"Refrigerator": "on"},
	}}, 10*time.Second)

	_, err := f1.Result()
	require.NoError(t, err)
	res, err := f2.Result()
	require.NoError(t, err)

	resp := res.(domain.ApplyCommandResponse)
	assert.Equal(t, "Command processed", resp.Outcome.Message)
	assert.Equal(t, "on", resp.Outcome.DeviceStates["TV"])
	assert.Equal(t, "on", resp.Outcome.DeviceStates["Refrigerator"])
}

func TestControllerMQTTCommand(t *testing.T) {

	context, pid, link, teardown := spawnTestController(t)
	defer teardown()

	// a device set command coming up from the MQTT child
	context.Send(pid, adactor.ParsedCommand{DeviceID: "DC motor", Payload: "on"})

	time.Sleep(500 * time.Millisecond)

	res, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := res.(domain.GetSnapshotResponse)

	states := domain.SnapshotDocument(resp.Snapshot)
	assert.Equal(t, "on", states["DC motor"])
	assert.NotEmpty(t, link.Lines(), "command triggered a send cycle")
}
