package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvelasco/homeline/internal/config"
	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/core/events"
	"github.com/nvelasco/homeline/internal/mqtt"
	"github.com/nvelasco/homeline/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTActor mirrors the device state table to retained MQTT topics and
// accepts structured set commands as a second command source next to
// HTTP.
type MQTTActor struct {
	config   *config.Config
	registry *domain.Registry
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   *mqtt.MQTTClient
	bySlug   map[string]string
	logger   *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

// ParsedCommand is an inbound device set command, resolved to a
// registry device id, routed up to the controller.
type ParsedCommand struct {
	DeviceID string
	Payload  string
}

func NewMQTTActor(config *config.Config, registry *domain.Registry, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		registry: registry,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		bySlug:   slugIndex(registry),
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.publishBridgeInfo()
		if state.config.MQTT.HADiscoveryEnable {
			if err := state.publishHomeAssistantDiscovery(); err != nil {
				state.logger.Error("mqtt@starting discovery publish failed", zap.Error(err))
			}
		}

		// subscribe to the device set topics
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err != nil || cmd == nil {
				return
			}
			deviceID, ok := state.bySlug[cmd.DeviceSlug]
			if !ok {
				state.logger.Debug("mqtt: command for unknown device", zap.String("slug", cmd.DeviceSlug))
				return
			}
			ctx.Send(ctx.Self(), ParsedCommand{DeviceID: deviceID, Payload: cmd.Payload})
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.String("device", msg.DeviceID))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishStatesRequest:
		state.logger.Debug("mqtt@default PublishStatesRequest", zap.Int("devices", len(msg.Snapshot)))
		for _, event := range events.SnapshotToStateEvents(msg.Snapshot) {
			state.client.Publish(state.client.DeviceStateTopic(event.DeviceID), event.Payload, 0, true, func(error) {}, 1*time.Second)
		}
		if msg.ReplyToRef != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishStatesResponse{})
		}
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case publishResult:
		ctx.Send(msg.replyTo, domain.PublishMessageResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: msg.err},
		})
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	self := ctx.Self()
	state.client.Publish(topic, payload, 0, retain, func(err error) {
		if replyTo != nil {
			ctx.Send(self, publishResult{replyTo: replyTo, err: err})
		}
	}, 1*time.Second)
}

type publishResult struct {
	replyTo *actor.PID
	err     error
}

func (state *MQTTActor) publishHomeAssistantDiscovery() error {
	for _, msg := range mqtt.DeviceDiscoveryMessages(state.client, state.registry) {
		payload, err := json.Marshal(msg.Config)
		if err != nil {
			return err
		}
		state.client.Publish(msg.Topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) publishBridgeInfo() {
	info := events.BridgeInfo(state.registry)
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	state.client.Publish(fmt.Sprintf("%s/bridge/info", state.config.MQTT.BaseTopic), payload, 0, true, func(error) {}, 1*time.Second)
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func slugIndex(registry *domain.Registry) map[string]string {
	index := make(map[string]string, registry.Len())
	for _, id := range registry.IDs() {
		index[mqtt.TopicSlug(id)] = id
	}
	return index
}

// Dummy actor for tests: no broker, acks every publish.
func NewTestMQTTActor(config *config.Config, registry *domain.Registry, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		registry: registry,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		bySlug:   slugIndex(registry),
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishStatesRequest:
		if msg.ReplyToRef != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishStatesResponse{})
		}
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishMessageResponse{})
		}
	}
}
