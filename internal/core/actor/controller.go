package actor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/nvelasco/homeline/internal/adapter/actor"
	"github.com/nvelasco/homeline/internal/config"
	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/core/service"
	. "github.com/nvelasco/homeline/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

type SerialActorProvider func() *adactor.SerialActor

type MQTTActorProvider func() *adactor.MQTTActor

// ControllerActor owns the device state store. Every merge and every
// snapshot read goes through its mailbox, which is the critical
// section between the command path and in-flight send cycles.
type ControllerActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	registry *domain.Registry
	store    *domain.Store

	currentHealthCheck  healthCheckResult
	serialActor         *actor.PID
	mqttActor           *actor.PID
	serialActorProvider SerialActorProvider
	mqttActorProvider   MQTTActorProvider
	scheduler           quartz.Scheduler
	dispatchSeq         uint64
	logger              *zap.Logger
}

// dispatchDue fires a send cycle against whatever the store contains
// when it arrives. Immediate dispatches send it right away; deferred
// ones get it from a one-shot scheduler job.
type dispatchDue struct {
}

type healthCheckResult struct {
	serialActorHealthy bool
	mqttActorHealthy   bool
	checksReceived     int
	checksExpected     int
	respondTo          *actor.PID
}

func NewControllerActor(config config.Config, registry *domain.Registry, serialActorProvider SerialActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *ControllerActor {
	act := &ControllerActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		registry:            registry,
		store:               domain.NewStore(registry),
		logger:              ActorLogger(domain.ACTOR_ID_CONTROLLER, logger),
		serialActorProvider: serialActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControllerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("controller@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset(state.childCount())

		// start serial child
		serialActorPID, err := state.startSerialActor(ctx)
		if err != nil {
			panic(err)
		}
		state.serialActor = serialActorPID

		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		// one-shot dispatch timers live here
		state.scheduler = quartz.NewStdScheduler()
		state.scheduler.Start(context.Background())

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("controller@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ApplyCommandRequest:
		state.logger.Debug("controller@default ApplyCommandRequest")
		outcome := state.applyCommand(ctx, msg.Document)
		if msg.ReplyToRef != nil || ctx.Sender() != nil {
			ForRequest(msg).Respond(ctx, domain.ApplyCommandResponse{Outcome: outcome})
		}
	case dispatchDue:
		// capture the snapshot now; the serial actor works on the
		// captured copy, never a live view
		snapshot := state.store.Snapshot()
		state.logger.Debug("controller@default dispatch", zap.Int("devices", len(snapshot)))
		ctx.Request(state.serialActor, domain.SendStatesRequest{Snapshot: snapshot})
	case domain.SendStatesResponse:
		if msg.HasResponseError() {
			// the store already holds the intended end state; the failed
			// cycle is reported, not retried
			state.logger.Error("controller@default send cycle failed", zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("controller@default send cycle done", zap.String("ack", msg.Acknowledgment))
		if state.mqttActor != nil {
			ctx.Send(state.mqttActor, domain.PublishStatesRequest{Snapshot: state.store.Snapshot()})
		}
	case adactor.ParsedCommand:
		// MQTT set command: lift to an update document and reapply
		state.logger.Debug("controller@default parsedCommand", zap.String("device", msg.DeviceID))
		doc := MQTTPayloadToUpdate(msg.DeviceID, msg.Payload)
		state.applyCommand(ctx, doc)
	case domain.GetSnapshotRequest:
		ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{Snapshot: state.store.Snapshot()})
	case domain.ActorHealthRequest:
		state.logger.Debug("controller@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.childCount())
		state.currentHealthCheck.respondTo = ForRequest(msg).ReplyTo(ctx)
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.serialActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SERIAL,
				Healthy: false,
				State:   fmt.Sprintf("%s", err),
			}
		})
		if state.mqttActor != nil {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_MQTT,
					Healthy: false,
					State:   fmt.Sprintf("%s", err),
				}
			})
		}
		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case *actor.Terminated:
		// if the serial actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_CONTROLLER, domain.ACTOR_ID_SERIAL) {
			state.logger.Error("controller@default serial child terminated")
			panic(errors.New("serial actor terminated"))
		}
	case *actor.Stopping:
		if state.scheduler != nil {
			state.scheduler.Stop()
		}
	default:
		state.logger.Debug("controller@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// a child that does not answer in time counts as unhealthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("controller@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SERIAL:
				state.currentHealthCheck.serialActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {
			ctx.SetReceiveTimeout(0)
			state.currentHealthCheck.respond(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("controller@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// applyCommand merges the document, decides immediate vs deferred
// dispatch, and returns the outcome for the initiator. The caller gets
// its response before the send cycle runs; it never blocks on the
// serial link.
func (state *ControllerActor) applyCommand(ctx actor.Context, doc domain.UpdateDocument) domain.CommandOutcome {
	service.MergeUpdate(state.store, doc, state.logger)

	delay := service.Delay(doc)
	if delay == 0 {
		ctx.Send(ctx.Self(), dispatchDue{})
	} else {
		state.scheduleDispatch(ctx, delay)
	}

	message := doc.ChatbotMessage
	if message == "" {
		message = "Command processed"
	}
	return domain.CommandOutcome{
		Message:      message,
		DelaySeconds: delay,
		DeviceStates: domain.SnapshotDocument(state.store.Snapshot()),
	}
}

// scheduleDispatch registers a one-shot job. Jobs are keyed so a
// pending dispatch could be cancelled through the scheduler, but no
// caller does today: a later command never cancels an earlier timer.
func (state *ControllerActor) scheduleDispatch(ctx actor.Context, delaySeconds int) {
	state.dispatchSeq++
	key := quartz.NewJobKey(fmt.Sprintf("dispatch-%d", state.dispatchSeq))

	self := ctx.Self()
	root := ctx.ActorSystem().Root
	fire := job.NewFunctionJob(func(context.Context) (bool, error) {
		root.Send(self, dispatchDue{})
		return true, nil
	})

	err := state.scheduler.ScheduleJob(quartz.NewJobDetail(fire, key),
		quartz.NewRunOnceTrigger(time.Duration(delaySeconds)*time.Second))
	if err != nil {
		state.logger.Error("controller@default dispatch schedule failed", zap.Error(err))
		return
	}
	state.logger.Info("controller@default dispatch deferred", zap.Int("delay_seconds", delaySeconds), zap.String("job", key.String()))
}

func (state *ControllerActor) childCount() int {
	if state.mqttActorProvider != nil {
		return 2
	}
	return 1
}

func (state *ControllerActor) startSerialActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	serialProps := actor.PropsFromProducer(func() actor.Actor {
		return state.serialActorProvider()
	}, actor.WithSupervisor(supervisor))
	serialActorPID, err := ctx.SpawnNamed(serialProps, domain.ACTOR_ID_SERIAL)
	if err != nil {
		return nil, err
	}

	return serialActorPID, nil
}

func (state *ControllerActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(expected int) {
	state.serialActorHealthy = false
	state.mqttActorHealthy = false
	state.checksReceived = 0
	state.checksExpected = expected
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.checksExpected
}

func (state *healthCheckResult) allHealthy() bool {
	if state.checksExpected == 1 {
		return state.serialActorHealthy
	}
	return state.serialActorHealthy && state.mqttActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CONTROLLER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
