package actor

import (
	"fmt"
	"time"

	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/util/actorutil"
	"github.com/nvelasco/homeline/pkg/serialwire"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// SerialActor is the single writer on the serial channel. A send cycle
// runs as one task; overlapping SendStatesRequests are stashed until
// the in-flight cycle completes, so frames from two cycles never
// interleave.
type SerialActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	session  *serialwire.Session
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewSerialActor(session *serialwire.Session, logger *zap.Logger) *SerialActor {
	act := &SerialActor{
		session:  session,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_SERIAL, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SerialActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SerialActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("serial@starting started")
		// A link that cannot be opened leaves the session degraded, not
		// the process dead: the next send retries the open.
		if err := state.session.Open(); err != nil {
			state.logger.Warn("serial@starting link unavailable", zap.Error(err))
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.session.Close()
	default:
		state.logger.Debug("serial@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SerialActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("serial@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SERIAL,
			Healthy: true,
			State:   "idle",
		})
	case domain.SendStatesRequest:
		state.logger.Debug("serial@default SendStatesRequest", zap.Int("devices", len(msg.Snapshot)))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		frames := snapshotFrames(msg.Snapshot)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SendStatesResponse, error) {
			return state.sendStates(frames)
		}), mapTaskResult[domain.SendStatesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SendStatesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.sendCycleTimeout(len(frames))).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSend)
	case *actor.Stopping:
		state.session.Close()
	default:
		state.logger.Debug("serial@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SerialActor) WaitingSend(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("serial@waitingSend backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.session.Close()
	default:
		state.logger.Debug("serial@waitingSend stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *SerialActor) sendStates(frames []serialwire.Frame) (*domain.SendStatesResponse, error) {
	if err := a.session.SendAll(frames); err != nil {
		return nil, err
	}
	ack, ok := a.session.AwaitAck()
	if !ok {
		// silence within the ack window is expected, not a failure
		a.logger.Debug("serial: no acknowledgment received")
	}
	return &domain.SendStatesResponse{Acknowledgment: ack}, nil
}

// sendCycleTimeout bounds one full cycle: every frame plus its pacing
// pause, the ack window, and headroom for a lazy reopen.
func (a *SerialActor) sendCycleTimeout(frameCount int) time.Duration {
	return time.Duration(frameCount+1)*a.session.FramePace() + a.session.AckTimeout() + 2*time.Second
}

func snapshotFrames(snapshot []domain.DeviceSnapshot) []serialwire.Frame {
	frames := make([]serialwire.Frame, 0, len(snapshot))
	for _, entry := range snapshot {
		frames = append(frames, serialwire.Frame{
			Fields: append([]string{entry.ID}, entry.State.WireFields()...),
		})
	}
	return frames
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
