package actorutil

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nvelasco/homeline/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// MQTTPayloadToUpdate lifts one inbound MQTT device command into an
// update document for the controller. The payload is either a bare
// on/off token or a JSON partial state; anything else is passed through
// as-is and left to the merge engine's tolerance rules.
func MQTTPayloadToUpdate(deviceID, rawPayload string) domain.UpdateDocument {
	payload := strings.TrimSpace(rawPayload)

	var value any = payload
	if strings.HasPrefix(payload, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err == nil {
			value = obj
		}
	}

	return domain.UpdateDocument{
		DeviceStates: map[string]any{deviceID: value},
	}
}
