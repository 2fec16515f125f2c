package domain

const (
	ACTOR_ID_CONTROLLER = "controller"
	ACTOR_ID_SERIAL     = "serial"
	ACTOR_ID_MQTT       = "mqtt"
)

// ApplyCommandRequest folds an update document into the store and
// schedules the resulting send cycle.
type ApplyCommandRequest struct {
	ActorRequestMixIn
	Document UpdateDocument
}

type ApplyCommandResponse struct {
	ActorResponseMixIn
	Outcome CommandOutcome
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot []DeviceSnapshot
}

// SendStatesRequest asks the serial actor to push one captured snapshot
// to the microcontroller, one frame per device, in snapshot order.
type SendStatesRequest struct {
	ActorRequestMixIn
	Snapshot []DeviceSnapshot
}

type SendStatesResponse struct {
	ActorResponseMixIn
	// Acknowledgment is the free-form line read back after the cycle,
	// empty when the peer stayed silent within the ack window.
	Acknowledgment string
}

// PublishStatesRequest mirrors a snapshot to the MQTT state topics.
type PublishStatesRequest struct {
	ActorRequestMixIn
	Snapshot []DeviceSnapshot
}

type PublishStatesResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
