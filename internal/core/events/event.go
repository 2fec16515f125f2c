package events

import (
	"encoding/json"

	"github.com/nvelasco/homeline/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

// DeviceStateEvent is one device's state rendered for the MQTT state
// topic. Binary devices publish a bare on/off token, dimmables and
// actuators a JSON object.
type DeviceStateEvent struct {
	DeviceID string
	Payload  string
}

func SnapshotToStateEvents(snapshot []domain.DeviceSnapshot) []DeviceStateEvent {
	events := make([]DeviceStateEvent, 0, len(snapshot))
	for _, entry := range snapshot {
		events = append(events, DeviceStateEvent{
			DeviceID: entry.ID,
			Payload:  statePayload(entry.State),
		})
	}
	return events
}

func statePayload(state domain.DeviceState) string {
	doc := state.Document()
	if token, ok := doc.(string); ok {
		return token
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(payload)
}

// BridgeInfoEvent announces the bridge itself.
type BridgeInfoEvent struct {
	Version string `json:"version"`
	Devices int    `json:"devices"`
}

func BridgeInfo(registry *domain.Registry) BridgeInfoEvent {
	return BridgeInfoEvent{
		Version: versioninfo.Short(),
		Devices: registry.Len(),
	}
}
