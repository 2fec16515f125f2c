package mqtt

import (
	"fmt"

	"github.com/nvelasco/homeline/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	ValueTemplate     string            `json:"value_template,omitempty"`
	CommandTemplate   string            `json:"command_template,omitempty"`
	Min               float64           `json:"min,omitempty"`
	Max               float64           `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// HADiscoveryMessage is one retained discovery config and the
// homeassistant topic it goes to.
type HADiscoveryMessage struct {
	Topic  string
	Config HADiscoveryConfig
}

// DeviceDiscoveryMessages builds the Home Assistant discovery configs
// for every registry device: a switch per binary device, a switch plus
// an intensity number per dimmable, an angle number per actuator. The
// command topics and templates produce exactly the payloads the
// device set topic already accepts.
func DeviceDiscoveryMessages(client *MQTTClient, registry *domain.Registry) []HADiscoveryMessage {
	bridge := bridgeDevice(client.baseTopic())

	var messages []HADiscoveryMessage
	for _, id := range registry.IDs() {
		kind, err := registry.KindOf(id)
		if err != nil {
			continue
		}
		switch kind {
		case domain.KindBinary:
			messages = append(messages, HADiscoveryMessage{
				Topic:  client.haDiscoveryTopic("switch", TopicSlug(id)),
				Config: switchDiscoveryConfig(client, bridge, id, ""),
			})
		case domain.KindDimmable:
			messages = append(messages,
				HADiscoveryMessage{
					Topic:  client.haDiscoveryTopic("switch", TopicSlug(id)),
					Config: switchDiscoveryConfig(client, bridge, id, "{{ value_json.state }}"),
				},
				HADiscoveryMessage{
					Topic:  client.haDiscoveryTopic("number", TopicSlug(id)+"_intensity"),
					Config: numberDiscoveryConfig(client, bridge, id, "intensity", 100, "%"),
				})
		case domain.KindActuator:
			messages = append(messages, HADiscoveryMessage{
				Topic:  client.haDiscoveryTopic("number", TopicSlug(id)+"_angle"),
				Config: numberDiscoveryConfig(client, bridge, id, "degrees", 180, "°"),
			})
		}
	}
	return messages
}

func switchDiscoveryConfig(client *MQTTClient, device HADiscoveryDevice, deviceID, valueTemplate string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:        device,
		StateTopic:    client.DeviceStateTopic(deviceID),
		CommandTopic:  client.DeviceCommandTopic(deviceID),
		AvTopic:       client.BridgeStateTopic(),
		Name:          deviceID,
		UniqueId:      fmt.Sprintf("%s_%s", client.baseTopic(), TopicSlug(deviceID)),
		Platform:      "mqtt",
		PayloadOn:     MQTT_PAYLOAD_ON,
		PayloadOff:    MQTT_PAYLOAD_OFF,
		ValueTemplate: valueTemplate,
	}
}

func numberDiscoveryConfig(client *MQTTClient, device HADiscoveryDevice, deviceID, field string, max float64, unit string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:            device,
		StateTopic:        client.DeviceStateTopic(deviceID),
		CommandTopic:      client.DeviceCommandTopic(deviceID),
		AvTopic:           client.BridgeStateTopic(),
		Name:              fmt.Sprintf("%s %s", deviceID, field),
		UniqueId:          fmt.Sprintf("%s_%s_%s", client.baseTopic(), TopicSlug(deviceID), field),
		Platform:          "mqtt",
		UnitOfMeasurement: unit,
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", field),
		CommandTemplate:   fmt.Sprintf(`{"%s": {{ value }}}`, field),
		Min:               0,
		Max:               max,
		Step:              1,
		Mode:              "slider",
	}
}

func bridgeDevice(baseTopic string) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{baseTopic},
		Manufacturer: "homeline",
		Version:      versioninfo.Short(),
		Name:         baseTopic,
	}
}

func (c *MQTTClient) haDiscoveryTopic(component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.cfg.HADiscoveryTopic, component, c.baseTopic(), objectID)
}
