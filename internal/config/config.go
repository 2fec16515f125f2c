package config

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nvelasco/homeline/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Serial   SerialConfig   `mapstructure:"serial"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Devices  []DeviceConfig `mapstructure:"devices"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type SerialConfig struct {
	Address           string `mapstructure:"address"`
	BaudRate          int    `mapstructure:"baud_rate"`
	FramePaceMillis   uint32 `mapstructure:"frame_pace_millis"`
	AckTimeoutMillis  uint32 `mapstructure:"ack_timeout_millis"`
	ReadTimeoutMillis uint32 `mapstructure:"read_timeout_millis"`
}

type MQTTConfig struct {
	Enable            bool   `mapstructure:"enable"`
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type LLMConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type DeviceConfig struct {
	ID   string `mapstructure:"id"`
	Kind string `mapstructure:"kind"`
}

// DefaultDevices is the fixed catalog the hardware was built with. A
// config file can replace it, but the set never changes at runtime.
func DefaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{ID: "room 1 light", Kind: "binary"},
		{ID: "room 2 light", Kind: "dimmable"},
		{ID: "room 3 light", Kind: "dimmable"},
		{ID: "room 4 light", Kind: "binary"},
		{ID: "kitchen light", Kind: "binary"},
		{ID: "TV", Kind: "binary"},
		{ID: "Refrigerator", Kind: "binary"},
		{ID: "DC motor", Kind: "binary"},
		{ID: "Servo motor", Kind: "actuator"},
	}
}

// Registry builds the device catalog from config.
func (c Config) Registry() (*domain.Registry, error) {
	devices := c.Devices
	if len(devices) == 0 {
		devices = DefaultDevices()
	}
	entries := make([]domain.RegistryEntry, 0, len(devices))
	for _, d := range devices {
		kind, err := domain.ParseDeviceKind(d.Kind)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.RegistryEntry{ID: d.ID, Kind: kind})
	}
	return domain.NewRegistry(entries)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
