package util

import (
	"github.com/nvelasco/homeline/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Serial: config.SerialConfig{
			Address:           "/dev/null",
			BaudRate:          9600,
			FramePaceMillis:   10,
			AckTimeoutMillis:  100,
			ReadTimeoutMillis: 50,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "homeline",
		},
		LLM: config.LLMConfig{
			Model:         "llama-3.3-70b-versatile",
			TimeoutMillis: 5000,
		},
		Devices: config.DefaultDevices(),
		Port:    8080,
	}
}
