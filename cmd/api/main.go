package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/nvelasco/homeline/internal/adapter/actor"
	"github.com/nvelasco/homeline/internal/adapter/llm"
	"github.com/nvelasco/homeline/internal/config"
	coreactor "github.com/nvelasco/homeline/internal/core/actor"
	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/server"
	"github.com/nvelasco/homeline/internal/util/actorutil"
	"github.com/nvelasco/homeline/pkg/serialwire"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	registry, err := cfg.Registry()
	if err != nil {
		slog.Error("invalid device catalog", "error", err)
		return
	}

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return coreactor.NewControllerActor(*cfg, registry,
			serialActorProvider(cfg, logger), mqttActorProvider(cfg, registry, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_CONTROLLER)
	if err != nil {
		return
	}

	parser := llm.NewGroqParser(cfg.LLM, registry, logger)

	server := server.NewServer(*cfg, ctx, pid, parser)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => HOMELINE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HOMELINE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("homeline")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if cfg.MQTT.Enable {
		// check and fix base topic
		baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return nil, err
		}
		cfg.MQTT.BaseTopic = baseTopic
		hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
		if err != nil {
			return nil, err
		}
		cfg.MQTT.HADiscoveryTopic = hadBaseTopic
	}

	// check bounds
	if cfg.Serial.Address == "" {
		return nil, fmt.Errorf("config param serial.address is required")
	}
	if cfg.Serial.BaudRate <= 0 {
		return nil, fmt.Errorf("config param serial.baud_rate should be > 0")
	}
	if cfg.Serial.FramePaceMillis < 10 {
		return nil, fmt.Errorf("config param serial.frame_pace_millis should be >= 10")
	}
	if cfg.Serial.AckTimeoutMillis < 100 {
		return nil, fmt.Errorf("config param serial.ack_timeout_millis should be >= 100")
	}

	return &cfg, nil
}

func serialActorProvider(cfg *config.Config, logger *zap.Logger) coreactor.SerialActorProvider {
	link := serialwire.NewSerialLink(cfg.Serial.Address, cfg.Serial.BaudRate,
		time.Duration(cfg.Serial.ReadTimeoutMillis)*time.Millisecond)
	session := serialwire.NewSession(link,
		time.Duration(cfg.Serial.FramePaceMillis)*time.Millisecond,
		time.Duration(cfg.Serial.AckTimeoutMillis)*time.Millisecond,
		logger)

	return func() *adactor.SerialActor {
		return adactor.NewSerialActor(session, logger)
	}
}

func mqttActorProvider(cfg *config.Config, registry *domain.Registry, logger *zap.Logger) coreactor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, registry, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("serial.address", "/dev/ttyUSB0")
	viper.SetDefault("serial.baud_rate", 9600)
	viper.SetDefault("serial.frame_pace_millis", 300)
	viper.SetDefault("serial.ack_timeout_millis", 2000)
	viper.SetDefault("serial.read_timeout_millis", 1000)
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.base_topic", "homeline")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("llm.model", "llama-3.3-70b-versatile")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.LLM.APIKey = "*redacted*"
	slog.Info("Using", "config", cfg)
}
