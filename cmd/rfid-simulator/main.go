package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	commoncfg "wisefido-asset/common/config"
	"wisefido-asset/common/logger"
	mqttcommon "wisefido-asset/common/mqtt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		mode     string
		baseURL  string
		storage  string
		interval time.Duration
		random   int
		seed     int64
		logLevel string
	)
	flagSet := pflag.NewFlagSet("rfid-simulator", pflag.ContinueOnError)
	flagSet.StringVar(&mode, "mode", "http", "transport: http or mqtt")
	flagSet.StringVar(&baseURL, "url", "http://localhost:8090", "wisefido-asset base URL (http mode)")
	flagSet.StringVar(&storage, "storage", "Storage", "storage location name")
	flagSet.DurationVar(&interval, "interval", 2*time.Second, "pause between movements")
	flagSet.IntVar(&random, "random", 0, "send N random movements instead of the demo script")
	flagSet.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	zapLogger, err := logger.NewLogger(logLevel, "console", "rfid-simulator")
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	var publisher Publisher
	switch mode {
	case "http":
		publisher = NewHTTPPublisher(baseURL)
	case "mqtt":
		mqttCfg := commoncfg.MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "wisefido-rfid-simulator",
			QoS:      1,
		}
		mqttCfg.LoadFromEnv("MQTT")
		client, err := mqttcommon.NewClient(&mqttCfg, zapLogger)
		if err != nil {
			return err
		}
		defer client.Disconnect()
		publisher = NewMQTTPublisher(client, mqttCfg.QoS)
	default:
		return fmt.Errorf("unknown mode %q (want http or mqtt)", mode)
	}

	movements := DefaultMovements
	if random > 0 {
		movements = RandomMovements(rand.New(rand.NewSource(seed)), DemoAssets, Readers, random)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sim := NewSimulator(publisher, storage, interval, zapLogger)
	sent, failed, err := sim.Run(ctx, movements)
	zapLogger.Info("RFID simulation finished", zap.Int("sent", sent), zap.Int("failed", failed))
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
