package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/reef-pi/hydrokit/controller/config"
	"github.com/reef-pi/hydrokit/controller/connectivity"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/reef-pi/hydrokit/controller/modules/hydrokit"
	"github.com/reef-pi/hydrokit/controller/telemetry"
	"github.com/reef-pi/rpi/i2c"
	"github.com/spf13/pflag"
)

var (
	logLevelMapping = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func main() {
	flags := pflag.NewFlagSet("hydrokit", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to the configuration file")
	flags.Bool("simulate", false, "emulate the EZO circuits instead of using the I2C bus")
	printConfig := flags.Bool("print-config", false, "print the effective configuration and exit")
	measureOnce := flags.Bool("measure", false, "take one compensated reading of every sensor, print it and exit")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading configuration:", err)
		os.Exit(1)
	}
	if *printConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	level := logLevelMapping[cfg.General.LogLevel]
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: slogReplaceAttr})
	slog.SetDefault(slog.New(handler))
	slog.Info("hydrokit is initializing", "simulate", cfg.Bus.Simulate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *measureOnce {
		if err := runMeasure(ctx, cfg); err != nil {
			slog.Error("measuring sensors", "error", err)
			os.Exit(1)
		}
		return
	}
	if err := run(ctx, cfg); err != nil {
		slog.Error("hydrokit stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("hydrokit stopped")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	bus, err := openBus(cfg.Bus, cfg.Devices)
	if err != nil {
		return err
	}
	devices, err := ezo.NewRegistry(bus, cfg.Devices)
	if err != nil {
		return err
	}
	defer devices.Close()

	if !cfg.Bus.Simulate && len(cfg.Bus.Enable) > 0 {
		enabler, err := ezo.Enable(cfg.Bus.GPIOChip, cfg.Bus.Enable)
		if err != nil {
			return err
		}
		defer enabler.Close()
	}

	link, err := connectivity.New(cfg.Network)
	if err != nil {
		return err
	}
	if c, ok := link.(io.Closer); ok {
		defer c.Close()
	}

	encoder, err := telemetry.NewEncoder(cfg.MQTT.Encoding)
	if err != nil {
		return err
	}
	broker := telemetry.NewMQTTClient(cfg.MQTT)
	defer broker.Disconnect()

	ctrl, err := hydrokit.New(hydrokit.Options{
		Config:  cfg.Acquisition,
		Devices: devices,
		Link:    link,
		Broker:  broker,
		Encoder: encoder,
		Topic:   cfg.MQTT.Topic,
		Missing: cfg.MQTT.Missing,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if cfg.HTTP.Enable {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctrl.Serve(ctx, cfg.HTTP.Address); err != nil {
				slog.Error("api server failed", "error", err)
			}
		}()
	}

	err = ctrl.Run(ctx)
	wg.Wait()
	return err
}

func runMeasure(ctx context.Context, cfg config.AppConfig) error {
	bus, err := openBus(cfg.Bus, cfg.Devices)
	if err != nil {
		return err
	}
	devices, err := ezo.NewRegistry(bus, cfg.Devices)
	if err != nil {
		return err
	}
	defer devices.Close()
	if !cfg.Bus.Simulate && len(cfg.Bus.Enable) > 0 {
		enabler, err := ezo.Enable(cfg.Bus.GPIOChip, cfg.Bus.Enable)
		if err != nil {
			return err
		}
		defer enabler.Close()
	}
	driver := ezo.NewDriver(devices, cfg.Acquisition.ReadingDelay)
	defer driver.Close()
	return measure(ctx, driver, cfg.Acquisition.CompensationDelay, os.Stdout)
}

func openBus(cfg config.BusConfig, addrs ezo.Addresses) (ezo.Bus, error) {
	if cfg.Simulate {
		return ezo.NewSimBus(addrs), nil
	}
	bus, err := i2c.New()
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus: %w", err)
	}
	return bus, nil
}

func slogReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
		return slog.Any(a.Key, source)
	}
	return a
}
