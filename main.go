package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/greenhaus/chargesched/cloudsync"
	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/control"
	"github.com/greenhaus/chargesched/hastate"
	"github.com/greenhaus/chargesched/httpapi"
	"github.com/greenhaus/chargesched/inverterauth"
	"github.com/greenhaus/chargesched/model"
	"github.com/greenhaus/chargesched/setpoint"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var configFilePath string
	flag.StringVar(&configFilePath, "f", "./config.json", "path to the configuration profile")
	flag.Parse()

	slog.Info("starting", "config_file", configFilePath)

	cfg, err := config.Read(configFilePath)
	if err != nil {
		slog.Error("failed to read config", "error", err)
		os.Exit(1)
	}

	telemetry := hastate.New(cfg.HomeAssistant.Url, cfg.HomeAssistant.Token)

	sessionPath := filepath.Join(cfg.DataDir, "inverterauth.session")
	inverter := inverterauth.New(cfg.Inverter.IP, cfg.Inverter.InstallerPassword, cfg.Inverter.MasterPassword, sessionPath)

	writer, err := setpoint.New(cfg.Inverter.ModbusHost)
	if err != nil {
		slog.Error("failed to connect to the field bus", "error", err)
		os.Exit(1)
	}
	defer writer.Close()

	dbPath := filepath.Join(cfg.DataDir, "consumption.db")
	store, err := consumption.New(dbPath, cfg.LearningDays, cfg.DefaultHourlyFallback, cfg.AverageDailyConsumption)
	if err != nil {
		slog.Error("failed to open consumption store", "error", err)
		os.Exit(1)
	}

	loop := control.New(telemetry, inverter, writer, store, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("control loop exited", "error", err)
		}
	}()

	if cfg.CloudSync.Enabled {
		client := cloudsync.New(cfg.CloudSync.Url, cfg.CloudSync.AnonKey, cfg.CloudSync.UserKey, cfg.CloudSync.Schema, cfg.CloudSync.DeviceID)
		mirror := cloudsync.NewMirror(client, store)
		uploadInterval := time.Duration(cfg.CloudSync.UploadIntervalSecs) * time.Second

		go func() {
			if err := mirror.Run(ctx, uploadInterval); err != nil && ctx.Err() == nil {
				slog.Error("cloud sync mirror exited", "error", err)
			}
		}()
		go forwardDecisions(ctx, loop, mirror, time.Duration(cfg.ControlIntervalSecs)*time.Second)
	}

	router, wsHandler := httpapi.NewRouter(loop, inverter, store, configFilePath)
	go httpapi.Run(ctx, wsHandler)

	go func() {
		if err := router.Run(cfg.HTTP.ListenAddr); err != nil {
			slog.Error("http server exited", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan

	cancel()
	time.Sleep(100 * time.Millisecond)

	slog.Info("exiting")
}

// forwardDecisions samples the status explainer on the control loop's own
// cadence and relays each decision to the cloud mirror, keeping the mirror
// decoupled from the control loop's internals.
func forwardDecisions(ctx context.Context, loop *control.Loop, mirror *cloudsync.Mirror, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			report := loop.Explain()
			mirror.RecordDecision(now, model.ControlDecision{
				WillCharge: report.WillCharge,
				Mode:       loop.Snapshot().Mode,
				Reason:     report.Explanation,
			})
		}
	}
}
