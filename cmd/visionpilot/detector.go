package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/infrastructure/logging"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/perception/replay"
	"github.com/nerrad567/visionpilot/internal/perception/sidecar"
	"github.com/nerrad567/visionpilot/internal/process"
)

const (
	readyPollInterval = 500 * time.Millisecond
	restartDelay      = 2 * time.Second
	maxRestartDelay   = time.Minute
	gracefulTimeout   = 5 * time.Second
)

// startDetector returns the configured detection provider and a function
// that releases it.
//
// With a replay script the provider is the script; a missing or
// unparseable script is fatal. Otherwise the sidecar is used, launched and
// supervised here when managed, and it must answer /health within the
// start-up timeout.
func startDetector(ctx context.Context, cfg *config.Config, log *logging.Logger) (perception.Provider, func(), error) {
	if path := cfg.Detection.Replay; path != "" {
		p, err := replay.Load(path, true)
		if err != nil {
			return nil, nil, fmt.Errorf("loading detector asset: %w", err)
		}
		log.Info("replaying detections", "script", path, "frames", p.Len())
		return p, func() {}, nil
	}

	sc := cfg.Detection.Sidecar
	client := sidecar.New(sc.URL, sidecar.Options{
		Confidence: cfg.Detection.ConfidenceThreshold,
		Timeout:    config.Seconds(sc.RequestTimeout),
	})

	stop := func() {}
	if sc.Managed {
		mgr := process.NewManager(sidecarProcessConfig(cfg, client))
		mgr.SetLogger(log)
		if err := mgr.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("launching detector: %w", err)
		}
		stop = func() {
			log.Info("stopping detector")
			if err := mgr.Stop(); err != nil {
				log.Error("error stopping detector", "error", err)
			}
		}
	}

	readyCtx, cancel := context.WithTimeout(ctx, time.Duration(sc.StartupTimeout)*time.Second)
	defer cancel()
	if err := process.WaitReady(readyCtx, client.Health, readyPollInterval); err != nil {
		stop()
		return nil, nil, fmt.Errorf("loading detector asset: %w", err)
	}
	log.Info("detector ready", "url", sc.URL, "managed", sc.Managed, "model", cfg.Detection.ModelPath)
	return client, stop, nil
}

// sidecarProcessConfig describes the detector child process. The model
// path and listen address reach it through the environment.
func sidecarProcessConfig(cfg *config.Config, client *sidecar.Client) process.Config {
	sc := cfg.Detection.Sidecar
	return process.Config{
		Name:                "detector",
		Binary:              sc.Binary,
		Args:                sc.Args,
		Env:                 []string{"VISIONPILOT_MODEL_PATH=" + cfg.Detection.ModelPath, "VISIONPILOT_SIDECAR_URL=" + sc.URL},
		RestartOnFailure:    sc.RestartOnFailure,
		RestartDelay:        restartDelay,
		MaxRestartDelay:     maxRestartDelay,
		MaxRestartAttempts:  sc.MaxRestartAttempts,
		GracefulTimeout:     gracefulTimeout,
		HealthCheckFunc:     client.Health,
		HealthCheckInterval: time.Duration(sc.HealthInterval) * time.Second,
	}
}
