// Package process supervises a long-running child process.
//
// VisionPilot uses it for the detector sidecar: the model runs in its own
// process and the engine talks to it over HTTP. The manager launches the
// binary in its own process group, forwards its output to the logger line
// by line, restarts it with exponential backoff when it dies, and kills it
// when its health check fails three times in a row.
//
// Example:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "detector",
//	    Binary:           "/opt/visionpilot/detector",
//	    Args:             []string{"--model", "models/village.onnx"},
//	    RestartOnFailure: true,
//	    HealthCheckFunc:  client.Health,
//	})
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
//
//	if err := process.WaitReady(ctx, client.Health, 250*time.Millisecond); err != nil {
//	    return err
//	}
package process
