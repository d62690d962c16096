// VisionPilot drives an emulator window from object detections.
//
// Each iteration locates the target window, asks the detector for labelled
// boxes, resolves the current state and lets that state's handler act
// through the pointer. Sessions can run straight away or wait for a start
// request from the control API or MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither --config nor VISIONPILOT_CONFIG is set.
const defaultConfigPath = "configs/visionpilot.yaml"

// options are the command-line overrides.
type options struct {
	configPath string
	model      string
	window     string
	replay     string
	dryRun     bool
	idle       bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "visionpilot",
		Short: "Detection-driven automation for an emulator window",
		Long: `VisionPilot locates the target window, asks the detector for labelled
boxes each iteration and drives the pointer from the resolved state.

--dry-run keeps detection and state transitions and suppresses only clicks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", configPathFromEnv(), "path to the YAML configuration file")
	f.StringVar(&opts.model, "model", "", "detector model asset path")
	f.StringVar(&opts.window, "window", "", "target window title keyword or pattern")
	f.StringVar(&opts.replay, "replay", "", "play detections from a JSONL or YAML script instead of the sidecar")
	f.BoolVar(&opts.dryRun, "dry-run", false, "detect and transition without clicking")
	f.BoolVar(&opts.idle, "idle", false, "wait for a start request instead of starting a session")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "visionpilot %s (commit %s, built %s)\n", version, commit, date)
}

// configPathFromEnv returns VISIONPILOT_CONFIG if set, otherwise the default.
func configPathFromEnv() string {
	if path := os.Getenv("VISIONPILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
