// Package cli provides the command-line interface for baseline-runner.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to baseline.yaml (default: ./baseline.yaml, then the runner home)",
		EnvVars: []string{"BASELINE_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "wda-url",
		Usage:   "WebDriverAgent base URL (overrides wdaURL)",
		EnvVars: []string{"BASELINE_WDA_URL"},
	},
	&cli.StringFlag{
		Name:    "bundle-id",
		Usage:   "Bundle ID of the app under test (overrides bundleId)",
		EnvVars: []string{"BASELINE_BUNDLE_ID"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"BASELINE_LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"BASELINE_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// envFiles are loaded before flag parsing so EnvVars bindings see them.
// Variables already set in the environment win.
var envFiles = []string{".env"}

// Execute runs the CLI.
func Execute() {
	if err := loadEnvFiles(envFiles...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "baseline-runner",
		Usage:   "Bring an iOS app under test back to its baseline screen",
		Version: Version,
		Description: `baseline-runner drives an app through WebDriverAgent from whatever screen
it is on back to the canonical baseline: logged out, onboarding dismissed,
navigation stack empty, default tab selected.

Examples:
  baseline-runner recover
  baseline-runner --config ci/baseline.yaml recover --listen :8787
  baseline-runner check --id navigationBarBackButton
  baseline-runner plan`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			recoverCommand,
			checkCommand,
			planCommand,
		},
	}
}

func loadEnvFiles(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %v: %w", existing, err)
	}
	return nil
}
