package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/config"
	"github.com/devicelab-dev/baseline-runner/pkg/driver/wda"
	"github.com/devicelab-dev/baseline-runner/pkg/flow"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// loadConfig resolves the workspace config and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadWorkspace(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := c.String("wda-url"); v != "" {
		cfg.WDAURL = v
	}
	if v := c.String("bundle-id"); v != "" {
		cfg.BundleID = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging opens <home>/logs/<command>-<timestamp>.log.
func initLogging(cfg *config.Config, command string) (string, error) {
	dir := config.GetLogsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", command, time.Now().Format("20060102-150405")))
	if err := logger.Init(path); err != nil {
		return "", err
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("invalid log level %q, using debug", cfg.LogLevel)
	}
	return path, nil
}

// session is one WebDriverAgent connection and the actor built on it.
type session struct {
	client *wda.Client
	driver *wda.Driver
	hub    *checkpoint.Hub
}

// newSession builds the actor. No request is sent until connect.
func newSession(cfg *config.Config) *session {
	client := wda.NewClient(cfg.WDAURL)
	hub := checkpoint.NewHub(cfg.CheckpointTimeout)
	return &session{
		client: client,
		hub:    hub,
		driver: wda.NewDriver(client, hub, wda.Options{
			FindTimeout:     cfg.Timeout,
			PresenceTimeout: cfg.PresenceTimeout,
			PollInterval:    cfg.PollInterval,
		}),
	}
}

// connect checks that WDA answers, then opens a session for the configured
// app. Without a bundle ID the driver talks to whatever app is in the
// foreground, sessionless.
func (s *session) connect(ctx context.Context, bundleID string) error {
	if _, err := s.client.Status(ctx); err != nil {
		return err
	}
	if bundleID == "" {
		return nil
	}
	if err := s.client.CreateSession(ctx, bundleID); err != nil {
		return err
	}
	logger.Info("WDA session %s for %s", s.client.SessionID(), bundleID)
	return nil
}

func (s *session) close() {
	if !s.client.HasSession() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.DeleteSession(ctx); err != nil {
		logger.Warn("failed to delete WDA session: %v", err)
	}
}

// buildMachine wires the recovery machine onto the session's driver.
func buildMachine(cfg *config.Config, s *session) (*baseline.Machine, error) {
	keys, err := cfg.ControlKeys()
	if err != nil {
		return nil, err
	}
	controls, err := baseline.DefaultControls().With(keys)
	if err != nil {
		return nil, err
	}

	opts := baseline.Options{
		Controls:     controls,
		ShortDelay:   &cfg.ShortDelay,
		MediumDelay:  &cfg.MediumDelay,
		Budget:       cfg.Budget,
		MaxDrainTaps: cfg.MaxDrainTaps,
	}
	f, err := onboardingFlow(cfg)
	if err != nil {
		return nil, err
	}
	opts.Onboarding = baseline.FlowOnboarding(flow.NewRunner(s.driver, s.driver), f)
	return baseline.New(s.driver, s.driver, opts)
}

// onboardingFlow loads the configured onboarding flow, or the built-in one.
func onboardingFlow(cfg *config.Config) (*flow.Flow, error) {
	if cfg.OnboardingFlow == "" {
		return baseline.DefaultOnboardingFlow()
	}
	return flow.ParseFile(cfg.OnboardingFlow)
}
