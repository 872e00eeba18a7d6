package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/config"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

var recoverCommand = &cli.Command{
	Name:  "recover",
	Usage: "Drive the app back to its baseline screen",
	Description: `Connect to WebDriverAgent, start the checkpoint listeners and run the
recovery machine once. Exits 1 when the baseline is not reached.

Checkpoints are accepted over HTTP (POST /checkpoints/{name} on --listen)
and NATS (--nats-url, subject natsSubject). Prometheus metrics are served on
--listen at /metrics.

Examples:
  baseline-runner recover
  baseline-runner recover --listen :8787 --budget 5m
  baseline-runner recover --nats-url nats://127.0.0.1:4222`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "Address for the checkpoint and metrics HTTP listener (overrides checkpointListen)",
			EnvVars: []string{"BASELINE_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "NATS server carrying checkpoint messages (overrides natsURL)",
			EnvVars: []string{"BASELINE_NATS_URL"},
		},
		&cli.StringFlag{
			Name:  "flow",
			Usage: "Onboarding flow file (overrides onboardingFlow)",
		},
		&cli.DurationFlag{
			Name:  "budget",
			Usage: "Overall recovery budget (overrides budget)",
		},
		&cli.IntFlag{
			Name:  "max-drain-taps",
			Usage: "Tap limit per back/close drain (overrides maxDrainTaps)",
		},
	},
	Action: runRecover,
}

func runRecover(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyRecoverFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logPath, err := initLogging(cfg, "recover")
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	logger.Info("=== Recovery started ===")
	logger.Info("WDA: %s, bundle: %s, budget: %s", cfg.WDAURL, cfg.BundleID, cfg.Budget)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := c.App.Writer
	s := newSession(cfg)
	printSetupStep(out, fmt.Sprintf("Connecting to WebDriverAgent at %s", cfg.WDAURL))
	if err := s.connect(ctx, cfg.BundleID); err != nil {
		return fmt.Errorf("failed to connect to WebDriverAgent: %w", err)
	}
	defer s.close()
	printSetupSuccess(out, "WebDriverAgent ready")

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("baseline-runner"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		if _, err := checkpoint.SubscribeNATS(nc, cfg.NATSSubject, s.hub); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", cfg.NATSSubject, err)
		}
		printSetupSuccess(out, fmt.Sprintf("Listening for checkpoints on NATS %s", cfg.NATSSubject))
	}

	m, err := buildMachine(cfg, s)
	if err != nil {
		return err
	}

	var ln net.Listener
	if cfg.CheckpointListen != "" {
		ln, err = net.Listen("tcp", cfg.CheckpointListen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.CheckpointListen, err)
		}
		printSetupSuccess(out, fmt.Sprintf("Listening for checkpoints on http://%s", ln.Addr()))
	}

	report, err := recoverWithListener(ctx, m, s.hub, ln)
	if report != nil {
		printSummary(out, report)
	}
	if logPath != "" {
		fmt.Fprintf(out, "  Log: %s\n", logPath)
	}
	if err != nil {
		logger.Error("Recovery failed: %v", err)
		return cli.Exit("", 1)
	}
	logger.Info("=== Baseline reached ===")
	return nil
}

func applyRecoverFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("listen"); v != "" {
		cfg.CheckpointListen = v
	}
	if v := c.String("nats-url"); v != "" {
		cfg.NATSURL = v
	}
	if v := c.String("flow"); v != "" {
		cfg.OnboardingFlow = v
	}
	if c.IsSet("budget") {
		cfg.Budget = c.Duration("budget")
	}
	if c.IsSet("max-drain-taps") {
		cfg.MaxDrainTaps = c.Int("max-drain-taps")
	}
}

// recoverWithListener runs the machine while serving checkpoints on ln.
// The listener stops as soon as recovery returns. ln may be nil.
func recoverWithListener(ctx context.Context, m *baseline.Machine, hub *checkpoint.Hub, ln net.Listener) (*baseline.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var report *baseline.Report
	g.Go(func() error {
		defer cancel()
		var err error
		report, err = m.Recover(gctx)
		return err
	})

	if ln != nil {
		srv := &http.Server{
			Handler:           listenerRoutes(hub),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("checkpoint listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	return report, err
}

func listenerRoutes(hub *checkpoint.Hub) http.Handler {
	r := chi.NewRouter()
	checkpoint.Routes(r, hub)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
