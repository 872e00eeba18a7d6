package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Check whether an element is on screen",
	Description: `Run a single presence check. Exits 0 when the element is present, 1 otherwise.

Examples:
  baseline-runner check --id navigationBarBackButton
  baseline-runner check --label "Allow"`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Accessibility identifier"},
		&cli.StringFlag{Name: "label", Usage: "Accessibility label"},
	},
	Action: runCheck,
}

func runCheck(c *cli.Context) error {
	key, err := locator.ParseKey(c.String("id"), c.String("label"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, cfg.PresenceTimeout+cfg.Timeout)
	defer cancel()

	s := newSession(cfg)
	if err := s.connect(ctx, cfg.BundleID); err != nil {
		return err
	}
	defer s.close()

	present, err := locator.New(s.driver, key).IsPresent(ctx)
	if err != nil {
		return err
	}
	if !present {
		fmt.Fprintf(c.App.Writer, "%s absent\n", key)
		return cli.Exit("", 1)
	}
	fmt.Fprintf(c.App.Writer, "%s present\n", key)
	return nil
}
