package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
)

var planCommand = &cli.Command{
	Name:  "plan",
	Usage: "Print the recovery decision table",
	Description: `Print the ordered states the recovery machine visits, with the presence
gate, action and successor of each. Control overrides from baseline.yaml are applied.
No device is contacted.`,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		m, err := buildMachine(cfg, newSession(cfg))
		if err != nil {
			return err
		}
		return baseline.RenderPlan(c.App.Writer, m.Plan())
	},
}
