package baseline

import (
	_ "embed"

	"github.com/devicelab-dev/baseline-runner/pkg/flow"
)

//go:embed onboarding.yaml
var onboardingYAML []byte

// DefaultOnboardingFlow returns the built-in onboarding fast-forward. It
// signs up through the gender and birthday screens, accepts the notification
// prompt, logs the new account out through profile settings and ends on the
// home tab. Its identifiers match DefaultControls.
func DefaultOnboardingFlow() (*flow.Flow, error) {
	return flow.Parse(onboardingYAML, "onboarding.yaml")
}
