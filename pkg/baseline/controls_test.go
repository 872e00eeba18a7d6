package baseline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/driver/fake"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

func TestDefaultControls_Valid(t *testing.T) {
	c := DefaultControls()
	require.NoError(t, c.Validate())
	for _, r := range Roles() {
		k, ok := c.Key(r)
		require.True(t, ok, "role %s", r)
		assert.Equal(t, locator.StrategyIdentifier, k.Strategy())
	}
}

func TestControls_With(t *testing.T) {
	c, err := DefaultControls().With(map[string]locator.Key{
		"back":       locator.Label("Back"),
		"defaultTab": locator.Identifier("homeTab"),
	})
	require.NoError(t, err)
	assert.Equal(t, locator.Label("Back"), c.Back)
	assert.Equal(t, locator.Identifier("homeTab"), c.DefaultTab)
	assert.Equal(t, DefaultControls().Close, c.Close)
}

func TestControls_WithUnknownRole(t *testing.T) {
	_, err := DefaultControls().With(map[string]locator.Key{"forward": locator.Label("Next")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
	assert.Contains(t, err.Error(), `"forward"`)
}

func TestControls_ValidateEmptyKey(t *testing.T) {
	c := DefaultControls()
	c.Logout = locator.Label("")
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoLocator))
	assert.Contains(t, err.Error(), "logout")
}

func TestNew_FillsMissingRoles(t *testing.T) {
	app := fake.New(fake.Config{})
	m, err := New(app, app, Options{Controls: Controls{Back: locator.Label("Back")}})
	require.NoError(t, err)

	opts := m.Options()
	assert.Equal(t, locator.Label("Back"), opts.Controls.Back)
	assert.Equal(t, DefaultControls().ProfileTab, opts.Controls.ProfileTab)
	assert.Equal(t, DefaultBudget, opts.Budget)
	assert.Equal(t, DefaultMaxDrainTaps, opts.MaxDrainTaps)
	require.NotNil(t, opts.ShortDelay)
	require.NotNil(t, opts.MediumDelay)
	assert.Equal(t, DefaultShortDelay, *opts.ShortDelay)
	assert.Equal(t, DefaultMediumDelay, *opts.MediumDelay)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	app := fake.New(fake.Config{})

	_, err := New(nil, app, Options{})
	assert.True(t, errors.Is(err, core.ErrMissingRequired))

	_, err = New(app, nil, Options{})
	assert.True(t, errors.Is(err, core.ErrMissingRequired))

	negative := -time.Millisecond
	_, err = New(app, app, Options{MediumDelay: &negative})
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}
