package locator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/driver/fake"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

func TestTextInput_ClearAndEnterText(t *testing.T) {
	app := fake.New(fake.Config{})
	ctx := context.Background()
	key := locator.Identifier("email")
	app.ShowAs(key, fake.KindTextField)
	app.SetText(key, "stale")
	field := locator.NewTextInput(app, key)

	require.NoError(t, field.ClearAndEnterText(ctx, "a@b.co", locator.ExpectResult("a@b.co")))

	got, err := field.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", got)
}

func TestTextInput_Mismatch(t *testing.T) {
	app := fake.New(fake.Config{})
	key := locator.Identifier("zip")
	app.ShowAs(key, fake.KindTextField)
	app.TransformText(key, func(s string) string { return s[:3] })

	err := locator.NewTextInput(app, key).
		ClearAndEnterText(context.Background(), "12345", locator.ExpectResult("12345"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTextMismatch))
	assert.Contains(t, err.Error(), `"123"`)
}

func TestTextInput_NoExpectationSkipsCheck(t *testing.T) {
	app := fake.New(fake.Config{})
	key := locator.Identifier("search")
	app.ShowAs(key, fake.KindTextField)
	app.TransformText(key, strings.ToUpper)

	require.NoError(t, locator.NewTextInput(app, key).ClearAndEnterText(context.Background(), "shoes"))
}

func TestTextInput_SettleDelay(t *testing.T) {
	app := fake.New(fake.Config{})
	key := locator.Identifier("search")
	app.ShowAs(key, fake.KindTextField)

	err := locator.NewTextInput(app, key).
		ClearAndEnterText(context.Background(), "shoes", locator.SettleDelay(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, app.Sleeps())
}

func TestTextInput_TextBestEffort(t *testing.T) {
	app := fake.New(fake.Config{})
	got, err := locator.NewTextInput(app, locator.Identifier("gone")).Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = locator.NewTextInput(app, nil).Text(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoLocator))
}

func TestLabelReader(t *testing.T) {
	app := fake.New(fake.Config{})
	key := locator.Identifier("greeting")
	app.ShowAs(key, fake.KindLabel)
	app.SetText(key, "Hello")

	got, err := locator.NewLabelReader(app, key).Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestButtonReader(t *testing.T) {
	app := fake.New(fake.Config{})
	key := locator.Identifier("follow")
	app.ShowAs(key, fake.KindButton)
	app.SetSelected(key, true)

	selected, err := locator.NewButtonReader(app, key).Selected(context.Background())
	require.NoError(t, err)
	assert.True(t, selected)

	app.Hide(key)
	_, err = locator.NewButtonReader(app, key).Selected(context.Background())
	assert.True(t, errors.Is(err, core.ErrNotTappable))
}
