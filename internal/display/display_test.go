package display

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const queryOutput = `Screen 0: minimum 320 x 200, current 3840 x 1080, maximum 16384 x 16384
HDMI-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00 +  50.00    59.94*
   1280x720      60.00    50.00
DP-1 disconnected (normal left inverted right x axis y axis)
   1024x768      60.00
DP-2 connected 1920x1080+1920+0 (normal left inverted right x axis y axis) 510mm x 287mm
   1920x1080     144.00*+ 120.00
`

func TestParseQuery(t *testing.T) {
	modes, err := ParseQuery(strings.NewReader(queryOutput))
	require.NoError(t, err)

	assert.Equal(t, []Mode{
		{Output: "HDMI-1", Name: "1920x1080", Rate: 60, Preferred: true},
		{Output: "HDMI-1", Name: "1920x1080", Rate: 50},
		{Output: "HDMI-1", Name: "1920x1080", Rate: 59.94, Current: true},
		{Output: "HDMI-1", Name: "1280x720", Rate: 60},
		{Output: "HDMI-1", Name: "1280x720", Rate: 50},
		{Output: "DP-2", Name: "1920x1080", Rate: 144, Current: true, Preferred: true},
		{Output: "DP-2", Name: "1920x1080", Rate: 120},
	}, modes)
}

func TestXrandr_ModesAndApply(t *testing.T) {
	var calls [][]string
	x := NewXrandr("")
	x.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return []byte(queryOutput), nil
	}

	modes, err := x.Modes(context.Background())
	require.NoError(t, err)
	assert.Len(t, modes, 7)

	result, err := x.Apply(context.Background(), Mode{Output: "HDMI-1", Name: "1920x1080", Rate: 59.94})
	require.NoError(t, err)
	assert.Equal(t, ApplySuccess, result)

	assert.Equal(t, [][]string{
		{"xrandr", "--query"},
		{"xrandr", "--output", "HDMI-1", "--mode", "1920x1080", "--rate", "59.94"},
	}, calls)
}

func TestXrandr_Unavailable(t *testing.T) {
	x := NewXrandr("xrandr")
	x.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("Can't open display")
	}

	_, err := x.Modes(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	result, err := x.Apply(context.Background(), Mode{Output: "HDMI-1", Name: "1280x720"})
	assert.Error(t, err)
	assert.Equal(t, ApplyFailed, result)
}

type mockSystem struct {
	mock.Mock
}

func (m *mockSystem) Modes(ctx context.Context) ([]Mode, error) {
	args := m.Called(ctx)
	modes, _ := args.Get(0).([]Mode)
	return modes, args.Error(1)
}

func (m *mockSystem) Apply(ctx context.Context, mode Mode) (ApplyResult, error) {
	args := m.Called(ctx, mode)
	return args.Get(0).(ApplyResult), args.Error(1)
}

func TestGuard_RestoreCurrentModesOnce(t *testing.T) {
	ctx := context.Background()
	hdmi := Mode{Output: "HDMI-1", Name: "1920x1080", Rate: 59.94, Current: true}
	dp := Mode{Output: "DP-2", Name: "1920x1080", Rate: 144, Current: true}

	sys := &mockSystem{}
	sys.On("Modes", ctx).Return([]Mode{
		hdmi,
		{Output: "HDMI-1", Name: "1280x720", Rate: 60},
		dp,
	}, nil)
	applyHDMI := sys.On("Apply", ctx, hdmi).Return(ApplyFailed, errors.New("busy")).Once()
	sys.On("Apply", ctx, dp).Return(ApplySuccess, nil).Once().NotBefore(applyHDMI)

	g, err := Capture(ctx, sys, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, g.Snapshot(), 3)

	err = g.Restore(ctx)
	assert.Error(t, err, "failure is reported")
	assert.True(t, g.Restored())
	assert.Empty(t, g.Snapshot())

	// 2回目は適用しない
	assert.NoError(t, g.Restore(ctx))

	sys.AssertExpectations(t)
	sys.AssertNumberOfCalls(t, "Apply", 2)
}

func TestGuard_NeedsRestartIsNotAnError(t *testing.T) {
	ctx := context.Background()
	mode := Mode{Output: "eDP-1", Name: "2560x1600", Rate: 120, Current: true}

	sys := &mockSystem{}
	sys.On("Modes", ctx).Return([]Mode{mode}, nil)
	sys.On("Apply", ctx, mode).Return(ApplyNeedsRestart, nil)

	g, err := Capture(ctx, sys, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, g.Restore(ctx))
	sys.AssertExpectations(t)
}

func TestCapture_Unavailable(t *testing.T) {
	ctx := context.Background()
	sys := &mockSystem{}
	sys.On("Modes", ctx).Return(nil, errors.New("no display"))

	g, err := Capture(ctx, sys, zerolog.Nop())

	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrUnavailable)
}
