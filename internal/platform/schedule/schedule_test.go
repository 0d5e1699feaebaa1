package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "every six hours", expr: "0 */6 * * *"},
		{name: "descriptor", expr: "@hourly"},
		{name: "every duration", expr: "@every 30m"},
		{name: "surrounding space", expr: "  15 8 * * 1-5 "},
		{name: "too few fields", expr: "0 6 *", wantErr: true},
		{name: "garbage", expr: "every morning", wantErr: true},
		{name: "empty", expr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expr)
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := Location("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = Location("Asia/Nicosia")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Nicosia", loc.String())

	_, err = Location("Mars/Olympus")
	require.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Expression: "nope"}, func(context.Context) {}, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidSchedule)

	_, err = New(Config{Expression: "@hourly", Timezone: "Nowhere/City"}, func(context.Context) {}, nil)
	require.Error(t, err)
}

func TestScheduler_RunOnStartup(t *testing.T) {
	var runs atomic.Int32

	release := make(chan struct{})

	s, err := New(Config{Expression: "0 0 1 1 *", RunOnStartup: true}, func(context.Context) {
		runs.Add(1)
		<-release
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, s.Stop(stopCtx), context.DeadlineExceeded)

	close(release)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	var runs atomic.Int32

	release := make(chan struct{})

	s, err := New(Config{Expression: "@yearly"}, func(context.Context) {
		runs.Add(1)
		<-release
	}, nil)
	require.NoError(t, err)

	go s.job.Run()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.job.Run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
}

func TestScheduler_NoStartupRun(t *testing.T) {
	var runs atomic.Int32

	s, err := New(Config{Expression: "@yearly", Timezone: "UTC"}, func(context.Context) { runs.Add(1) }, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	assert.True(t, s.Next().After(time.Now()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, runs.Load())
}

func TestScheduler_CanceledContextSkipsRun(t *testing.T) {
	var runs atomic.Int32

	s, err := New(Config{Expression: "@yearly"}, func(context.Context) { runs.Add(1) }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Start(ctx)
	s.job.Run()

	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, runs.Load())
}
