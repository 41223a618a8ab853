package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/metrics"
)

func TestRunner_EveryRecoversAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil)

	var calls atomic.Int32
	r.Every(5*time.Millisecond, "test_panics", func(context.Context) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, value(t, jobErrors.WithLabelValues("test_panics")), 3.0)
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

type fakeCounter map[string]int

func (f fakeCounter) TaskCounts(context.Context) (map[string]int, error) { return f, nil }

type fakeReminder struct{ n int }

func (f *fakeReminder) SendDeadlineReminders(context.Context) (int, error) { return f.n, nil }

func TestTaskGauges(t *testing.T) {
	job := TaskGauges(fakeCounter{"new": 4, "completed": 1})
	require.NoError(t, job(context.Background()))

	assert.Equal(t, 4.0, value(t, metrics.Tasks.WithLabelValues("new")))
	assert.Equal(t, 0.0, value(t, metrics.Tasks.WithLabelValues("in_progress")))
	assert.Equal(t, 1.0, value(t, metrics.Tasks.WithLabelValues("completed")))
}

func TestDeadlineReminders(t *testing.T) {
	job := DeadlineReminders(&fakeReminder{n: 2}, zapNop())
	assert.NoError(t, job(context.Background()))
}

func zapNop() *zap.Logger { return zap.NewNop() }

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}
