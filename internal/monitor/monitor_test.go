package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	err    error
}

func (f *fakeSink) WritePoint(_ context.Context, p *influxdb2_write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func field(p *influxdb2_write.Point, key string) any {
	for _, f := range p.FieldList() {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

func TestObserve_Aggregates(t *testing.T) {
	s, err := NewService(Dependencies{ProjectID: "p1"})
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Observe(frame.Stats{Frame: 1, At: t0, Duration: 2 * time.Millisecond, Reconciled: 1,
		Reconcile: reconcile.Stats{Matched: 3, Created: 1}})
	s.Observe(frame.Stats{Frame: 2, At: t0.Add(time.Second), Duration: 4 * time.Millisecond, Posed: true, Tracks: 2,
		BoundChanged: 1, Touring: true, TourIndex: 1})

	w := s.Current()
	assert.Equal(t, t0, w.Start)
	assert.Equal(t, t0.Add(time.Second), w.End)
	assert.Equal(t, uint64(2), w.LastFrame)
	assert.Equal(t, 2, w.Ticks)
	assert.Equal(t, 3*time.Millisecond, w.MeanTick)
	assert.Equal(t, 4*time.Millisecond, w.MaxTick)
	assert.Equal(t, 1, w.Reconciled)
	assert.Equal(t, 3, w.Matched)
	assert.Equal(t, 1, w.Created)
	assert.Equal(t, 1, w.PosedFrames)
	assert.Equal(t, 2, w.MaxTracks)
	assert.Equal(t, 1, w.BoundChanged)
	assert.True(t, w.Touring)
	assert.Equal(t, 1, w.TourIndex)
}

func TestFlush_WritesStatusAndPoint(t *testing.T) {
	sink := &fakeSink{}
	status := filepath.Join(t.TempDir(), "status.json")
	s, err := NewService(Dependencies{ProjectID: "p1", Sink: sink, StatusPath: status})
	require.NoError(t, err)

	// nothing observed, nothing reported
	_, err = s.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sink.count())

	s.Observe(frame.Stats{Frame: 7, At: time.Now(), Duration: time.Millisecond, Reconciled: 2})
	w, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, w.Ticks)
	assert.Zero(t, s.Current().Ticks)

	require.Equal(t, 1, sink.count())
	p := sink.points[0]
	assert.Equal(t, "frame", p.Name())
	assert.Equal(t, int64(2), field(p, "reconciled"))
	assert.Equal(t, int64(7), field(p, "last_frame"))

	data, err := os.ReadFile(status)
	require.NoError(t, err)
	var got Window
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(7), got.LastFrame)
}

func TestFlush_SinkError(t *testing.T) {
	sink := &fakeSink{err: errors.New("down")}
	s, err := NewService(Dependencies{Sink: sink})
	require.NoError(t, err)

	s.Observe(frame.Stats{Frame: 1, At: time.Now()})
	_, err = s.Flush(context.Background())
	assert.ErrorContains(t, err, "down")
}

func TestStartStop(t *testing.T) {
	sink := &fakeSink{}
	s, err := NewService(Dependencies{Sink: sink, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Observe(frame.Stats{Frame: 1, At: time.Now()})
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	// the remainder is reported on stop
	s.Observe(frame.Stats{Frame: 2, At: time.Now()})
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.GreaterOrEqual(t, sink.count(), 2)
	s.Stop()
}

func TestObserverWiring(t *testing.T) {
	s, err := NewService(Dependencies{})
	require.NoError(t, err)
	var observer func(frame.Stats) = s.Observe
	observer(frame.Stats{Frame: 1})
	assert.Equal(t, 1, s.Current().Ticks)
}
