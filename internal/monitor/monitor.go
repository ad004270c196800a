// Package monitor aggregates frame loop statistics over a fixed window and
// reports each window to a status file and a telemetry sink.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/omni3d/studio/internal/frame"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sink receives one point per window. *influx.Manager satisfies it.
type Sink interface {
	WritePoint(ctx context.Context, p *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// Sink and StatusPath are optional.
	Sink       Sink
	StatusPath string
	ProjectID  string
	Interval   time.Duration
}

// Window is the aggregate of the ticks observed since the last flush.
type Window struct {
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	LastFrame    uint64        `json:"lastFrame"`
	Ticks        int           `json:"ticks"`
	MeanTick     time.Duration `json:"meanTick"`
	MaxTick      time.Duration `json:"maxTick"`
	BoundChanged int           `json:"boundChanged"`
	Reconciled   int           `json:"reconciled"`
	Matched      int           `json:"matched"`
	Created      int           `json:"created"`
	Removed      int           `json:"removed"`
	PosedFrames  int           `json:"posedFrames"`
	MaxTracks    int           `json:"maxTracks"`
	Touring      bool          `json:"touring"`
	TourIndex    int           `json:"tourIndex"`

	total time.Duration
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	window    Window
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}

	ticks    metric.Int64Counter
	duration metric.Float64Histogram
	attrs    metric.MeasurementOption
}

// NewService creates a new monitor service
func NewService(deps Dependencies) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	s := &Service{
		deps:  deps,
		attrs: metric.WithAttributes(attribute.String("project", deps.ProjectID)),
	}

	m := meter()
	var err error
	s.ticks, err = m.Int64Counter(
		"frame.ticks",
		metric.WithDescription("Frames run by the frame loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	s.duration, err = m.Float64Histogram(
		"frame.duration",
		metric.WithDescription("Time spent in one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return s, nil
}

// Observe folds the stats of one tick into the current window. It is the
// frame loop's observer.
func (s *Service) Observe(st frame.Stats) {
	s.ticks.Add(context.Background(), 1, s.attrs)
	s.duration.Record(context.Background(), float64(st.Duration.Microseconds())/1000, s.attrs)

	s.mu.Lock()
	defer s.mu.Unlock()
	w := &s.window
	if w.Ticks == 0 {
		w.Start = st.At
	}
	w.End = st.At
	w.LastFrame = st.Frame
	w.Ticks++
	w.total += st.Duration
	w.MeanTick = w.total / time.Duration(w.Ticks)
	w.MaxTick = max(w.MaxTick, st.Duration)
	w.BoundChanged += st.BoundChanged
	w.Reconciled += st.Reconciled
	w.Matched += st.Reconcile.Matched
	w.Created += st.Reconcile.Created
	w.Removed += st.Reconcile.Removed
	if st.Posed {
		w.PosedFrames++
	}
	w.MaxTracks = max(w.MaxTracks, st.Tracks)
	w.Touring = st.Touring
	w.TourIndex = st.TourIndex
}

// Current returns the window being filled.
func (s *Service) Current() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Flush reports the current window and starts a new one. An empty window
// is not reported.
func (s *Service) Flush(ctx context.Context) (Window, error) {
	s.mu.Lock()
	w := s.window
	s.window = Window{}
	s.mu.Unlock()

	if w.Ticks == 0 {
		return w, nil
	}

	var errs []error
	if s.deps.StatusPath != "" {
		if err := writeStatus(s.deps.StatusPath, w); err != nil {
			errs = append(errs, err)
		}
	}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.WritePoint(ctx, Point(s.deps.ProjectID, w)); err != nil {
			errs = append(errs, fmt.Errorf("writing telemetry: %w", err))
		}
	}
	if len(errs) > 0 {
		return w, errs[0]
	}
	return w, nil
}

// Point converts a window to an InfluxDB point stamped at its end.
func Point(projectID string, w Window) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("frame",
		map[string]string{"project": projectID},
		map[string]any{
			"ticks":         w.Ticks,
			"last_frame":    int64(w.LastFrame),
			"mean_tick_ms":  float64(w.MeanTick.Microseconds()) / 1000,
			"max_tick_ms":   float64(w.MaxTick.Microseconds()) / 1000,
			"bound_changed": w.BoundChanged,
			"reconciled":    w.Reconciled,
			"matched":       w.Matched,
			"created":       w.Created,
			"removed":       w.Removed,
			"posed_frames":  w.PosedFrames,
			"max_tracks":    w.MaxTracks,
			"touring":       w.Touring,
			"tour_index":    w.TourIndex,
		},
		w.End,
	)
}

func writeStatus(path string, w Window) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Start flushes a window every interval until Stop.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		s.deps.Logger.Debug("status monitor started", "interval", s.deps.Interval)

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w, err := s.Flush(context.Background())
				if err != nil {
					s.deps.Logger.Error("status report failed", "error", err)
					continue
				}
				if w.Ticks > 0 {
					s.deps.Logger.Debug("frame window", "ticks", w.Ticks, "meanTick", w.MeanTick, "reconciled", w.Reconciled)
				}
			}
		}
	}()
	return nil
}

// Stop stops the status monitor and reports what is left of the window.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	if _, err := s.Flush(context.Background()); err != nil {
		s.deps.Logger.Error("final status report failed", "error", err)
	}
}
