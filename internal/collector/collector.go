// Package collector runs periodic frame-telemetry sampling against a
// remote target and turns the accumulated raw capture into a clean frame
// time-series.
package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/solarblue/frametrics/internal/errors"
	"github.com/solarblue/frametrics/internal/frames"
	"github.com/solarblue/frametrics/internal/metrics"
)

// Source is one frame-data wire format: it knows how to pull one raw
// sample from the target, how to reset the target's buffers, and how to
// parse the accumulated raw capture into frame rows.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Header returns the session's column names.
	Header() []string
	// Collect pulls one raw sample and appends it to w.
	Collect(ctx context.Context, w io.Writer) error
	// Clear resets the source's internal counters on the target.
	Clear(ctx context.Context) error
	// Parse reads the whole raw capture and appends accepted frames to
	// table. Malformed records are absorbed, never returned as errors.
	Parse(r io.Reader, table *frames.Table) (ParseStats, error)
}

// ParseStats summarizes what a parse pass absorbed.
type ParseStats struct {
	// Unresponsive counts "source unresponsive, dumping anyway" markers.
	Unresponsive int
	// Dropped counts frames rejected by the validity rules.
	Dropped int
	// Warnings counts unexpected records that were skipped.
	Warnings int
}

const unresponsiveWarnThreshold = 10

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// FrameCollector owns one collection session: a background goroutine that
// appends one raw sample per period to a temp-file sink. The sink belongs
// to the goroutine while running and to the caller after Stop returns;
// ProcessFrames consumes and deletes it.
type FrameCollector struct {
	source Source
	period time.Duration

	mu      sync.Mutex
	state   state
	rawPath string
	stopCh  chan struct{}
	doneCh  chan struct{}
	runErr  error

	table *frames.Table
	stats ParseStats
}

// New creates an idle collector sampling the given source every period.
func New(source Source, period time.Duration) *FrameCollector {
	return &FrameCollector{source: source, period: period}
}

// Start begins the background sampling loop. It fails if a loop is
// already running.
func (c *FrameCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateRunning {
		return errors.ErrAlreadyRunning
	}

	sink, err := os.CreateTemp("", "frametrics-*.raw")
	if err != nil {
		return fmt.Errorf("creating raw sink: %w", err)
	}
	slog.Debug("frame data collection started",
		"source", c.source.Name(), "raw_sink", sink.Name(), "period", c.period)

	c.rawPath = sink.Name()
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.runErr = nil
	c.table = nil
	c.stats = ParseStats{}
	c.state = stateRunning

	// Stop is the only way to end the loop. The caller's cancellation
	// must not kill a remote query in flight, so the loop runs on a
	// detached context.
	go c.run(context.WithoutCancel(ctx), sink)
	return nil
}

// run is the background sampling loop. It owns the sink until it exits.
func (c *FrameCollector) run(ctx context.Context, sink *os.File) {
	defer close(c.doneCh)
	defer sink.Close()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		start := time.Now()
		err := c.source.Collect(ctx, sink)
		metrics.CollectDuration.WithLabelValues(c.source.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			if errors.IsFatal(err) {
				metrics.CollectErrors.WithLabelValues(c.source.Name(), "target_fault").Inc()
				c.runErr = err
				return
			}
			metrics.CollectErrors.WithLabelValues(c.source.Name(), "worker_fault").Inc()
			slog.Warn("exception on collector worker", "source", c.source.Name(), "error", err)
			c.runErr = errors.WorkerError{Collector: c.source.Name(), Underlying: err}
			return
		}
		metrics.CollectTicks.WithLabelValues(c.source.Name()).Inc()

		// The wait is measured from completion of the sample, so overall
		// cadence drifts under load. Downstream consumers rely on the
		// period as observed, not as configured.
		select {
		case <-c.stopCh:
			return
		case <-time.After(c.period):
		}
	}
}

// Stop signals the loop to exit, blocks until it has fully exited, and
// surfaces any fault the loop deferred. The raw sink is closed by the
// time Stop returns.
func (c *FrameCollector) Stop() error {
	c.mu.Lock()
	if c.state != stateRunning {
		c.mu.Unlock()
		return errors.ErrNotRunning
	}
	close(c.stopCh)
	c.mu.Unlock()

	<-c.doneCh

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateStopped
	slog.Debug("frame data collection stopped", "source", c.source.Name())

	c.logUnresponsive()
	return c.runErr
}

// ProcessFrames parses the raw sink through the source's parser into the
// frame table, then deletes the sink. If rawCopyPath is non-empty the raw
// capture is preserved there first. The collector must be stopped.
func (c *FrameCollector) ProcessFrames(rawCopyPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateRunning {
		return errors.ErrStillRunning
	}
	if c.rawPath == "" {
		return errors.ErrNotRun
	}

	f, err := os.Open(c.rawPath)
	if err != nil {
		return fmt.Errorf("opening raw sink: %w", err)
	}

	table := frames.NewTable(c.source.Header())
	stats, err := c.source.Parse(f, table)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing raw capture: %w", err)
	}
	c.table = table
	c.stats = stats

	metrics.UnresponsiveCount.WithLabelValues(c.source.Name()).Set(float64(stats.Unresponsive))
	metrics.LastSessionFrames.WithLabelValues(c.source.Name()).Set(float64(table.Len()))
	c.logUnresponsive()

	if rawCopyPath != "" {
		if err := copyFile(c.rawPath, rawCopyPath); err != nil {
			return fmt.Errorf("preserving raw capture: %w", err)
		}
	}
	if err := os.Remove(c.rawPath); err != nil {
		slog.Warn("could not remove raw sink", "path", c.rawPath, "error", err)
	}
	c.rawPath = ""
	c.state = stateIdle
	return nil
}

// WriteFrames exports the processed frame table as CSV. A nil columns
// slice exports the full header; otherwise the output is projected onto
// the requested columns.
func (c *FrameCollector) WriteFrames(outfile string, columns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table == nil {
		return errors.ErrNotRun
	}
	return c.table.WriteFile(outfile, columns)
}

// Frames returns the processed frame table, or nil before ProcessFrames.
func (c *FrameCollector) Frames() *frames.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

// Stats returns the parse statistics of the processed session.
func (c *FrameCollector) Stats() ParseStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear resets the source's counters on the target.
func (c *FrameCollector) Clear(ctx context.Context) error {
	return c.source.Clear(ctx)
}

func (c *FrameCollector) logUnresponsive() {
	if c.stats.Unresponsive == 0 {
		return
	}
	if c.stats.Unresponsive > unresponsiveWarnThreshold {
		slog.Warn("source was unresponsive during collection",
			"source", c.source.Name(), "count", c.stats.Unresponsive)
	} else {
		slog.Debug("source was unresponsive during collection",
			"source", c.source.Name(), "count", c.stats.Unresponsive)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
