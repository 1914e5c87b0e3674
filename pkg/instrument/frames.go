// Package instrument wraps a frame collector in a reusable recording
// instrument: reset, start, stop, and export as one lifecycle.
package instrument

import (
	"context"
	"strings"
	"time"

	"github.com/solarblue/frametrics/internal/collector"
	"github.com/solarblue/frametrics/internal/frames"
	"github.com/solarblue/frametrics/internal/target"
)

// FramesInstrument records one or more frame-telemetry sessions against a
// target. Each session produces a CSV of the selected channels and,
// optionally, the raw capture alongside it.
type FramesInstrument struct {
	exec      target.Executor
	period    time.Duration
	keepRaw   bool
	newSource func(ctx context.Context) (collector.Source, error)

	channels  []string
	selected  []string
	collector *collector.FrameCollector
	needReset bool
	rawFile   string
}

// NewSurfaceFlingerFrames creates an instrument recording the latency
// trace of the given view. Channel names drop the "_time" suffix of the
// wire columns to keep the export header compact.
func NewSurfaceFlingerFrames(exec target.Executor, view string, period time.Duration, keepRaw bool) *FramesInstrument {
	channels := make([]string, len(frames.SurfaceFlingerHeader))
	for i, field := range frames.SurfaceFlingerHeader {
		channels[i] = strings.TrimSuffix(field, "_time")
	}

	inst := &FramesInstrument{
		exec:      exec,
		period:    period,
		keepRaw:   keepRaw,
		channels:  channels,
		needReset: true,
	}
	inst.newSource = func(ctx context.Context) (collector.Source, error) {
		return collector.NewSurfaceFlingerSource(exec, view, inst.channels), nil
	}
	return inst
}

// NewGfxinfoFrames creates an instrument recording framestats for the
// given package. Channels are discovered from the target once, at
// construction.
func NewGfxinfoFrames(ctx context.Context, exec target.Executor, pkg string, period time.Duration, keepRaw bool) (*FramesInstrument, error) {
	columns, err := collector.ReadGfxinfoColumns(ctx, exec)
	if err != nil {
		return nil, err
	}

	inst := &FramesInstrument{
		exec:      exec,
		period:    period,
		keepRaw:   keepRaw,
		channels:  columns,
		needReset: true,
	}
	inst.newSource = func(ctx context.Context) (collector.Source, error) {
		return collector.NewGfxinfoSource(ctx, exec, pkg, inst.channels)
	}
	return inst, nil
}

// Channels returns the instrument's full channel (column) list.
func (fi *FramesInstrument) Channels() []string {
	return fi.channels
}

// SelectChannels restricts the export to the named channels. A nil
// selection exports everything.
func (fi *FramesInstrument) SelectChannels(channels []string) {
	fi.selected = channels
}

// Reset discards any previous session and builds a fresh collector.
func (fi *FramesInstrument) Reset(ctx context.Context) error {
	source, err := fi.newSource(ctx)
	if err != nil {
		return err
	}
	fi.collector = collector.New(source, fi.period)
	fi.needReset = false
	fi.rawFile = ""
	return nil
}

// Clear resets the source's buffers on the target, resetting the
// instrument first if needed.
func (fi *FramesInstrument) Clear(ctx context.Context) error {
	if fi.needReset {
		if err := fi.Reset(ctx); err != nil {
			return err
		}
	}
	return fi.collector.Clear(ctx)
}

// Start begins a recording session, resetting first if needed.
func (fi *FramesInstrument) Start(ctx context.Context) error {
	if fi.needReset {
		if err := fi.Reset(ctx); err != nil {
			return err
		}
	}
	return fi.collector.Start(ctx)
}

// Stop ends the session. The instrument needs a Reset (implicit in the
// next Start) before it can record again.
func (fi *FramesInstrument) Stop() error {
	err := fi.collector.Stop()
	fi.needReset = true
	return err
}

// GetData processes the recorded session and writes the selected
// channels to outfile. With keepRaw the raw capture is preserved as
// outfile + ".raw".
func (fi *FramesInstrument) GetData(outfile string) error {
	if fi.keepRaw {
		fi.rawFile = outfile + ".raw"
	}
	if err := fi.collector.ProcessFrames(fi.rawFile); err != nil {
		return err
	}
	return fi.collector.WriteFrames(outfile, fi.selected)
}

// GetRaw returns the preserved raw capture paths of the last session.
func (fi *FramesInstrument) GetRaw() []string {
	if fi.rawFile == "" {
		return nil
	}
	return []string{fi.rawFile}
}

// Stats returns the parse statistics of the last processed session.
func (fi *FramesInstrument) Stats() collector.ParseStats {
	return fi.collector.Stats()
}
