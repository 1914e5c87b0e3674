package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/solarblue/frametrics/internal/frames"
	"github.com/solarblue/frametrics/internal/metrics"
	"github.com/solarblue/frametrics/internal/target"
)

const unresponsiveMarker = "SurfaceFlinger appears to be unresponsive, dumping anyways"

// SurfaceFlingerSource samples the latency-trace format: per-view frame
// timestamp triplets dumped by SurfaceFlinger.
type SurfaceFlingerSource struct {
	exec   target.Executor
	view   string
	header []string
}

// NewSurfaceFlingerSource creates a latency-trace source for the given
// view. A nil header selects the fixed latency column set.
func NewSurfaceFlingerSource(exec target.Executor, view string, header []string) *SurfaceFlingerSource {
	if header == nil {
		header = frames.SurfaceFlingerHeader
	}
	return &SurfaceFlingerSource{exec: exec, view: view, header: header}
}

func (s *SurfaceFlingerSource) Name() string {
	return "surfaceflinger"
}

func (s *SurfaceFlingerSource) Header() []string {
	return s.header
}

// Collect lists the active views and appends the latency dump of the
// configured view to w.
func (s *SurfaceFlingerSource) Collect(ctx context.Context, w io.Writer) error {
	views, err := s.list(ctx)
	if err != nil {
		return err
	}
	for _, view := range views {
		if view != s.view {
			continue
		}
		out, err := s.exec.Execute(ctx, fmt.Sprintf("dumpsys SurfaceFlinger --latency %q", view))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

// Clear resets SurfaceFlinger's latency buffer on the target.
func (s *SurfaceFlingerSource) Clear(ctx context.Context) error {
	_, err := s.exec.Execute(ctx, "dumpsys SurfaceFlinger --latency-clear ")
	return err
}

func (s *SurfaceFlingerSource) list(ctx context.Context) ([]string, error) {
	out, err := s.exec.Execute(ctx, "dumpsys SurfaceFlinger --list")
	if err != nil {
		return nil, err
	}
	return strings.Split(normalizeNewlines(out), "\n"), nil
}

// Parse runs the single-pass line-oriented filter over the raw capture.
// A one-integer line updates the refresh period, a three-integer line is
// a candidate frame, everything else is absorbed.
func (s *SurfaceFlingerSource) Parse(r io.Reader, table *frames.Table) (ParseStats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ParseStats{}, err
	}

	var stats ParseStats
	filter := latencyFilter{}
	for _, line := range strings.Split(normalizeNewlines(string(raw)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.parseTraceLine(line, table, &filter, &stats)
	}
	return stats, nil
}

func (s *SurfaceFlingerSource) parseTraceLine(line string, table *frames.Table, filter *latencyFilter, stats *ParseStats) {
	fields := strings.Fields(line)

	if values, ok := parseInts(fields); ok {
		switch len(values) {
		case 3:
			accepted, reason := filter.accept(values[0], values[2])
			if !accepted {
				if reason == dropBogus {
					slog.Debug("dropping bogus frame", "line", line)
				}
				stats.Dropped++
				metrics.FramesDropped.WithLabelValues(s.Name(), reason).Inc()
				return
			}
			if err := table.Append(values); err != nil {
				slog.Warn("unexpected SurfaceFlinger dump output", "line", line, "error", err)
				stats.Warnings++
				return
			}
			metrics.FramesAccepted.WithLabelValues(s.Name()).Inc()
			return
		case 1:
			filter.setRefreshPeriod(values[0])
			return
		}
	}

	if strings.Contains(line, unresponsiveMarker) {
		stats.Unresponsive++
		return
	}

	slog.Warn("unexpected SurfaceFlinger dump output", "line", line)
	stats.Warnings++
	metrics.ParseWarnings.WithLabelValues(s.Name()).Inc()
}

// Drop reasons for rejected latency frames.
const (
	dropNull      = "null"
	dropDuplicate = "duplicate"
	dropBogus     = "bogus"
)

// latencyFilter holds the session-scoped validity state of the latency
// parser: the drop threshold learned from the refresh-period marker and
// the monotonic frame-ready watermark spanning the whole session.
type latencyFilter struct {
	dropThreshold int64
	haveThreshold bool
	lastReadyTime int64
}

// setRefreshPeriod records the display refresh period; the derived drop
// threshold governs all subsequent frames until overwritten.
func (f *latencyFilter) setRefreshPeriod(period int64) {
	f.dropThreshold = period * 1000
	f.haveThreshold = true
}

// accept applies the validity rules to one candidate frame and advances
// the watermark when the frame is admitted.
func (f *latencyFilter) accept(desired, ready int64) (bool, string) {
	if ready == 0 {
		// "null" frame: the source had nothing new.
		return false, dropNull
	}
	if ready <= f.lastReadyTime {
		return false, dropDuplicate
	}
	if f.haveThreshold && ready-desired > f.dropThreshold {
		return false, dropBogus
	}
	f.lastReadyTime = ready
	return true, ""
}

func parseInts(fields []string) ([]int64, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	values := make([]int64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
