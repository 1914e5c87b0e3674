package collector

import (
	"bufio"
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

const profileDataMarker = "---PROFILEDATA---"

// GfxinfoSource samples the structured frame-statistics format: dump
// blocks of comma-separated integer counters emitted by gfxinfo. Each
// tick's dump re-emits a ring buffer of recent frames, so rows may repeat
// across ticks; this source does not deduplicate them.
type GfxinfoSource struct {
	exec   target.Executor
	pkg    string
	header []string
}

// NewGfxinfoSource creates a frame-statistics source for the given
// package. A nil header triggers one column-discovery round trip against
// the target; callers that already know the columns pass them to avoid it.
func NewGfxinfoSource(ctx context.Context, exec target.Executor, pkg string, header []string) (*GfxinfoSource, error) {
	if header == nil {
		discovered, err := ReadGfxinfoColumns(ctx, exec)
		if err != nil {
			return nil, err
		}
		header = discovered
	}
	return &GfxinfoSource{exec: exec, pkg: pkg, header: header}, nil
}

// ReadGfxinfoColumns discovers the frame-statistics column names from the
// target: the comma-terminated line following the first profile-data
// marker in the column listing output.
func ReadGfxinfoColumns(ctx context.Context, exec target.Executor) ([]string, error) {
	out, err := exec.Execute(ctx, "dumpsys gfxinfo --list framestats")
	if err != nil {
		return nil, err
	}
	lines := strings.Split(normalizeNewlines(out), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, profileDataMarker) && i+1 < len(lines) {
			columns := strings.Split(lines[i+1], ",")
			return columns[:len(columns)-1], nil // has a trailing ','
		}
	}
	return nil, fmt.Errorf("could not find frames data in gfxinfo output")
}

func (g *GfxinfoSource) Name() string {
	return "gfxinfo"
}

func (g *GfxinfoSource) Header() []string {
	return g.header
}

// Collect appends one framestats dump for the package to w, verbatim.
func (g *GfxinfoSource) Collect(ctx context.Context, w io.Writer) error {
	out, err := g.exec.Execute(ctx, fmt.Sprintf("dumpsys gfxinfo %s framestats", g.pkg))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Clear is a no-op: gfxinfo rotates its stats naturally.
func (g *GfxinfoSource) Clear(ctx context.Context) error {
	return nil
}

// Parse scans the raw capture for profile-data blocks and appends every
// data row in file order. A capture with no marker at all yields an empty
// table and a warning, not an error.
func (g *GfxinfoSource) Parse(r io.Reader, table *frames.Table) (ParseStats, error) {
	var stats ParseStats
	found := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inBlock := false
	skipHeader := false
	processLine := func(line string) {
		if strings.HasPrefix(line, profileDataMarker) {
			if inBlock {
				inBlock = false
				return
			}
			found = true
			inBlock = true
			skipHeader = true
			return
		}
		if !inBlock {
			return
		}
		if skipHeader {
			// Column names; the session header is already known.
			skipHeader = false
			return
		}

		row, ok := g.parseDataLine(line)
		if !ok {
			slog.Warn("unexpected gfxinfo dump output", "line", line)
			stats.Warnings++
			metrics.ParseWarnings.WithLabelValues(g.Name()).Inc()
			return
		}
		if err := table.Append(row); err != nil {
			slog.Warn("unexpected gfxinfo dump output", "line", line, "error", err)
			stats.Warnings++
			return
		}
		metrics.FramesAccepted.WithLabelValues(g.Name()).Inc()
	}

	for scanner.Scan() {
		// The scanner strips \n and \r\n terminators; stray \r
		// terminators are split out here.
		for _, line := range strings.Split(scanner.Text(), "\r") {
			if line == "" {
				continue
			}
			processLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}

	if !found {
		slog.Warn("could not find frames data in gfxinfo output")
	}
	return stats, nil
}

// parseDataLine splits one comma-separated data row, dropping the trailing
// empty field the source always emits.
func (g *GfxinfoSource) parseDataLine(line string) ([]int64, bool) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	fields = fields[:len(fields)-1]
	if len(fields) == 0 {
		return nil, false
	}
	row := make([]int64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}
