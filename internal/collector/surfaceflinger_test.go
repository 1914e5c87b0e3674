package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/solarblue/frametrics/internal/frames"
)

// scriptedExecutor returns canned output per command substring.
type scriptedExecutor struct {
	mu       sync.Mutex
	outputs  map[string]string
	commands []string
}

func (s *scriptedExecutor) Execute(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	for key, out := range s.outputs {
		if strings.Contains(command, key) {
			return out, nil
		}
	}
	return "", nil
}

func parseLatency(t *testing.T, raw string) (*frames.Table, ParseStats) {
	t.Helper()
	source := NewSurfaceFlingerSource(&scriptedExecutor{}, "app", nil)
	table := frames.NewTable(source.Header())
	stats, err := source.Parse(strings.NewReader(raw), table)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return table, stats
}

func TestLatencyParseAcceptance(t *testing.T) {
	raw := "16666666\n" +
		"100 200 300\n" + // accepted
		"400 500 0\n" + // null frame
		"600 700 300\n" + // duplicate watermark
		"800 900 250\n" + // out of order
		"1000 1100 20000000000\n" + // beyond drop threshold
		"1200 1300 1500\n" // accepted

	table, stats := parseLatency(t, raw)

	want := [][]int64{{100, 200, 300}, {1200, 1300, 1500}}
	if table.Len() != len(want) {
		t.Fatalf("accepted %d frames, want %d", table.Len(), len(want))
	}
	for i, row := range table.Rows() {
		for j := range row {
			if row[j] != want[i][j] {
				t.Errorf("frame %d = %v, want %v", i, row, want[i])
			}
		}
	}
	if stats.Dropped != 4 {
		t.Errorf("dropped = %d, want 4", stats.Dropped)
	}
}

func TestLatencyParseOrderSensitivity(t *testing.T) {
	// The watermark is stateful: the same three valid frames accepted in
	// monotonic order must shrink when ready-times are reordered.
	monotonic := "16666666\n100 200 300\n400 500 600\n700 800 900\n"
	shuffled := "16666666\n100 200 300\n700 800 900\n400 500 600\n"

	first, _ := parseLatency(t, monotonic)
	second, _ := parseLatency(t, shuffled)

	if first.Len() != 3 {
		t.Errorf("monotonic ordering accepted %d frames, want 3", first.Len())
	}
	if second.Len() >= first.Len() {
		t.Errorf("shuffled ordering accepted %d frames, want fewer than %d",
			second.Len(), first.Len())
	}
}

func TestLatencyParseNoRefreshPeriod(t *testing.T) {
	// Without a refresh-period marker there is no drop threshold, so even
	// large latencies pass.
	table, _ := parseLatency(t, "100 200 99999999999\n")
	if table.Len() != 1 {
		t.Errorf("accepted %d frames, want 1 (no threshold yet)", table.Len())
	}
}

func TestLatencyParseRefreshPeriodLatestWins(t *testing.T) {
	raw := "10\n" + // threshold 10000
		"0 0 5000\n" + // within threshold (ready-desired = 5000)
		"1000000\n" + // threshold now 1e9
		"0 0 500000000\n" // within the new threshold only
	table, _ := parseLatency(t, raw)
	if table.Len() != 2 {
		t.Errorf("accepted %d frames, want 2", table.Len())
	}
}

func TestLatencyParseUnresponsiveCount(t *testing.T) {
	marker := "SurfaceFlinger appears to be unresponsive, dumping anyways\n"
	raw := "16666666\n" + marker + "100 200 300\n" + marker + marker

	table, stats := parseLatency(t, raw)

	if stats.Unresponsive != 3 {
		t.Errorf("unresponsive count = %d, want 3", stats.Unresponsive)
	}
	if table.Len() != 1 {
		t.Errorf("unresponsive markers must not affect acceptance, got %d frames", table.Len())
	}
}

func TestLatencyParseUnexpectedLines(t *testing.T) {
	raw := "16666666\nnot a frame at all\n100 200 300\n1 2\n"
	table, stats := parseLatency(t, raw)

	if table.Len() != 1 {
		t.Errorf("accepted %d frames, want 1", table.Len())
	}
	if stats.Warnings != 2 {
		t.Errorf("warnings = %d, want 2", stats.Warnings)
	}
}

func TestLatencyParseMixedLineEndings(t *testing.T) {
	raw := "16666666\r\n100 200 300\r400 500 600\n"
	table, _ := parseLatency(t, raw)
	if table.Len() != 2 {
		t.Errorf("accepted %d frames across mixed line endings, want 2", table.Len())
	}
}

func TestSurfaceFlingerCollect(t *testing.T) {
	exec := &scriptedExecutor{outputs: map[string]string{
		"--list":    "com.other.app\ncom.example.app\n",
		"--latency": "16666666\n100 200 300\n",
	}}
	source := NewSurfaceFlingerSource(exec, "com.example.app", nil)

	var sink strings.Builder
	if err := source.Collect(context.Background(), &sink); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if sink.String() != "16666666\n100 200 300\n" {
		t.Errorf("sink = %q, want the latency dump", sink.String())
	}

	wantCmd := fmt.Sprintf("dumpsys SurfaceFlinger --latency %q", "com.example.app")
	found := false
	for _, cmd := range exec.commands {
		if cmd == wantCmd {
			found = true
		}
	}
	if !found {
		t.Errorf("latency dump command not issued, commands: %v", exec.commands)
	}
}

func TestSurfaceFlingerCollectViewNotActive(t *testing.T) {
	exec := &scriptedExecutor{outputs: map[string]string{
		"--list": "com.other.app\n",
	}}
	source := NewSurfaceFlingerSource(exec, "com.example.app", nil)

	var sink strings.Builder
	if err := source.Collect(context.Background(), &sink); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if sink.String() != "" {
		t.Errorf("no dump expected for inactive view, got %q", sink.String())
	}
}

func TestSurfaceFlingerClear(t *testing.T) {
	exec := &scriptedExecutor{}
	source := NewSurfaceFlingerSource(exec, "app", nil)

	if err := source.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(exec.commands) != 1 || !strings.Contains(exec.commands[0], "--latency-clear") {
		t.Errorf("expected a latency-clear command, got %v", exec.commands)
	}
}
