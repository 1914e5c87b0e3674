package dump

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	frerrors "github.com/solarblue/frametrics/internal/errors"
)

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.raw")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing capture file: %v", err)
	}
	return path
}

func gfxinfoBlock(marker string, rows ...string) string {
	var sb strings.Builder
	sb.WriteString("** Graphics info for pid 1234 [" + marker + "] **\n")
	sb.WriteString("Stats since: 0ns\n")
	sb.WriteString("---PROFILEDATA---\n")
	sb.WriteString("Flags,IntendedVsync,Vsync,\n")
	for _, r := range rows {
		sb.WriteString(r + ",\n")
	}
	sb.WriteString("---PROFILEDATA---\n")
	return sb.String()
}

func TestLastGfxinfoDumpReturnsFinalBlock(t *testing.T) {
	first := gfxinfoBlock("com.example.app", "0,100,200")
	second := gfxinfoBlock("com.example.app", "0,300,400", "0,500,600")
	path := writeCapture(t, first+second)

	got, err := LastGfxinfoDump(path)
	if err != nil {
		t.Fatalf("LastGfxinfoDump failed: %v", err)
	}
	if got != second {
		t.Errorf("extracted dump = %q, want the final block %q", got, second)
	}
}

func TestLastGfxinfoDumpSingleBlock(t *testing.T) {
	block := gfxinfoBlock("com.example.app", "0,1,2")
	path := writeCapture(t, block)

	got, err := LastGfxinfoDump(path)
	if err != nil {
		t.Fatalf("LastGfxinfoDump failed: %v", err)
	}
	if got != block {
		t.Errorf("extracted dump = %q, want %q", got, block)
	}
}

func TestLastGfxinfoDumpNoDump(t *testing.T) {
	path := writeCapture(t, "nothing to see here\njust noise\n")

	got, err := LastGfxinfoDump(path)
	if err != nil {
		t.Fatalf("LastGfxinfoDump failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty result for dump-less file, got %q", got)
	}
}

func TestLastGfxinfoDumpEmptyFile(t *testing.T) {
	path := writeCapture(t, "")

	got, err := LastGfxinfoDump(path)
	if err != nil {
		t.Fatalf("LastGfxinfoDump failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty result for empty file, got %q", got)
	}
}

func TestLastGfxinfoDumpSpansChunks(t *testing.T) {
	// Pad the final block so its start marker lands several chunks before
	// the end of the file.
	pad := strings.Repeat("0,111111,222222,\n", 400)
	block := "** Graphics info for pid 99 [com.example.app] **\n" + pad
	path := writeCapture(t, gfxinfoBlock("com.example.app", "0,1,2")+block)

	got, err := LastGfxinfoDump(path)
	if err != nil {
		t.Fatalf("LastGfxinfoDump failed: %v", err)
	}
	if got != block {
		t.Errorf("extracted dump length %d, want %d", len(got), len(block))
	}
}

func TestLastGfxinfoDumpCorrupted(t *testing.T) {
	// An end-of-block marker straddling a chunk boundary with no start
	// marker anywhere further back means the capture is unusable.
	content := strings.Repeat("x", 3000) + " **\n"
	path := writeCapture(t, content)

	_, err := LastGfxinfoDump(path)
	if err == nil {
		t.Fatal("expected corruption error")
	}
	var corrupt frerrors.CorruptDumpError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptDumpError, got %T: %v", err, err)
	}
	if corrupt.Path != path {
		t.Errorf("error should name the file, got %q", corrupt.Path)
	}
}

func TestLastGfxinfoDumpMissingFile(t *testing.T) {
	if _, err := LastGfxinfoDump(filepath.Join(t.TempDir(), "absent.raw")); err == nil {
		t.Error("expected error for missing file")
	}
}
