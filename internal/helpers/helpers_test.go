package helpers

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// streamChunk mirrors the downloader's fixed read/write unit.
const streamChunk = 8192

// TestBytesToSize checks the totals printed in the end-of-run summary
func TestBytesToSize(t *testing.T) {
	tests := map[uint64]string{
		0:                          "0B",
		7:                          "7.00B",
		1023:                       "1023.00B",
		streamChunk:                "8.00KB",
		3 * streamChunk:            "24.00KB",
		2*streamChunk + 512:        "16.50KB",
		128*streamChunk + 1024*512: "1.50MB",
		5 << 30:                    "5.00GB",
	}
	for in, want := range tests {
		if got := BytesToSize(in); got != want {
			t.Errorf("BytesToSize(%d) = %q, want %q", in, got, want)
		}
	}
}

// TestCheckAndMakeDir covers the output directory being absent, nested or already there
func TestCheckAndMakeDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "tabs", "Amebix")

	if !CheckAndMakeDir(out) {
		t.Fatalf("Expected %s to be created", out)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Fatalf("Output dir missing after create: %v", err)
	}
	if !CheckAndMakeDir(out + string(filepath.Separator)) {
		t.Error("Existing output dir with trailing separator was rejected")
	}

	blocked := filepath.Join(root, "song.gp5")
	if err := os.WriteFile(blocked, []byte("GP5"), 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if CheckAndMakeDir(blocked) {
		t.Error("Expected failure when a file occupies the output path")
	}
	if CheckAndMakeDir(filepath.Join(blocked, "sub")) {
		t.Error("Expected failure when a parent of the output path is a file")
	}
}

// TestCounterWriter_ChunkedStream feeds full chunks plus a short tail like a real download
func TestCounterWriter_ChunkedStream(t *testing.T) {
	var dst bytes.Buffer
	cw := &CounterWriter{Writer: &dst}

	payload := []byte(strings.Repeat("G", 3*streamChunk+100))
	for off := 0; off < len(payload); off += streamChunk {
		end := min(off+streamChunk, len(payload))
		n, err := cw.Write(payload[off:end])
		if err != nil {
			t.Fatalf("Write at offset %d: %v", off, err)
		}
		if n != end-off {
			t.Fatalf("Write at offset %d wrote %d, want %d", off, n, end-off)
		}
	}

	if cw.Total != uint64(len(payload)) {
		t.Errorf("Total = %d, want %d", cw.Total, len(payload))
	}
	if !bytes.Equal(dst.Bytes(), payload) {
		t.Error("Underlying writer did not receive the stream unchanged")
	}
	if got := BytesToSize(cw.Total); got != "24.10KB" {
		t.Errorf("Summary size = %q, want 24.10KB", got)
	}
}

type fullDisk struct{ room int }

func (d *fullDisk) Write(p []byte) (int, error) {
	if len(p) <= d.room {
		d.room -= len(p)
		return len(p), nil
	}
	n := d.room
	d.room = 0
	return n, errors.New("no space left on device")
}

// TestCounterWriter_DiskFills checks only bytes that reached disk are counted
func TestCounterWriter_DiskFills(t *testing.T) {
	cw := &CounterWriter{Writer: &fullDisk{room: streamChunk + 10}}
	chunk := make([]byte, streamChunk)

	if _, err := cw.Write(chunk); err != nil {
		t.Fatalf("First chunk should fit: %v", err)
	}
	n, err := cw.Write(chunk)
	if err == nil {
		t.Fatal("Expected an error once the disk is full")
	}
	if n != 10 {
		t.Errorf("Second write reported %d bytes, want 10", n)
	}
	if cw.Total != streamChunk+10 {
		t.Errorf("Total = %d, want %d", cw.Total, streamChunk+10)
	}
}
