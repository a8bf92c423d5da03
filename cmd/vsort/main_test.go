package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VSortDB/vsort/pkg/datagen"
	"github.com/VSortDB/vsort/pkg/verify"
)

// captureRun invokes run with the given arguments and returns what it
// printed to stdout.
func captureRun(t *testing.T, args []string) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	run(args)

	w.Close()
	os.Stdout = orig

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read captured output: %v", err)
	}
	return string(out)
}

func TestRunUsageMessage(t *testing.T) {
	for _, args := range [][]string{nil, {"a"}, {"a", "b"}, {"a", "b", "c", "d"}} {
		out := captureRun(t, args)
		if !strings.Contains(out, "Usage: vsort <data-file-name> <num-buffers> <stat-file-name>") {
			t.Errorf("Args %v: expected usage message, got %q", args, out)
		}
	}
}

func TestRunRejectsNonIntegerBuffers(t *testing.T) {
	out := captureRun(t, []string{"data.bin", "four", "stats.txt"})
	if !strings.Contains(out, "Error: Invalid number of buffers") {
		t.Errorf("Expected invalid-buffers message, got %q", out)
	}
}

func TestRunRejectsOutOfRangeBuffers(t *testing.T) {
	for _, n := range []string{"0", "21", "-3"} {
		out := captureRun(t, []string{"data.bin", n, "stats.txt"})
		if !strings.Contains(out, "Number of buffers must be between 1 and 20") {
			t.Errorf("Buffers %s: expected range message, got %q", n, out)
		}
	}
}

func TestRunSortsFile(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data.bin")
	statFile := filepath.Join(dir, "stats.txt")

	if err := datagen.NewGenerator(3).GenerateRecords(dataFile, 1500, datagen.ModeRandom); err != nil {
		t.Fatalf("Failed to generate test file: %v", err)
	}

	out := captureRun(t, []string{dataFile, "4", statFile})
	if !strings.Contains(out, "File sorted successfully") {
		t.Errorf("Expected success message, got %q", out)
	}

	sorted, err := verify.CheckFile(dataFile)
	if err != nil {
		t.Fatalf("Failed to check file: %v", err)
	}
	if !sorted {
		t.Error("Expected sorted output")
	}

	if _, err := os.Stat(statFile); err != nil {
		t.Errorf("Expected statistics file to exist: %v", err)
	}
}

func TestRunMissingDataFile(t *testing.T) {
	dir := t.TempDir()
	out := captureRun(t, []string{filepath.Join(dir, "missing.bin"), "4", filepath.Join(dir, "s.txt")})
	if !strings.HasPrefix(out, "Error: ") {
		t.Errorf("Expected error message, got %q", out)
	}
}
