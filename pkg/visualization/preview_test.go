package visualization

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildTestPreview creates a small two-cycle relaxation preview
func buildTestPreview(t *testing.T) *FitPreview {
	samples := 8
	time := make([]float64, samples)
	for i := range time {
		time[i] = float64(i) * 0.004
	}

	signals := make([][]float64, 2)
	fitted := make([][]float64, 2)
	for c := range signals {
		signals[c] = make([]float64, samples)
		fitted[c] = make([]float64, samples)
		for i, ti := range time {
			v := 5*math.Exp(-ti/0.003) + 1
			signals[c][i] = v + 0.01*float64(i%3)
			fitted[c][i] = v
		}
	}

	fp, err := NewFitPreview(time, signals, fitted)
	if err != nil {
		t.Fatalf("Failed to build preview: %v", err)
	}
	return fp
}

// TestNewFitPreview verifies shape validation of the preview constructor
func TestNewFitPreview(t *testing.T) {
	time := []float64{0, 0.004, 0.008}
	good := [][]float64{{1, 2, 3}, {4, 5, 6}}

	fp, err := NewFitPreview(time, good, good)
	if err != nil {
		t.Fatalf("Failed to build valid preview: %v", err)
	}
	if fp.Cycles() != 2 {
		t.Errorf("Expected 2 cycles, got %d", fp.Cycles())
	}

	// Empty time axis
	if _, err := NewFitPreview(nil, good, good); err == nil {
		t.Error("Expected error for empty time axis, got nil")
	}

	// No cycles
	if _, err := NewFitPreview(time, nil, nil); err == nil {
		t.Error("Expected error for empty signal set, got nil")
	}

	// Curve count mismatch
	if _, err := NewFitPreview(time, good, good[:1]); err == nil {
		t.Error("Expected error for mismatched curve count, got nil")
	}

	// Ragged signal
	ragged := [][]float64{{1, 2, 3}, {4, 5}}
	if _, err := NewFitPreview(time, ragged, good); err == nil {
		t.Error("Expected error for ragged signal, got nil")
	}

	// Ragged fitted curve
	if _, err := NewFitPreview(time, good, ragged); err == nil {
		t.Error("Expected error for ragged fitted curve, got nil")
	}
}

// TestRenderCycle verifies that a plot image is written to disk
func TestRenderCycle(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	// Create temporary directory
	tempDir, err := os.MkdirTemp("", "preview-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	fp := buildTestPreview(t)

	filename := filepath.Join(tempDir, "fit.png")
	if err := fp.RenderCycle(0, "pixel 0 cycle 0", filename); err != nil {
		t.Fatalf("Failed to render cycle: %v", err)
	}

	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		t.Fatalf("Rendered file does not exist: %s", filename)
	}
	if err != nil {
		t.Fatalf("Failed to stat rendered file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Rendered file is empty")
	}

	// Out-of-range cycle
	if err := fp.RenderCycle(2, "bad", filename); err == nil {
		t.Error("Expected error for out-of-range cycle, got nil")
	}
	if err := fp.RenderCycle(-1, "bad", filename); err == nil {
		t.Error("Expected error for negative cycle, got nil")
	}
}

// TestRenderSequence verifies that every cycle is rendered with sequence naming
func TestRenderSequence(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	// Create temporary directory
	tempDir, err := os.MkdirTemp("", "preview-sequence-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	fp := buildTestPreview(t)

	outputDir := filepath.Join(tempDir, "previews")
	if err := fp.RenderSequence(outputDir, "pixel_4"); err != nil {
		t.Fatalf("Failed to render sequence: %v", err)
	}

	for cycle := 0; cycle < fp.Cycles(); cycle++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("pixel_4_cycle_%03d.png", cycle))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected rendered file does not exist: %s", filename)
		}
	}
}
