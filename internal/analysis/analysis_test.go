package analysis

import (
	"math"
	"strings"
	"testing"
)

func TestFFTImpulse(t *testing.T) {
	out := FFT([]float64{1, 0, 0, 0})
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	for i, c := range out {
		if math.Abs(real(c)-1) > 1e-12 || math.Abs(imag(c)) > 1e-12 {
			t.Errorf("bin %d = %v, want 1", i, c)
		}
	}
}

func TestFFTAnyLength(t *testing.T) {
	out := FFT([]float64{1, 1, 1, 1, 1})
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if math.Abs(real(out[0])-5) > 1e-9 || math.Abs(real(out[2])) > 1e-9 {
		t.Errorf("unexpected spectrum %v", out)
	}
	if FFT(nil) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	data := make([]float64, 200)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*5*float64(i)*dt)
	}
	f := DominantFrequency(data, dt)
	if math.Abs(f-5) > 0.01 {
		t.Errorf("DominantFrequency = %.3f, want ~5", f)
	}
}

func TestDominantFrequencyFlat(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		dt   float64
	}{
		{"empty", nil, 0.01},
		{"constant", []float64{2, 2, 2, 2, 2, 2, 2, 2}, 0.01},
		{"bad dt", []float64{0, 1, 0, 1}, 0},
	}
	for _, tt := range tests {
		if f := DominantFrequency(tt.data, tt.dt); f != 0 {
			t.Errorf("%s: got %g, want 0", tt.name, f)
		}
	}
}

func TestTrajectoryToASCII(t *testing.T) {
	if TrajectoryToASCII(nil, 10, 5) != "" {
		t.Error("expected empty plot for no points")
	}
	pts := []Point{{-1, -1}, {0, 0}, {1, 1}}
	out := TrajectoryToASCII(pts, 21, 11)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d lines, want 11", len(lines))
	}
	if !strings.Contains(out, "◆") {
		t.Error("last point marker missing")
	}
	if strings.Count(out, "•") != 2 {
		t.Errorf("want 2 trail points, got %d", strings.Count(out, "•"))
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "─") {
		t.Error("axes missing")
	}
}
