package collector

import (
	"context"
	"testing"
)

func TestSimulatedSource(t *testing.T) {
	src := NewSimulatedSource(42)
	if src.Name() != "simulated" {
		t.Errorf("expected name simulated, got %s", src.Name())
	}

	for i := 0; i < 50; i++ {
		snap, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if snap.CPU == nil || snap.GPU == nil || snap.Motherboard == nil || len(snap.Storage) != 1 {
			t.Fatal("expected every component to be present")
		}
		if snap.CPUError != nil || snap.GPUError != nil {
			t.Error("expected no error strings")
		}

		if len(snap.CPU.Cores) != 12 {
			t.Fatalf("expected 12 cores, got %d", len(snap.CPU.Cores))
		}
		if snap.CPU.Temperature < 45 || snap.CPU.Temperature > 65 {
			t.Errorf("CPU temperature out of range: %v", snap.CPU.Temperature)
		}
		if snap.CPU.Load < 20 || snap.CPU.Load > 60 {
			t.Errorf("CPU load out of range: %v", snap.CPU.Load)
		}
		for j, c := range snap.CPU.Cores {
			if c.Index != uint32(j) {
				t.Errorf("core %d has index %d", j, c.Index)
			}
			if d := c.Temperature - snap.CPU.Temperature; d < -5 || d > 5 {
				t.Errorf("core %d temperature %v too far from package %v", j, c.Temperature, snap.CPU.Temperature)
			}
		}

		if snap.GPU.MemoryUsed > snap.GPU.MemoryTotal {
			t.Errorf("GPU memory used %v exceeds total %v", snap.GPU.MemoryUsed, snap.GPU.MemoryTotal)
		}
		if snap.Storage[0].UsedSpace > snap.Storage[0].TotalSpace {
			t.Error("storage used exceeds total")
		}
		for _, f := range snap.Motherboard.Fans {
			if f.Speed == 0 {
				t.Errorf("fan %s reports zero speed", f.Name)
			}
		}
	}
}

func TestSimulatedSourceSeeded(t *testing.T) {
	a, _ := NewSimulatedSource(7).Fetch(context.Background())
	b, _ := NewSimulatedSource(7).Fetch(context.Background())
	if a.CPU.Temperature != b.CPU.Temperature || a.GPU.Load != b.GPU.Load {
		t.Error("expected equal seeds to produce equal readings")
	}
}
