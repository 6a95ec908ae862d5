package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ondo/internal/logger"
)

// GPUStats is live adapter telemetry from a vendor tool.
type GPUStats struct {
	Temperature float64 // °C
	Load        float64 // percent
	MemoryUsed  float64 // GiB
	Frequency   float64 // GHz
}

// GPUTool provides optional GPU enrichment. ok is false when the tool is
// absent or unusable, which is not an error.
type GPUTool interface {
	Stats(ctx context.Context) (stats GPUStats, ok bool)
}

const nvidiaSMIQuery = "--query-gpu=temperature.gpu,utilization.gpu,memory.used,clocks.gr"

// NvidiaSMI queries nvidia-smi for temperature, utilization, memory and clock.
type NvidiaSMI struct {
	Path    string
	Timeout time.Duration
}

// Stats runs nvidia-smi once.
func (n NvidiaSMI) Stats(ctx context.Context) (GPUStats, bool) {
	log := logger.WithComponent("nvidia-smi")

	path := n.Path
	if path == "" {
		path = "nvidia-smi"
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, nvidiaSMIQuery, "--format=csv,noheader,nounits")
	hideConsole(cmd)

	out, err := cmd.Output()
	if err != nil {
		log.Debug().Err(err).Msg("nvidia-smi unavailable")
		return GPUStats{}, false
	}

	stats, err := ParseNvidiaSMI(out)
	if err != nil {
		log.Debug().Err(err).Msg("Unexpected nvidia-smi output")
		return GPUStats{}, false
	}
	return stats, true
}

// ParseNvidiaSMI parses the first line of
// "temperature.gpu, utilization.gpu, memory.used, clocks.gr" output without
// header or units. Memory MiB is converted to GiB and clock MHz to GHz.
func ParseNvidiaSMI(out []byte) (GPUStats, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return GPUStats{}, fmt.Errorf("empty nvidia-smi output")
	}

	parts := strings.Split(scanner.Text(), ",")
	if len(parts) < 4 {
		return GPUStats{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}

	values := make([]float64, 4)
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return GPUStats{}, fmt.Errorf("field %d: %w", i, err)
		}
		values[i] = v
	}

	return GPUStats{
		Temperature: values[0],
		Load:        values[1],
		MemoryUsed:  values[2] / 1024,
		Frequency:   values[3] / 1000,
	}, nil
}
