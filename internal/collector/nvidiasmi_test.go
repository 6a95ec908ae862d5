package collector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNvidiaSMI(t *testing.T) {
	stats, err := ParseNvidiaSMI([]byte("64, 37, 2048, 1500\n55, 10, 512, 900\n"))
	require.NoError(t, err)

	assert.Equal(t, GPUStats{Temperature: 64, Load: 37, MemoryUsed: 2, Frequency: 1.5}, stats)
}

func TestParseNvidiaSMIErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"empty", ""},
		{"too few fields", "64, 37\n"},
		{"not supported", "64, [N/A], 2048, 1500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNvidiaSMI([]byte(tt.out))
			assert.Error(t, err)
		})
	}
}

func TestNvidiaSMIMissingTool(t *testing.T) {
	tool := NvidiaSMI{Path: filepath.Join(t.TempDir(), "nvidia-smi-missing")}

	stats, ok := tool.Stats(context.Background())
	assert.False(t, ok)
	assert.Equal(t, GPUStats{}, stats)
}
