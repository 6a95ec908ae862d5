package collector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{
  "cpu": {"name": "Ryzen", "temperature": 61.5, "max_temperature": 95, "load": 12.5, "frequency": 4.1,
          "cores": [{"index": 0, "temperature": 60, "load": 10}, {"index": 1, "temperature": 62, "load": 15}]},
  "gpu": {"name": "RTX", "temperature": 50, "max_temperature": 93, "load": 20, "frequency": 1.8,
          "memory_used": 3.2, "memory_total": 10},
  "storage": [{"name": "NVMe", "temperature": 40, "used_percent": 55.5, "total_space": 1863}],
  "motherboard": {"name": "B550", "temperature": 39, "fans": [{"name": "Pump", "speed": 0}, {"name": "CPU", "speed": 900}]}
}`

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(fullPayload))
	require.NoError(t, err)

	snap := p.Snapshot()
	require.NotNil(t, snap.CPU)
	assert.Equal(t, "Ryzen", snap.CPU.Name)
	assert.Equal(t, 95.0, snap.CPU.MaxTemperature)
	assert.Equal(t, []CoreReading{{0, 60, 10}, {1, 62, 15}}, snap.CPU.Cores)

	require.NotNil(t, snap.GPU)
	assert.Equal(t, 3.2, snap.GPU.MemoryUsed)
	assert.Equal(t, 10.0, snap.GPU.MemoryTotal)

	require.Len(t, snap.Storage, 1)
	assert.Equal(t, StorageReading{Name: "NVMe", Temperature: 40, UsedSpace: 55.5, TotalSpace: 1863}, snap.Storage[0])

	require.NotNil(t, snap.Motherboard)
	assert.Equal(t, []FanReading{{Name: "CPU", Speed: 900}}, snap.Motherboard.Fans)
}

func TestParsePayloadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"array", "[1,2]"},
		{"truncated", `{"cpu": {"name": "x"`},
		{"wrong type", `{"cpu": {"load": "high"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.input))
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}

	_, err := ParsePayload(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestPayloadSnapshotMissingKeys(t *testing.T) {
	p, err := ParsePayload([]byte(`{"cpu": {"name": "Only CPU"}}`))
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.NotNil(t, snap.CPU)
	assert.Empty(t, snap.CPU.Cores)
	assert.Nil(t, snap.GPU)
	assert.Nil(t, snap.Storage)
	assert.Nil(t, snap.Motherboard)
	assert.Nil(t, snap.CPUError)
	assert.Nil(t, snap.GPUError)
}

func TestPayloadSnapshotEmptyStorageKept(t *testing.T) {
	p, err := ParsePayload([]byte(`{"storage": []}`))
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.NotNil(t, snap.Storage)
	assert.Len(t, snap.Storage, 0)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"storage":[]`)
}

func TestPayloadSnapshotAllZeroFans(t *testing.T) {
	p, err := ParsePayload([]byte(`{"motherboard": {"name": "Board", "fans": [{"name": "A", "speed": 0}]}}`))
	require.NoError(t, err)

	snap := p.Snapshot()
	require.NotNil(t, snap.Motherboard)
	assert.Empty(t, snap.Motherboard.Fans)
}
