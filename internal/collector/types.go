package collector

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is wrapped by Validate failures.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is one complete, timestamped set of sensor readings.
// Absent components serialize as explicit JSON null.
type Snapshot struct {
	CPU         *CPUReading         `json:"cpu"`
	GPU         *GPUReading         `json:"gpu"`
	Storage     []StorageReading    `json:"storage"`
	Motherboard *MotherboardReading `json:"motherboard"`
	Timestamp   uint64              `json:"timestamp"`
	CPUError    *string             `json:"cpuError"`
	GPUError    *string             `json:"gpuError"`
}

// CPUReading contains processor package and per-core readings.
type CPUReading struct {
	Name           string        `json:"name"`
	Temperature    float64       `json:"temperature"`
	MaxTemperature float64       `json:"maxTemperature"`
	Load           float64       `json:"load"`
	Frequency      float64       `json:"frequency"`
	Cores          []CoreReading `json:"cores"`
}

// CoreReading is a single logical core. Temperature may be an estimate
// derived from the package temperature when no per-core sensor exists.
type CoreReading struct {
	Index       uint32  `json:"index"`
	Temperature float64 `json:"temperature"`
	Load        float64 `json:"load"`
}

// GPUReading contains graphics adapter readings. Memory is in GiB, frequency in GHz.
type GPUReading struct {
	Name           string  `json:"name"`
	Temperature    float64 `json:"temperature"`
	MaxTemperature float64 `json:"maxTemperature"`
	Load           float64 `json:"load"`
	Frequency      float64 `json:"frequency"`
	MemoryUsed     float64 `json:"memoryUsed"`
	MemoryTotal    float64 `json:"memoryTotal"`
}

// StorageReading contains a single drive. Temperature 0 means unavailable.
type StorageReading struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	UsedSpace   float64 `json:"usedSpace"`
	TotalSpace  float64 `json:"totalSpace"`
}

// FanReading is a fan speed in RPM. Zero-speed fans are never reported.
type FanReading struct {
	Name  string `json:"name"`
	Speed uint32 `json:"speed"`
}

// MotherboardReading contains baseboard identity, temperature and fans.
type MotherboardReading struct {
	Name        string       `json:"name"`
	Temperature float64      `json:"temperature"`
	Fans        []FanReading `json:"fans"`
}

// MarshalJSON encodes a nil core list as [].
func (c CPUReading) MarshalJSON() ([]byte, error) {
	type plain CPUReading
	p := plain(c)
	if p.Cores == nil {
		p.Cores = []CoreReading{}
	}
	return json.Marshal(p)
}

// MarshalJSON encodes a nil fan list as [].
func (m MotherboardReading) MarshalJSON() ([]byte, error) {
	type plain MotherboardReading
	p := plain(m)
	if p.Fans == nil {
		p.Fans = []FanReading{}
	}
	return json.Marshal(p)
}

// EmptySnapshot returns a renderable snapshot stamped ts with every
// component absent and no error fields set.
func EmptySnapshot(ts uint64) *Snapshot {
	return &Snapshot{Timestamp: ts}
}

// Validate reports a subsystem that carries both a reading and an error.
// A subsystem with neither is valid: the source did not report it.
func (s *Snapshot) Validate() error {
	if s.CPU != nil && s.CPUError != nil {
		return fmt.Errorf("%w: cpu has both a reading and error %q", ErrInvalidSnapshot, *s.CPUError)
	}
	if s.GPU != nil && s.GPUError != nil {
		return fmt.Errorf("%w: gpu has both a reading and error %q", ErrInvalidSnapshot, *s.GPUError)
	}
	return nil
}

// unavailableSnapshot returns a renderable snapshot with every component
// absent and both error fields set to msg.
func unavailableSnapshot(msg string) *Snapshot {
	snap := EmptySnapshot(0)
	snap.CPUError = stringPtr(msg)
	snap.GPUError = stringPtr(msg)
	return snap
}

func stringPtr(s string) *string {
	return &s
}

// filterFans drops fans reporting zero speed; a zero report means the
// header is unpopulated, not that the fan stopped.
func filterFans(fans []FanReading) []FanReading {
	out := make([]FanReading, 0, len(fans))
	for _, f := range fans {
		if f.Speed > 0 {
			out = append(out, f)
		}
	}
	return out
}
