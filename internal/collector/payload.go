package collector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned when the helper produced no JSON document.
var ErrEmptyPayload = errors.New("empty helper payload")

// Payload is the JSON document emitted by the sensor helper, one per line in
// daemon mode or once in one-shot mode. A missing top-level key means the
// subsystem was not reported.
type Payload struct {
	CPU         *RawCPU         `json:"cpu"`
	GPU         *RawGPU         `json:"gpu"`
	Storage     []RawStorage    `json:"storage"`
	Motherboard *RawMotherboard `json:"motherboard"`
}

// RawCPU is the helper's CPU record.
type RawCPU struct {
	Name           string    `json:"name"`
	Temperature    float64   `json:"temperature"`
	MaxTemperature float64   `json:"max_temperature"`
	Load           float64   `json:"load"`
	Frequency      float64   `json:"frequency"`
	Cores          []RawCore `json:"cores"`
}

// RawCore is the helper's per-core record.
type RawCore struct {
	Index       uint32  `json:"index"`
	Temperature float64 `json:"temperature"`
	Load        float64 `json:"load"`
}

// RawGPU is the helper's GPU record.
type RawGPU struct {
	Name           string  `json:"name"`
	Temperature    float64 `json:"temperature"`
	MaxTemperature float64 `json:"max_temperature"`
	Load           float64 `json:"load"`
	Frequency      float64 `json:"frequency"`
	MemoryUsed     float64 `json:"memory_used"`
	MemoryTotal    float64 `json:"memory_total"`
}

// RawStorage is the helper's drive record.
type RawStorage struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	UsedPercent float64 `json:"used_percent"`
	TotalSpace  float64 `json:"total_space"`
}

// RawMotherboard is the helper's baseboard record.
type RawMotherboard struct {
	Name        string   `json:"name"`
	Temperature float64  `json:"temperature"`
	Fans        []RawFan `json:"fans"`
}

// RawFan is the helper's fan record.
type RawFan struct {
	Name  string `json:"name"`
	Speed uint32 `json:"speed"`
}

// ParsePayload decodes a single helper JSON document.
func ParsePayload(data []byte) (*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("helper payload is not a JSON object (%d bytes)", len(data))
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse helper payload (%d bytes): %w", len(data), err)
	}
	return &p, nil
}

// Snapshot maps the payload 1:1 into an untimestamped snapshot. The helper is
// authoritative, so no error strings are synthesized for missing subsystems.
func (p *Payload) Snapshot() *Snapshot {
	snap := &Snapshot{}

	if c := p.CPU; c != nil {
		cores := make([]CoreReading, 0, len(c.Cores))
		for _, core := range c.Cores {
			cores = append(cores, CoreReading{
				Index:       core.Index,
				Temperature: core.Temperature,
				Load:        core.Load,
			})
		}
		snap.CPU = &CPUReading{
			Name:           c.Name,
			Temperature:    c.Temperature,
			MaxTemperature: c.MaxTemperature,
			Load:           c.Load,
			Frequency:      c.Frequency,
			Cores:          cores,
		}
	}

	if g := p.GPU; g != nil {
		snap.GPU = &GPUReading{
			Name:           g.Name,
			Temperature:    g.Temperature,
			MaxTemperature: g.MaxTemperature,
			Load:           g.Load,
			Frequency:      g.Frequency,
			MemoryUsed:     g.MemoryUsed,
			MemoryTotal:    g.MemoryTotal,
		}
	}

	if p.Storage != nil {
		snap.Storage = make([]StorageReading, 0, len(p.Storage))
		for _, s := range p.Storage {
			// used_percent is carried as-is; the helper does not report used GiB.
			snap.Storage = append(snap.Storage, StorageReading{
				Name:        s.Name,
				Temperature: s.Temperature,
				UsedSpace:   s.UsedPercent,
				TotalSpace:  s.TotalSpace,
			})
		}
	}

	if m := p.Motherboard; m != nil {
		fans := make([]FanReading, 0, len(m.Fans))
		for _, f := range m.Fans {
			fans = append(fans, FanReading{Name: f.Name, Speed: f.Speed})
		}
		snap.Motherboard = &MotherboardReading{
			Name:        m.Name,
			Temperature: m.Temperature,
			Fans:        filterFans(fans),
		}
	}

	return snap
}
