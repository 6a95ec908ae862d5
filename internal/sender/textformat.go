package sender

import (
	"fmt"
	"strconv"
	"time"

	"ondo/internal/collector"
)

// Row is one reading flattened for line-oriented log pipelines.
type Row struct {
	Timestamp time.Time
	Category  string // cpu, core, gpu, storage, motherboard, fan
	Name      string
	Metric    string
	Value     float64
	// Err replaces Metric/Value for subsystems that reported an error.
	Err string
}

const textTimeFmt = "2006-01-02 15:04:05"

// FormatTextTimestamp formats to "2006-01-02 15:04:05,000" (Grok TIMESTAMP_ISO8601 compatible).
func FormatTextTimestamp(t time.Time) string {
	return fmt.Sprintf("%s,%03d", t.Format(textTimeFmt), t.Nanosecond()/1e6)
}

// formatValue formats a float64 without scientific notation.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String renders the row as
//
//	2026-02-24 10:30:45,123 category:cpu,name:Ryzen 9,metric:temperature,value:61.5
func (r Row) String() string {
	ts := FormatTextTimestamp(r.Timestamp)
	if r.Err != "" {
		return fmt.Sprintf("%s category:%s,error:%q", ts, r.Category, r.Err)
	}
	return fmt.Sprintf("%s category:%s,name:%s,metric:%s,value:%s",
		ts, r.Category, r.Name, r.Metric, formatValue(r.Value))
}

// SnapshotTime converts the snapshot's millisecond timestamp.
func SnapshotTime(snap *collector.Snapshot) time.Time {
	return time.UnixMilli(int64(snap.Timestamp))
}

// ConvertToRows flattens a snapshot. Absent components produce no rows;
// component error strings produce one error row each.
func ConvertToRows(snap *collector.Snapshot) []Row {
	ts := SnapshotTime(snap)
	var rows []Row
	add := func(category, name, metric string, value float64) {
		rows = append(rows, Row{Timestamp: ts, Category: category, Name: name, Metric: metric, Value: value})
	}

	if c := snap.CPU; c != nil {
		add("cpu", c.Name, "temperature", c.Temperature)
		add("cpu", c.Name, "max_temperature", c.MaxTemperature)
		add("cpu", c.Name, "load", c.Load)
		add("cpu", c.Name, "frequency", c.Frequency)
		for _, core := range c.Cores {
			name := "core" + strconv.FormatUint(uint64(core.Index), 10)
			add("core", name, "temperature", core.Temperature)
			add("core", name, "load", core.Load)
		}
	}
	if snap.CPUError != nil {
		rows = append(rows, Row{Timestamp: ts, Category: "cpu", Err: *snap.CPUError})
	}

	if g := snap.GPU; g != nil {
		add("gpu", g.Name, "temperature", g.Temperature)
		add("gpu", g.Name, "max_temperature", g.MaxTemperature)
		add("gpu", g.Name, "load", g.Load)
		add("gpu", g.Name, "frequency", g.Frequency)
		add("gpu", g.Name, "memory_used", g.MemoryUsed)
		add("gpu", g.Name, "memory_total", g.MemoryTotal)
	}
	if snap.GPUError != nil {
		rows = append(rows, Row{Timestamp: ts, Category: "gpu", Err: *snap.GPUError})
	}

	for _, s := range snap.Storage {
		add("storage", s.Name, "temperature", s.Temperature)
		add("storage", s.Name, "used_space", s.UsedSpace)
		add("storage", s.Name, "total_space", s.TotalSpace)
	}

	if m := snap.Motherboard; m != nil {
		add("motherboard", m.Name, "temperature", m.Temperature)
		for _, f := range m.Fans {
			add("fan", f.Name, "speed", float64(f.Speed))
		}
	}

	return rows
}
