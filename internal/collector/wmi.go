package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"ondo/internal/logger"
)

// ErrUnsupportedPlatform is returned by OS instrumentation queries off Windows.
var ErrUnsupportedPlatform = errors.New("OS sensor queries are not supported on this platform")

const (
	cpuMaxTemperature    = 100.0
	gpuMaxTemperature    = 95.0
	gpuMemoryPlaceholder = 8.0
	defaultPhysicalCores = 4
	bytesPerGiB          = 1 << 30
	thermalNamespace     = `root\WMI`
)

var discreteGPUVendors = []string{"NVIDIA", "AMD", "Radeon", "GeForce"}

// querier issues typed instrumentation queries. dst is a pointer to a slice
// of one of the win32* record types below.
type querier interface {
	Query(query string, dst interface{}) error
	QueryNamespace(query string, dst interface{}, namespace string) error
}

// Instrumentation records. Every field is optional because the schema is not
// guaranteed complete on every machine.

type win32Processor struct {
	Name                      *string
	LoadPercentage            *uint16
	NumberOfCores             *uint32
	NumberOfLogicalProcessors *uint32
	CurrentClockSpeed         *uint32
}

type win32PerfProcessor struct {
	Name                 *string
	PercentProcessorTime *uint64
}

type msAcpiThermalZone struct {
	CurrentTemperature *uint32
}

type win32VideoController struct {
	Name       *string
	AdapterRAM *uint32
}

type win32DiskDrive struct {
	Model *string
	Size  *uint64
}

type win32BaseBoard struct {
	Manufacturer *string
	Product      *string
}

type win32Fan struct {
	Name         *string
	DesiredSpeed *uint64
}

// WMISource builds snapshots from OS instrumentation. CPU and GPU are resolved
// independently; storage and motherboard are omitted on failure.
type WMISource struct {
	q       querier
	gpuTool GPUTool

	// gopsutil fallbacks when the counter class or logical count is unavailable
	perCoreLoads func(ctx context.Context) ([]float64, error)
	logicalCount func(ctx context.Context) (int, error)
}

// NewWMISource creates the OS query tier. tool may be nil.
func NewWMISource(tool GPUTool) *WMISource {
	return newWMISource(newPlatformQuerier(), tool)
}

func newWMISource(q querier, tool GPUTool) *WMISource {
	return &WMISource{
		q:       q,
		gpuTool: tool,
		perCoreLoads: func(ctx context.Context) ([]float64, error) {
			return cpu.PercentWithContext(ctx, 0, true)
		},
		logicalCount: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
	}
}

// Name returns "wmi".
func (s *WMISource) Name() string { return "wmi" }

// Fetch runs every subsystem query. It fails as a tier only when the platform
// has no instrumentation at all.
func (s *WMISource) Fetch(ctx context.Context) (*Snapshot, error) {
	log := logger.WithComponent("wmi")
	snap := &Snapshot{}

	cpuReading, cpuErr := s.cpuReading(ctx)
	gpuReading, gpuErr := s.gpuReading(ctx)
	if errors.Is(cpuErr, ErrUnsupportedPlatform) && errors.Is(gpuErr, ErrUnsupportedPlatform) {
		return nil, ErrUnsupportedPlatform
	}

	if cpuErr != nil {
		log.Debug().Err(cpuErr).Msg("CPU query failed")
		snap.CPUError = stringPtr(cpuErr.Error())
	} else {
		snap.CPU = cpuReading
	}
	if gpuErr != nil {
		log.Debug().Err(gpuErr).Msg("GPU query failed")
		snap.GPUError = stringPtr(gpuErr.Error())
	} else {
		snap.GPU = gpuReading
	}

	if storage, err := s.storageReadings(); err != nil {
		log.Debug().Err(err).Msg("Storage query failed")
	} else {
		snap.Storage = storage
	}
	if board, err := s.motherboardReading(); err != nil {
		log.Debug().Err(err).Msg("Motherboard query failed")
	} else {
		snap.Motherboard = board
	}

	return snap, nil
}

func (s *WMISource) cpuReading(ctx context.Context) (*CPUReading, error) {
	var procs []win32Processor
	if err := s.q.Query("SELECT Name, LoadPercentage, NumberOfCores, NumberOfLogicalProcessors, CurrentClockSpeed FROM Win32_Processor", &procs); err != nil {
		return nil, fmt.Errorf("CPU query failed: %w", err)
	}
	if len(procs) == 0 {
		return nil, errors.New("no CPU found")
	}
	p := procs[0]

	logical := s.logicalProcessors(ctx, p)

	load, err := s.totalLoad()
	if err != nil {
		load = float64(derefU16(p.LoadPercentage))
	}

	temperature := s.packageTemperature()
	coreLoads := s.coreLoads(ctx, logical)

	cores := make([]CoreReading, logical)
	for i := 0; i < logical; i++ {
		coreLoad, ok := coreLoads[i]
		if !ok {
			coreLoad = load
		}
		cores[i] = CoreReading{
			Index:       uint32(i),
			Temperature: SyntheticCoreTemperature(temperature, i, logical),
			Load:        coreLoad,
		}
	}

	return &CPUReading{
		Name:           derefString(p.Name, "Unknown CPU"),
		Temperature:    temperature,
		MaxTemperature: cpuMaxTemperature,
		Load:           load,
		Frequency:      float64(derefU32(p.CurrentClockSpeed)) / 1000,
		Cores:          cores,
	}, nil
}

// logicalProcessors prefers the processor record, then gopsutil, then the
// physical count.
func (s *WMISource) logicalProcessors(ctx context.Context, p win32Processor) int {
	if p.NumberOfLogicalProcessors != nil && *p.NumberOfLogicalProcessors > 0 {
		return int(*p.NumberOfLogicalProcessors)
	}
	if n, err := s.logicalCount(ctx); err == nil && n > 0 {
		return n
	}
	if p.NumberOfCores != nil && *p.NumberOfCores > 0 {
		return int(*p.NumberOfCores)
	}
	return defaultPhysicalCores
}

func (s *WMISource) totalLoad() (float64, error) {
	var rows []win32PerfProcessor
	if err := s.q.Query("SELECT Name, PercentProcessorTime FROM Win32_PerfFormattedData_PerfOS_Processor WHERE Name='_Total'", &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].PercentProcessorTime == nil {
		return 0, errors.New("no CPU load data")
	}
	return float64(*rows[0].PercentProcessorTime), nil
}

// coreLoads returns per-logical-core utilization keyed by core index. Missing
// entries fall back to the aggregate load.
func (s *WMISource) coreLoads(ctx context.Context, logical int) map[int]float64 {
	loads := make(map[int]float64, logical)

	var rows []win32PerfProcessor
	err := s.q.Query("SELECT Name, PercentProcessorTime FROM Win32_PerfFormattedData_PerfOS_Processor WHERE Name!='_Total'", &rows)
	if err == nil {
		for _, row := range rows {
			if row.Name == nil || row.PercentProcessorTime == nil {
				continue
			}
			idx, convErr := strconv.Atoi(*row.Name)
			if convErr != nil || idx < 0 || idx >= logical {
				continue
			}
			loads[idx] = float64(*row.PercentProcessorTime)
		}
		return loads
	}

	if errors.Is(err, ErrUnsupportedPlatform) {
		return loads
	}
	percents, psErr := s.perCoreLoads(ctx)
	if psErr != nil || len(percents) != logical {
		return loads
	}
	for i, v := range percents {
		loads[i] = v
	}
	return loads
}

// packageTemperature returns the first plausible thermal zone reading, or 0.
func (s *WMISource) packageTemperature() float64 {
	var zones []msAcpiThermalZone
	if err := s.q.QueryNamespace("SELECT CurrentTemperature FROM MSAcpi_ThermalZoneTemperature", &zones, thermalNamespace); err != nil {
		return 0
	}
	for _, z := range zones {
		if z.CurrentTemperature == nil {
			continue
		}
		if c := KelvinTenthsToCelsius(*z.CurrentTemperature); PlausibleCelsius(c) {
			return c
		}
	}
	return 0
}

func (s *WMISource) gpuReading(ctx context.Context) (*GPUReading, error) {
	var adapters []win32VideoController
	if err := s.q.Query("SELECT Name, AdapterRAM FROM Win32_VideoController", &adapters); err != nil {
		return nil, fmt.Errorf("GPU query failed: %w", err)
	}

	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = derefString(a.Name, "")
	}
	idx := SelectAdapter(names)
	if idx < 0 {
		return nil, errors.New("no GPU found")
	}
	adapter := adapters[idx]

	memoryTotal := float64(derefU32(adapter.AdapterRAM)) / bytesPerGiB
	if memoryTotal <= 0 {
		memoryTotal = gpuMemoryPlaceholder
	}

	reading := &GPUReading{
		Name:           derefString(adapter.Name, "Unknown GPU"),
		MaxTemperature: gpuMaxTemperature,
		MemoryTotal:    memoryTotal,
	}
	if s.gpuTool != nil {
		if stats, ok := s.gpuTool.Stats(ctx); ok {
			reading.Temperature = stats.Temperature
			reading.Load = stats.Load
			reading.MemoryUsed = stats.MemoryUsed
			reading.Frequency = stats.Frequency
		}
	}
	return reading, nil
}

func (s *WMISource) storageReadings() ([]StorageReading, error) {
	var disks []win32DiskDrive
	if err := s.q.Query("SELECT Model, Size FROM Win32_DiskDrive", &disks); err != nil {
		return nil, fmt.Errorf("storage query failed: %w", err)
	}

	readings := make([]StorageReading, 0, len(disks))
	for _, d := range disks {
		if d.Model == nil {
			continue
		}
		readings = append(readings, StorageReading{
			Name:       *d.Model,
			TotalSpace: float64(derefU64(d.Size)) / bytesPerGiB,
		})
	}
	if len(readings) == 0 {
		return nil, errors.New("no storage devices found")
	}
	return readings, nil
}

func (s *WMISource) motherboardReading() (*MotherboardReading, error) {
	var boards []win32BaseBoard
	if err := s.q.Query("SELECT Manufacturer, Product FROM Win32_BaseBoard", &boards); err != nil {
		return nil, fmt.Errorf("motherboard query failed: %w", err)
	}
	if len(boards) == 0 {
		return nil, errors.New("no motherboard found")
	}
	b := boards[0]
	name := strings.TrimSpace(derefString(b.Manufacturer, "") + " " + derefString(b.Product, ""))

	return &MotherboardReading{
		Name: name,
		Fans: s.fanReadings(),
	}, nil
}

// fanReadings queries Win32_Fan, then the generic CIM_Fan class when the
// primary yields no spinning fans.
func (s *WMISource) fanReadings() []FanReading {
	for _, class := range []string{"Win32_Fan", "CIM_Fan"} {
		var rows []win32Fan
		if err := s.q.Query("SELECT Name, DesiredSpeed FROM "+class, &rows); err != nil {
			continue
		}
		fans := make([]FanReading, 0, len(rows))
		for _, r := range rows {
			fans = append(fans, FanReading{
				Name:  derefString(r.Name, "Fan"),
				Speed: uint32(derefU64(r.DesiredSpeed)),
			})
		}
		if fans = filterFans(fans); len(fans) > 0 {
			return fans
		}
	}
	return []FanReading{}
}

// KelvinTenthsToCelsius converts an ACPI thermal zone reading.
func KelvinTenthsToCelsius(raw uint32) float64 {
	return float64(raw)/10 - 273.15
}

// PlausibleCelsius reports whether c lies strictly between 0 and 150 °C.
func PlausibleCelsius(c float64) bool {
	return c > 0 && c < 150
}

// SyntheticCoreTemperature spreads the package temperature linearly across n
// cores. This is an estimate, not a per-core measurement; 0 stays 0.
func SyntheticCoreTemperature(pkg float64, i, n int) float64 {
	if pkg <= 0 {
		return 0
	}
	return pkg + float64(i)*0.5 - float64(n)*0.25
}

// SelectAdapter returns the index of the first adapter whose name contains a
// discrete GPU vendor, else 0, or -1 when there are no adapters.
func SelectAdapter(names []string) int {
	if len(names) == 0 {
		return -1
	}
	for i, name := range names {
		for _, vendor := range discreteGPUVendors {
			if strings.Contains(name, vendor) {
				return i
			}
		}
	}
	return 0
}

func derefString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func derefU16(p *uint16) uint16 {
	if p == nil {
		return 0
	}
	return *p
}

func derefU32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefU64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
