package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const simulatedCores = 12

// SimulatedSource produces plausible pseudo-random readings for development on
// machines without sensor access. It never touches hardware and never fails.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource creates a simulation tier. A zero seed uses the clock.
func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{rng: rand.New(rand.NewSource(seed))}
}

// Name returns "simulated".
func (s *SimulatedSource) Name() string { return "simulated" }

// Fetch returns a fully populated snapshot.
func (s *SimulatedSource) Fetch(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rng.Float64

	cpuTemp := 45 + r()*20
	cores := make([]CoreReading, simulatedCores)
	for i := range cores {
		cores[i] = CoreReading{
			Index:       uint32(i),
			Temperature: cpuTemp + (r()-0.5)*10,
			Load:        r() * 100,
		}
	}

	return &Snapshot{
		CPU: &CPUReading{
			Name:           "AMD Ryzen 9 5900X",
			Temperature:    cpuTemp,
			MaxTemperature: 95,
			Load:           20 + r()*40,
			Frequency:      3.7 + r(),
			Cores:          cores,
		},
		GPU: &GPUReading{
			Name:           "NVIDIA GeForce RTX 3080",
			Temperature:    50 + r()*25,
			MaxTemperature: 93,
			Load:           15 + r()*50,
			Frequency:      1.7 + r()*0.5,
			MemoryUsed:     4 + r()*4,
			MemoryTotal:    10,
		},
		Storage: []StorageReading{{
			Name:        "Samsung SSD 980 PRO 1TB",
			Temperature: 35 + r()*10,
			UsedSpace:   500,
			TotalSpace:  1000,
		}},
		Motherboard: &MotherboardReading{
			Name:        "ASUS ROG STRIX B550-F",
			Temperature: 40 + r()*15,
			Fans: []FanReading{
				{Name: "CPU Fan", Speed: 1200 + uint32(r()*500)},
				{Name: "Chassis Fan 1", Speed: 800 + uint32(r()*300)},
			},
		},
	}, nil
}
