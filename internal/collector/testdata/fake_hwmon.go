// fake_hwmon.go simulates the sensor helper. It is compiled and run by tests.
//
// With "--daemon <ms>" it streams one JSON payload per line; otherwise it
// prints one document and exits. FAKE_HWMON_MODE selects the behavior:
//
//	"stream"   - one line per interval, cpu.load counting up from 1 (default)
//	"burst"    - five lines at once (load 1..5), then nothing
//	"crash"    - one line, then exit 1
//	"silent"   - never write
//	"garbage"  - one valid line, a malformed line 200ms later, then nothing
//	"oversize" - one valid line, a 256 KiB line, then streams from load 2
//	"fail"     - write to stderr and exit 3 without output
//	"hang"     - one-shot: never exit
//	"cpu-only" - one-shot: document with only the cpu key
//
// FAKE_HWMON_ARGS_FILE, when set, receives the command-line arguments.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type core struct {
	Index       int     `json:"index"`
	Temperature float64 `json:"temperature"`
	Load        float64 `json:"load"`
}

type cpu struct {
	Name           string  `json:"name"`
	Temperature    float64 `json:"temperature"`
	MaxTemperature float64 `json:"max_temperature"`
	Load           float64 `json:"load"`
	Frequency      float64 `json:"frequency"`
	Cores          []core  `json:"cores,omitempty"`
}

type gpu struct {
	Name           string  `json:"name"`
	Temperature    float64 `json:"temperature"`
	MaxTemperature float64 `json:"max_temperature"`
	Load           float64 `json:"load"`
	Frequency      float64 `json:"frequency"`
	MemoryUsed     float64 `json:"memory_used"`
	MemoryTotal    float64 `json:"memory_total"`
}

type storage struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	UsedPercent float64 `json:"used_percent"`
	TotalSpace  float64 `json:"total_space"`
}

type fan struct {
	Name  string `json:"name"`
	Speed int    `json:"speed"`
}

type motherboard struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Fans        []fan   `json:"fans,omitempty"`
}

type payload struct {
	CPU         *cpu         `json:"cpu,omitempty"`
	GPU         *gpu         `json:"gpu,omitempty"`
	Storage     []storage    `json:"storage,omitempty"`
	Motherboard *motherboard `json:"motherboard,omitempty"`
}

func sample(load float64) payload {
	return payload{
		CPU: &cpu{
			Name: "Fake CPU", Temperature: 55, MaxTemperature: 100, Load: load, Frequency: 4.2,
			Cores: []core{{Index: 0, Temperature: 54, Load: load}, {Index: 1, Temperature: 56, Load: load}},
		},
		GPU: &gpu{
			Name: "Fake GPU", Temperature: 61, MaxTemperature: 95, Load: 30, Frequency: 1.9,
			MemoryUsed: 2.5, MemoryTotal: 8,
		},
		Storage: []storage{{Name: "Fake SSD", Temperature: 38, UsedPercent: 42, TotalSpace: 931.5}},
		Motherboard: &motherboard{
			Name: "Fake Board", Temperature: 41,
			Fans: []fan{{Name: "Pump", Speed: 0}, {Name: "CPU Fan", Speed: 1200}},
		},
	}
}

func emit(p payload) {
	b, _ := json.Marshal(p)
	fmt.Println(string(b))
}

func main() {
	if path := os.Getenv("FAKE_HWMON_ARGS_FILE"); path != "" {
		_ = os.WriteFile(path, []byte(strings.Join(os.Args[1:], " ")), 0o644)
	}

	mode := os.Getenv("FAKE_HWMON_MODE")
	daemon := len(os.Args) > 1 && os.Args[1] == "--daemon"

	if !daemon {
		switch mode {
		case "fail":
			fmt.Fprintln(os.Stderr, "sensor init failed")
			os.Exit(3)
		case "hang":
			time.Sleep(time.Hour)
		case "cpu-only":
			emit(payload{CPU: sample(7).CPU})
		default:
			emit(sample(7))
		}
		return
	}

	interval := time.Second
	if len(os.Args) > 2 {
		if ms, err := strconv.Atoi(os.Args[2]); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	switch mode {
	case "fail":
		fmt.Fprintln(os.Stderr, "sensor init failed")
		os.Exit(3)
	case "burst":
		for i := 1; i <= 5; i++ {
			emit(sample(float64(i)))
		}
		time.Sleep(time.Hour)
	case "crash":
		emit(sample(1))
		os.Exit(1)
	case "silent":
		time.Sleep(time.Hour)
	case "garbage":
		emit(sample(1))
		time.Sleep(200 * time.Millisecond)
		fmt.Println("{not json")
		time.Sleep(time.Hour)
	case "oversize":
		emit(sample(1))
		fmt.Println(`{"padding":"` + strings.Repeat("x", 256*1024) + `"}`)
		for i := 2; ; i++ {
			emit(sample(float64(i)))
			time.Sleep(interval)
		}
	default:
		for i := 1; ; i++ {
			emit(sample(float64(i)))
			time.Sleep(interval)
		}
	}
}
