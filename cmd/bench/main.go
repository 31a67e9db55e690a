package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/i5heu/GoWorkStealingDeque/internal/bench"
	"github.com/i5heu/GoWorkStealingDeque/pkg/wsdeque"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// BenchmarkResult holds the outcome of a single owner/thief timed run.
type BenchmarkResult struct {
	NumThieves      int     `json:"num_thieves"`
	Capacity        int     `json:"capacity"`
	PopProbability  float64 `json:"pop_probability"`
	Pushed          int64   `json:"pushed"`
	Popped          int64   `json:"popped"`
	Stolen          int64   `json:"stolen"`
	TestDuration    string  `json:"test_duration"`
	ActualElapsed   string  `json:"actual_elapsed"`
	ThroughputOpSec float64 `json:"throughput_ops_sec"`
	Timestamp       int64   `json:"timestamp"`
	GoVersion       string  `json:"go_version"`
}

// SystemInfo mirrors the host details a reader needs to interpret throughput
// numbers across machines.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH      string  `json:"go_arch"`
	TotalMemory uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents one complete sweep over thief counts and capacities.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

func main() {
	testIterations := flag.Int("iter", 3, "Number of test iterations per configuration")
	maxThieves := flag.Int("max-thieves", 8, "Sweep thief counts 1..max-thieves")
	jsonExport := flag.Bool("json", false, "Append results to bench-results.json")
	progressFlag := flag.Bool("progress", false, "Display a progress bar while sweeping")
	durationFlag := flag.Duration("duration", 2*time.Second, "Duration of each timed run")
	flag.Parse()

	capacities := []int{16, 64, 256, 1024, 4096}
	thieveCounts := make([]int, 0, *maxThieves)
	for n := 1; n <= *maxThieves; n++ {
		thieveCounts = append(thieveCounts, n)
	}

	sysInfo := gatherSystemInfo()

	total := len(capacities) * len(thieveCounts) * (*testIterations)
	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.Default(int64(total), "sweeping")
	}

	var results []BenchmarkResult
	for _, capacity := range capacities {
		for _, nthieves := range thieveCounts {
			for iteration := 0; iteration < *testIterations; iteration++ {
				runtime.GC()
				d := wsdeque.New[int](capacity)

				cfg := bench.Config{NumThieves: nthieves, PopProbability: 0.3}
				res := bench.RunTimedTest[int, *wsdeque.Deque[int]](d, cfg, *durationFlag, func(i int) int { return i })

				throughput := float64(res.Popped+res.Stolen) / res.Elapsed.Seconds()
				results = append(results, BenchmarkResult{
					NumThieves:      nthieves,
					Capacity:        capacity,
					PopProbability:  cfg.PopProbability,
					Pushed:          res.Pushed,
					Popped:          res.Popped,
					Stolen:          res.Stolen,
					TestDuration:    durationFlag.String(),
					ActualElapsed:   res.Elapsed.String(),
					ThroughputOpSec: throughput,
					Timestamp:       time.Now().Unix(),
					GoVersion:       runtime.Version(),
				})

				if bar != nil {
					bar.Add(1)
				} else {
					fmt.Printf("capacity=%d thieves=%d iter=%d => pushed=%d popped=%d stolen=%d throughput=%.0f ops/s\n",
						capacity, nthieves, iteration, res.Pushed, res.Popped, res.Stolen, throughput)
				}
			}
		}
	}

	report := FullReport{
		SessionTime: time.Now().Format(time.RFC3339),
		SystemInfo:  sysInfo,
		Benchmarks:  results,
	}

	if *jsonExport {
		const filename = "bench-results.json"
		var previous []FullReport
		if data, err := os.ReadFile(filename); err == nil && len(data) > 0 {
			json.Unmarshal(data, &previous)
		}
		updated := append(previous, report)
		data, err := json.MarshalIndent(updated, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error marshalling JSON:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing JSON file:", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote results to %s\n", filename)
	}
}

func gatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}
