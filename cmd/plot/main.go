package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// BenchmarkResult mirrors cmd/bench's JSON schema.
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

// SystemInfo mirrors cmd/bench's JSON schema.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH      string  `json:"go_arch"`
	TotalMemory uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport mirrors cmd/bench's JSON schema.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

func main() {
	jsonFile := flag.String("jsonfile", "bench-results.json", "Path to JSON file containing bench sessions")
	outputPrefix := flag.String("out", "wsdeque_throughput", "Output graph image filename prefix")
	flag.Parse()

	data, err := os.ReadFile(*jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading JSON file: %v\n", err)
		os.Exit(1)
	}

	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshalling JSON: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found in JSON.")
		os.Exit(1)
	}
	last := sessions[len(sessions)-1]

	if err := plotThroughputVsThieves(last, *outputPrefix+"_vs_thieves.png"); err != nil {
		fmt.Fprintf(os.Stderr, "Error plotting throughput vs thief count: %v\n", err)
		os.Exit(1)
	}
	if err := plotThroughputVsCapacity(last, *outputPrefix+"_vs_capacity.png"); err != nil {
		fmt.Fprintf(os.Stderr, "Error plotting throughput vs capacity: %v\n", err)
		os.Exit(1)
	}
}

// plotThroughputVsThieves draws one line per capacity, throughput against
// thief count, averaging iterations that share (capacity, thieves).
func plotThroughputVsThieves(report FullReport, filename string) error {
	byCapacity := make(map[int]map[int][]float64)
	for _, b := range report.Benchmarks {
		if _, ok := byCapacity[b.Capacity]; !ok {
			byCapacity[b.Capacity] = make(map[int][]float64)
		}
		byCapacity[b.Capacity][b.NumThieves] = append(byCapacity[b.Capacity][b.NumThieves], b.ThroughputOpSec)
	}

	p := plot.New()
	p.Title.Text = "Deque throughput vs thief count"
	p.X.Label.Text = "Thieves"
	p.Y.Label.Text = "Ops/sec"
	stylePlot(p)
	p.Add(plotter.NewGrid())

	var capacities []int
	for c := range byCapacity {
		capacities = append(capacities, c)
	}
	sort.Ints(capacities)

	colors := plotutil.SoftColors
	for i, capacity := range capacities {
		byThieves := byCapacity[capacity]
		var thieves []int
		for n := range byThieves {
			thieves = append(thieves, n)
		}
		sort.Ints(thieves)

		pts := make(plotter.XYs, len(thieves))
		for j, n := range thieves {
			pts[j].X = float64(n)
			pts[j].Y = average(byThieves[n])
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i%len(colors)]

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.Color = colors[i%len(colors)]

		p.Add(line, scatter)
		p.Legend.Add(fmt.Sprintf("capacity=%d", capacity), line, scatter)
	}

	return p.Save(10*vg.Inch, 7*vg.Inch, filename)
}

// plotThroughputVsCapacity draws one line per thief count, throughput against
// initial capacity.
func plotThroughputVsCapacity(report FullReport, filename string) error {
	byThieves := make(map[int]map[int][]float64)
	for _, b := range report.Benchmarks {
		if _, ok := byThieves[b.NumThieves]; !ok {
			byThieves[b.NumThieves] = make(map[int][]float64)
		}
		byThieves[b.NumThieves][b.Capacity] = append(byThieves[b.NumThieves][b.Capacity], b.ThroughputOpSec)
	}

	p := plot.New()
	p.Title.Text = "Deque throughput vs initial capacity"
	p.X.Label.Text = "Capacity"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}
	p.Y.Label.Text = "Ops/sec"
	stylePlot(p)
	p.Add(plotter.NewGrid())

	var thieveCounts []int
	for n := range byThieves {
		thieveCounts = append(thieveCounts, n)
	}
	sort.Ints(thieveCounts)

	colors := plotutil.SoftColors
	for i, nthieves := range thieveCounts {
		byCapacity := byThieves[nthieves]
		var capacities []int
		for c := range byCapacity {
			capacities = append(capacities, c)
		}
		sort.Ints(capacities)

		pts := make(plotter.XYs, len(capacities))
		for j, c := range capacities {
			pts[j].X = float64(c)
			pts[j].Y = average(byCapacity[c])
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i%len(colors)]

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.Color = colors[i%len(colors)]

		p.Add(line, scatter)
		p.Legend.Add(fmt.Sprintf("thieves=%d", nthieves), line, scatter)
	}

	return p.Save(10*vg.Inch, 7*vg.Inch, filename)
}

// stylePlot applies the dark theme the teacher's buildGraph tool uses.
func stylePlot(p *plot.Plot) {
	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
