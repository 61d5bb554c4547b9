package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vango-dev/signals/internal/config"
	"github.com/vango-dev/signals/internal/errors"
	"github.com/vango-dev/signals/pkg/instrument"
	"github.com/vango-dev/signals/pkg/reactive"
)

const benchNamespace = "bench"

type benchConfig struct {
	Shape      string
	Size       int
	Updates    int
	FollowAll  bool
	MaxDepth   int
	JSONOutput string
}

type benchReport struct {
	Version  string       `json:"version"`
	Run      benchRunInfo `json:"run"`
	Workload benchLoad    `json:"workload"`
	Graph    benchGraph   `json:"graph"`
	Update   benchLatency `json:"update_us"`
}

type benchRunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

type benchLoad struct {
	Shape     string `json:"shape"`
	Size      int    `json:"size"`
	Updates   int    `json:"updates"`
	FollowAll bool   `json:"follow_all"`
}

type benchGraph struct {
	Recomputations    float64 `json:"recomputations"`
	Changed           float64 `json:"changed"`
	Notifications     float64 `json:"notifications"`
	FollowersNotified float64 `json:"followers_notified"`
	HotAtPeak         int     `json:"hot_at_peak"`
	RecomputesPerSet  float64 `json:"recomputes_per_update"`
}

type benchLatency struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

func benchCmd(load func() (*config.Config, error)) *cobra.Command {
	var bc benchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark recomputation for a graph shape",
		Long: `Build a graph, write its source repeatedly and report how much
work each write caused.

Shapes:
  chain    s -> d1 -> d2 -> ... -> dN
  fanout   s -> d1, s -> d2, ..., s -> dN
  diamond  s -> left, s -> right, (left, right) -> join, N times

Examples:
  signals bench --shape=chain --size=100
  signals bench --shape=fanout --updates=10000 --json=report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			bc.MaxDepth = cfg.Runtime.MaxDepth

			report, err := runBench(bc)
			if err != nil {
				return err
			}
			report.Version = version

			if bc.JSONOutput != "" {
				return writeJSON(cmd.OutOrStdout(), bc.JSONOutput, report)
			}
			writeSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&bc.Shape, "shape", "chain", "Graph shape: chain, fanout, diamond")
	cmd.Flags().IntVar(&bc.Size, "size", 50, "Number of derived signals (diamonds for the diamond shape)")
	cmd.Flags().IntVar(&bc.Updates, "updates", 1000, "Number of source writes")
	cmd.Flags().BoolVar(&bc.FollowAll, "follow-all", true, "Follow every derived signal, not just the leaves")
	cmd.Flags().StringVar(&bc.JSONOutput, "json", "", "Write a JSON report to this path ('-' for stdout)")

	return cmd
}

// benchGraphNodes is a built graph: the source every update writes and the
// derived signals in follow order.
type benchGraphNodes struct {
	source  *reactive.Source[int]
	derived []*reactive.Derived[int]
	leaves  []*reactive.Derived[int]
}

func buildGraph(rt *reactive.Runtime, shape string, size int) (*benchGraphNodes, error) {
	g := &benchGraphNodes{source: reactive.NewSource(rt, 0)}

	switch shape {
	case "chain":
		var prev reactive.Signal[int] = g.source
		for i := 0; i < size; i++ {
			p := prev
			d := reactive.NewDerived(rt, func() int { return p.Value() + 1 })
			g.derived = append(g.derived, d)
			prev = d
		}
		if len(g.derived) > 0 {
			g.leaves = g.derived[len(g.derived)-1:]
		}

	case "fanout":
		for i := 0; i < size; i++ {
			offset := i + 1
			d := reactive.NewDerived(rt, func() int { return g.source.Value() + offset })
			g.derived = append(g.derived, d)
		}
		g.leaves = g.derived

	case "diamond":
		for i := 0; i < size; i++ {
			left := reactive.NewDerived(rt, func() int { return g.source.Value() + 1 })
			right := reactive.NewDerived(rt, func() int { return g.source.Value()*2 + 1 })
			join := reactive.NewDerived(rt, func() int { return left.Value() + right.Value() })
			g.derived = append(g.derived, left, right, join)
			g.leaves = append(g.leaves, join)
		}

	default:
		return nil, errors.New(errors.CodeUnknownShape).
			WithDetail(fmt.Sprintf("shape %q is not supported", shape))
	}

	return g, nil
}

func runBench(bc benchConfig) (benchReport, error) {
	if bc.Size <= 0 || bc.Updates <= 0 {
		return benchReport{}, errors.New(errors.CodeBadArgument).
			WithDetail("--size and --updates must be positive")
	}

	registry := prometheus.NewRegistry()
	rt := reactive.NewRuntime(
		reactive.WithLogger(discardLogger()),
		reactive.WithObserver(instrument.NewMetrics(
			instrument.WithRegistry(registry),
			instrument.WithNamespace(benchNamespace),
		)),
		reactive.WithMaxDepth(bc.MaxDepth),
	)

	g, err := buildGraph(rt, bc.Shape, bc.Size)
	if err != nil {
		return benchReport{}, err
	}

	follow := g.leaves
	if bc.FollowAll {
		follow = g.derived
	}
	unsubs := make([]reactive.Unsubscribe, 0, len(follow))
	for _, d := range follow {
		unsubs = append(unsubs, d.Subscribe(func(int) {}, false))
	}
	hot := 0
	for _, d := range g.derived {
		if d.Followers() > 0 {
			hot++
		}
	}

	samples := make([]time.Duration, 0, bc.Updates)
	for i := 1; i <= bc.Updates; i++ {
		start := time.Now()
		g.source.Set(i)
		samples = append(samples, time.Since(start))
	}

	for _, unsub := range unsubs {
		unsub()
	}

	totals, err := gatherTotals(registry)
	if err != nil {
		return benchReport{}, err
	}
	slices.Sort(samples)

	return benchReport{
		Run: benchRunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		},
		Workload: benchLoad{
			Shape:     bc.Shape,
			Size:      bc.Size,
			Updates:   bc.Updates,
			FollowAll: bc.FollowAll,
		},
		Graph: benchGraph{
			Recomputations:    totals["recomputations_total"],
			Changed:           totals["recomputations_total{changed=true}"],
			Notifications:     totals["notifications_total"],
			FollowersNotified: totals["followers_notified_total"],
			HotAtPeak:         hot,
			RecomputesPerSet:  totals["recomputations_total"] / float64(bc.Updates),
		},
		Update: benchLatency{
			Min: us(percentile(samples, 0)),
			P50: us(percentile(samples, 0.50)),
			P95: us(percentile(samples, 0.95)),
			P99: us(percentile(samples, 0.99)),
			Max: us(percentile(samples, 1)),
		},
	}, nil
}

// gatherTotals sums every bench counter by name, plus the changed=true
// recomputation series on its own.
func gatherTotals(registry *prometheus.Registry) (map[string]float64, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	prefix := benchNamespace + "_graph_"
	totals := make(map[string]float64)
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), prefix)
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			v := m.GetCounter().GetValue()
			totals[name] += v
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "changed" && lp.GetValue() == "true" {
					totals[name+"{changed=true}"] += v
				}
			}
		}
	}
	return totals, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Signal Graph Benchmark ===")
	fmt.Fprintf(w, "Shape: %s\n", report.Workload.Shape)
	fmt.Fprintf(w, "Size: %d\n", report.Workload.Size)
	fmt.Fprintf(w, "Updates: %d\n", report.Workload.Updates)
	fmt.Fprintf(w, "Follow all: %v\n", report.Workload.FollowAll)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Hot signals: %d\n", report.Graph.HotAtPeak)
	fmt.Fprintf(w, "Recomputations: %.0f (%.0f changed)\n", report.Graph.Recomputations, report.Graph.Changed)
	fmt.Fprintf(w, "Recomputations/update: %.2f\n", report.Graph.RecomputesPerSet)
	fmt.Fprintf(w, "Notifications: %.0f (%.0f follower calls)\n", report.Graph.Notifications, report.Graph.FollowersNotified)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Update latency:")
	fmt.Fprintf(w, "  min: %.2f µs\n", report.Update.Min)
	fmt.Fprintf(w, "  p50: %.2f µs\n", report.Update.P50)
	fmt.Fprintf(w, "  p95: %.2f µs\n", report.Update.P95)
	fmt.Fprintf(w, "  p99: %.2f µs\n", report.Update.P99)
	fmt.Fprintf(w, "  max: %.2f µs\n", report.Update.Max)
}

func writeJSON(stdout io.Writer, path string, report benchReport) error {
	out := stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
