package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/treeline-dev/treeline/pkg/render"
	"github.com/treeline-dev/treeline/pkg/rtree"
	"github.com/treeline-dev/treeline/pkg/state"
)

type profile struct {
	Name     string
	Writers  int
	Duration time.Duration
	WPS      float64
	Rows     int
	Policy   state.Policy
}

var profiles = map[string]profile{
	"fast": {
		Name:     "fast",
		Writers:  4,
		Duration: 5 * time.Second,
		WPS:      200,
		Rows:     20,
		Policy:   state.PolicyDeferred,
	},
	"standard": {
		Name:     "standard",
		Writers:  16,
		Duration: 30 * time.Second,
		WPS:      500,
		Rows:     100,
		Policy:   state.PolicyDeferred,
	},
	"stress": {
		Name:     "stress",
		Writers:  64,
		Duration: 60 * time.Second,
		WPS:      1000,
		Rows:     500,
		Policy:   state.PolicyDeferred,
	},
}

// benchCounters aggregates engine activity during a run.
type benchCounters struct {
	mutations    atomic.Uint64
	flushes      atomic.Uint64
	rounds       atomic.Uint64
	computations atomic.Uint64
	divergences  atomic.Uint64
	flushNanos   atomic.Uint64
}

func (b *benchCounters) MutationCommitted(string, any) { b.mutations.Add(1) }
func (b *benchCounters) MutationVetoed(string)         {}
func (b *benchCounters) FlushStart()                   {}

func (b *benchCounters) FlushEnd(rounds, computations int, d time.Duration) {
	b.flushes.Add(1)
	b.rounds.Add(uint64(rounds))
	b.computations.Add(uint64(computations))
	b.flushNanos.Add(uint64(d.Nanoseconds()))
}

func (b *benchCounters) ComputationRan(string, time.Duration) {}
func (b *benchCounters) ComputationFailed(string, error)      {}
func (b *benchCounters) BatchDiverged(int)                    { b.divergences.Add(1) }

// renderCounters tallies reconciler activity.
type renderCounters struct {
	render.NopObserver
	passes atomic.Uint64
	ops    atomic.Uint64
}

func (r *renderCounters) Applied(mode string, ops int) {
	r.passes.Add(1)
	r.ops.Add(uint64(ops))
}

// benchReport is the JSON summary printed after a run.
type benchReport struct {
	Profile      string  `json:"profile"`
	Writers      int     `json:"writers"`
	Rows         int     `json:"rows"`
	DurationSecs float64 `json:"duration_secs"`

	WritesIssued  uint64  `json:"writes_issued"`
	Mutations     uint64  `json:"mutations"`
	Flushes       uint64  `json:"flushes"`
	Rounds        uint64  `json:"rounds"`
	Computations  uint64  `json:"computations"`
	Divergences   uint64  `json:"divergences"`
	RenderPasses  uint64  `json:"render_passes"`
	TargetOps     uint64  `json:"target_ops"`
	PoolHits      uint64  `json:"pool_hits"`
	PoolMisses    uint64  `json:"pool_misses"`
	MutationsPerS float64 `json:"mutations_per_sec"`
	AvgFlushUS    float64 `json:"avg_flush_us"`
}

func benchCmd() *cobra.Command {
	var (
		profileName string
		jsonOutput  string
		writers     int
		rows        int
		duration    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic mutation storm against the runtime",
		Long: `Bench spins up an in-memory engine with a bound render tree and
hammers it with concurrent writers, then reports flush and render
throughput. Profiles: fast, standard, stress.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := profiles[profileName]
			if !ok {
				return fmt.Errorf("unknown profile %q", profileName)
			}
			if writers > 0 {
				p.Writers = writers
			}
			if rows > 0 {
				p.Rows = rows
			}
			if duration > 0 {
				p.Duration = duration
			}

			report, err := runBench(p)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			if jsonOutput != "" {
				return os.WriteFile(jsonOutput, append(out, '\n'), 0644)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "fast", "Benchmark profile (fast, standard, stress)")
	cmd.Flags().StringVarP(&jsonOutput, "json", "j", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&writers, "writers", 0, "Override writer goroutine count")
	cmd.Flags().IntVar(&rows, "rows", 0, "Override row count")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Override run duration")

	return cmd
}

func runBench(p profile) (*benchReport, error) {
	counters := &benchCounters{}

	engine := state.New(
		state.WithObserver(counters),
		state.WithBatchOptions(state.BatchOptions{
			Policy:     p.Policy,
			FlushDelay: time.Millisecond,
		}),
	)
	defer engine.Close()

	for i := 0; i < p.Rows; i++ {
		if err := engine.Set(rowPath(i), 0); err != nil {
			return nil, err
		}
	}

	target := newMemTarget()
	renders := &renderCounters{}
	rec := render.NewReconciler(target, target.root,
		render.WithMode(render.ModeBatched),
		render.WithRenderObserver(renders),
	)

	comp := render.Bind(engine, rec, "bench.table", func() *rtree.Node {
		children := make([]*rtree.Node, 0, p.Rows)
		for i := 0; i < p.Rows; i++ {
			v := engine.Get(rowPath(i), 0)
			children = append(children, rtree.El("row",
				rtree.Attrs{"index": i},
				rtree.Text(fmt.Sprintf("%v", v)),
			))
		}
		return rtree.El("table", nil, children...)
	})
	defer engine.Dispose(comp)

	var (
		writesIssued atomic.Uint64
		wg           sync.WaitGroup
	)
	stop := make(chan struct{})
	interval := time.Duration(float64(time.Second) / p.WPS)

	for w := 0; w < p.Writers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					row := rng.Intn(p.Rows)
					if err := engine.Set(rowPath(row), rng.Intn(1<<20)); err == nil {
						writesIssued.Add(1)
					}
				}
			}
		}(int64(w) + 1)
	}

	start := time.Now()
	time.Sleep(p.Duration)
	close(stop)
	wg.Wait()
	if err := engine.Flush(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	flushes := counters.flushes.Load()
	poolHits, poolMisses := rec.PoolStats()
	report := &benchReport{
		Profile:      p.Name,
		Writers:      p.Writers,
		Rows:         p.Rows,
		DurationSecs: elapsed.Seconds(),

		WritesIssued: writesIssued.Load(),
		Mutations:    counters.mutations.Load(),
		Flushes:      flushes,
		Rounds:       counters.rounds.Load(),
		Computations: counters.computations.Load(),
		Divergences:  counters.divergences.Load(),
		RenderPasses: renders.passes.Load(),
		TargetOps:    target.ops.Load(),
		PoolHits:     poolHits,
		PoolMisses:   poolMisses,
	}
	report.MutationsPerS = float64(report.Mutations) / elapsed.Seconds()
	if flushes > 0 {
		report.AvgFlushUS = float64(counters.flushNanos.Load()) / float64(flushes) / 1e3
	}
	return report, nil
}

func rowPath(i int) string {
	return fmt.Sprintf("bench.rows.row%d", i)
}

// memNode is an in-memory render node for benchmarking.
type memNode struct {
	typ      string
	attrs    map[string]string
	text     string
	children []*memNode
	parent   *memNode
}

// memTarget implements render.Target against an in-memory tree, counting
// every operation.
type memTarget struct {
	root *memNode
	ops  atomic.Uint64
}

func newMemTarget() *memTarget {
	return &memTarget{root: &memNode{typ: "root"}}
}

func (t *memTarget) CreateNode(typ string) (render.NodeHandle, error) {
	t.ops.Add(1)
	return &memNode{typ: typ, attrs: make(map[string]string)}, nil
}

func (t *memTarget) SetAttribute(n render.NodeHandle, key, value string) error {
	t.ops.Add(1)
	node := n.(*memNode)
	if value == "" {
		delete(node.attrs, key)
		return nil
	}
	node.attrs[key] = value
	return nil
}

func (t *memTarget) SetText(n render.NodeHandle, text string) error {
	t.ops.Add(1)
	n.(*memNode).text = text
	return nil
}

func (t *memTarget) InsertChild(parent, child render.NodeHandle, index int) error {
	t.ops.Add(1)
	p := parent.(*memNode)
	c := child.(*memNode)

	if c.parent != nil {
		detach(c)
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	return nil
}

func (t *memTarget) RemoveNode(n render.NodeHandle) error {
	t.ops.Add(1)
	detach(n.(*memNode))
	return nil
}

func detach(c *memNode) {
	p := c.parent
	if p == nil {
		return
	}
	for i, sibling := range p.children {
		if sibling == c {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	c.parent = nil
}
