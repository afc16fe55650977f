package state

// subscriptionGraph is the bidirectional index between paths and the
// computations that read them. Both directions are maintained in lockstep:
// byPath answers "who depends on this path", byComp answers "what does
// this computation currently read" so subscriptions can be replaced
// wholesale after every run.
//
// Subscriber slices keep insertion order so candidate resolution is
// deterministic for a given mutation history.
type subscriptionGraph struct {
	byPath map[string][]*Computation
	byComp map[uint64][]string
}

func newSubscriptionGraph() *subscriptionGraph {
	return &subscriptionGraph{
		byPath: make(map[string][]*Computation),
		byComp: make(map[uint64][]string),
	}
}

// replace swaps c's subscription record for the path set of its latest
// run. Paths no longer read are dropped; this is the branch-awareness
// guarantee: a conditional read from a previous run does not survive a
// run that skipped the branch.
func (g *subscriptionGraph) replace(c *Computation, paths []string) {
	g.unsubscribeAll(c)
	if len(paths) == 0 {
		return
	}
	for _, p := range paths {
		g.byPath[p] = append(g.byPath[p], c)
	}
	record := make([]string, len(paths))
	copy(record, paths)
	g.byComp[c.id] = record
}

// unsubscribeAll removes c from every path index. Invoked on teardown and
// as the first half of replace.
func (g *subscriptionGraph) unsubscribeAll(c *Computation) {
	for _, p := range g.byComp[c.id] {
		g.byPath[p] = removeComp(g.byPath[p], c.id)
		if len(g.byPath[p]) == 0 {
			delete(g.byPath, p)
		}
	}
	delete(g.byComp, c.id)
}

// dropPath removes every subscription on exactly path, updating the
// reverse index. Used when a path is torn down with its namespace.
func (g *subscriptionGraph) dropPath(path string) {
	for _, c := range g.byPath[path] {
		g.byComp[c.id] = removePath(g.byComp[c.id], path)
		if len(g.byComp[c.id]) == 0 {
			delete(g.byComp, c.id)
		}
	}
	delete(g.byPath, path)
}

// dependentsOf resolves the de-duplicated candidate set for a batch of
// changed paths: computations subscribed to each path directly plus
// computations subscribed to any ancestor (their structural snapshot
// changed). A computation depending on several touched paths appears
// exactly once, at its first point of discovery.
func (g *subscriptionGraph) dependentsOf(paths []string) []*Computation {
	var out []*Computation
	seen := make(map[uint64]struct{})

	add := func(subs []*Computation) {
		for _, c := range subs {
			if _, dup := seen[c.id]; dup {
				continue
			}
			seen[c.id] = struct{}{}
			out = append(out, c)
		}
	}

	for _, p := range paths {
		add(g.byPath[p])
		for _, anc := range ancestorsOf(p) {
			add(g.byPath[anc])
		}
	}
	return out
}

// subscribers returns the computations directly subscribed to path.
// Exposed for tests and diagnostics.
func (g *subscriptionGraph) subscribers(path string) []*Computation {
	return g.byPath[path]
}

func removeComp(subs []*Computation, id uint64) []*Computation {
	for i, c := range subs {
		if c.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

func removePath(paths []string, path string) []string {
	for i, p := range paths {
		if p == path {
			return append(paths[:i], paths[i+1:]...)
		}
	}
	return paths
}
