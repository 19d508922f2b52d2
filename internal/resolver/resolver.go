// Package resolver encodes ordering knowledge about resource types: which
// types must exist before another may be created, and in which order a batch
// of heterogeneous resource requests must run.
package resolver

import (
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/azniosman/Project-Fortress/internal/logging"
)

// Request is a unit of work describing one resource to create.
// It is immutable once constructed; the resolver never mutates it.
type Request struct {
	// Service is the resource type, the dispatch key for handler lookup
	// and dependency rules (e.g. "ec2", "subnet").
	Service string `yaml:"service"`
	// Name is an optional human label for the resource.
	Name string `yaml:"name,omitempty"`
	// Template is an optional template name to resolve at creation time.
	Template string `yaml:"template,omitempty"`
	// Config is an opaque configuration blob passed verbatim to the handler.
	Config map[string]any `yaml:"config,omitempty"`
}

// Resolver answers dependency questions about resource types using a fixed
// rule table supplied at construction.
type Resolver struct {
	rules  Rules
	logger *slog.Logger
}

// New constructs a Resolver over the given rule table.
func New(rules Rules, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	return &Resolver{rules: rules, logger: logger}
}

// CheckCreation reports dependency issues that block creating a resource of
// the given type. A nil or empty result means creation may proceed.
//
// Types unknown to the rule table produce no issues: no rule means no
// objection. When a template is provided, each required type missing from the
// template's "dependencies" section yields one issue. Without a template there
// is no dependency context at all, so a single issue listing every required
// type is returned.
func (r *Resolver) CheckCreation(service string, template map[string]any) []string {
	required, known := r.rules.RequiredFor(service)
	if !known {
		r.logger.Warn("no dependency rules defined for service", "service", service)
		return nil
	}
	if len(required) == 0 {
		return nil
	}

	// An empty map carries as little dependency context as no template.
	if len(template) == 0 {
		return []string{
			fmt.Sprintf("service %s requires these dependencies: %s", service, strings.Join(required, ", ")),
		}
	}

	provided, _ := template["dependencies"].(map[string]any)
	var issues []string
	for _, dep := range required {
		if _, ok := provided[dep]; !ok {
			issues = append(issues, fmt.Sprintf("missing dependency: %s", dep))
		}
	}
	return issues
}

// SortByDependencies orders a batch of requests so that every request's
// dependency-table predecessors appear before it. The result is always a
// permutation of the input; requests with no relative dependency keep their
// original order. Cyclic batches are repaired by removing one edge per cycle
// and logged; if ordering still fails, the input order is returned unchanged.
func (r *Resolver) SortByDependencies(requests []Request) []Request {
	if len(requests) < 2 {
		return append([]Request(nil), requests...)
	}

	edges := r.buildEdges(requests)
	edges = r.breakCycles(len(requests), edges)

	order, ok := topoOrder(len(requests), edges)
	if !ok {
		// Should not happen once cycles are broken; keep the batch usable.
		r.logger.Error("could not produce a total order, returning original order")
		return append([]Request(nil), requests...)
	}

	sorted := make([]Request, 0, len(requests))
	for _, idx := range order {
		sorted = append(sorted, requests[idx])
	}
	return sorted
}

type edge struct {
	from int
	to   int
}

// buildEdges adds an edge j -> i for every request j whose type appears in
// the dependency list of request i's type. Self-loops cannot occur because a
// type never lists itself in the rule table.
func (r *Resolver) buildEdges(requests []Request) []edge {
	var edges []edge
	for i, req := range requests {
		required, known := r.rules.RequiredFor(req.Service)
		if !known || len(required) == 0 {
			continue
		}
		need := make(map[string]struct{}, len(required))
		for _, dep := range required {
			need[dep] = struct{}{}
		}
		for j, other := range requests {
			if i == j {
				continue
			}
			if _, ok := need[other.Service]; ok {
				edges = append(edges, edge{from: j, to: i})
			}
		}
	}
	return edges
}

// breakCycles removes the closing edge of each detected cycle until the graph
// is acyclic. Each pass removes one edge, so the loop always terminates.
func (r *Resolver) breakCycles(n int, edges []edge) []edge {
	for {
		cycle := findCycle(n, edges)
		if cycle == nil {
			return edges
		}
		closing := edge{from: cycle[len(cycle)-1], to: cycle[0]}
		r.logger.Warn("dependency cycle detected in batch, breaking edge",
			"cycle", cycle,
			"from", closing.from,
			"to", closing.to,
		)
		kept := edges[:0]
		for _, e := range edges {
			if e != closing {
				kept = append(kept, e)
			}
		}
		edges = kept
	}
}

// findCycle performs a deterministic DFS over batch indices and returns one
// cycle path in forward order, where the edge from the last node back to the
// first closes the cycle. It returns nil when the graph is acyclic.
func findCycle(n int, edges []edge) []int {
	outgoing := adjacency(n, edges)

	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	var start, end int
	found := false

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range outgoing[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back-edge u -> v closes a cycle v ... u.
				start, end = v, u
				found = true
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < n && !found; i++ {
		if color[i] == white {
			dfs(i)
		}
	}
	if !found {
		return nil
	}

	var reversed []int
	for cur := end; cur != -1 && cur != start; cur = parent[cur] {
		reversed = append(reversed, cur)
	}
	cycle := []int{start}
	for i := len(reversed) - 1; i >= 0; i-- {
		cycle = append(cycle, reversed[i])
	}
	return cycle
}

func adjacency(n int, edges []edge) [][]int {
	outgoing := make([][]int, n)
	for _, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], e.to)
	}
	return outgoing
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm over batch indices. The ready queue is a
// min-heap on the original batch index, so the ordering is deterministic and
// preserves caller order wherever dependencies do not force otherwise.
func topoOrder(n int, edges []edge) ([]int, bool) {
	outgoing := adjacency(n, edges)
	indeg := make([]int, n)
	for _, e := range edges {
		indeg[e.to]++
	}

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, n)
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		out = append(out, u)
		for _, v := range outgoing[u] {
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	return out, len(out) == n
}
