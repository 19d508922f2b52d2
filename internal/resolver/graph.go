package resolver

import (
	"fmt"
	"strings"
)

// GraphNode is one request in a batch dependency graph.
type GraphNode struct {
	Index   int    `json:"index"`
	Service string `json:"service"`
	Name    string `json:"name,omitempty"`
}

// GraphEdge means "To depends on From".
type GraphEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is a renderable snapshot of the dependency graph induced by a batch,
// together with the creation order the resolver would use.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Order []int       `json:"order"`
}

// Graph builds the dependency graph for a batch of requests without
// executing anything. Cycles are broken the same way SortByDependencies
// breaks them, so Order always covers every request.
func (r *Resolver) Graph(requests []Request) Graph {
	nodes := make([]GraphNode, 0, len(requests))
	for i, req := range requests {
		nodes = append(nodes, GraphNode{Index: i, Service: req.Service, Name: req.Name})
	}

	edges := r.breakCycles(len(requests), r.buildEdges(requests))
	graphEdges := make([]GraphEdge, 0, len(edges))
	for _, e := range edges {
		graphEdges = append(graphEdges, GraphEdge{From: e.from, To: e.to})
	}

	order, ok := topoOrder(len(requests), edges)
	if !ok {
		order = make([]int, len(requests))
		for i := range order {
			order[i] = i
		}
	}

	return Graph{Nodes: nodes, Edges: graphEdges, Order: order}
}

// DOT exports Graphviz DOT text.
func (g Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph fortress {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, n := range g.Nodes {
		b.WriteString(fmt.Sprintf("  n%d [label=\"%s\"];\n", n.Index, escapeLabel(nodeLabel(n, "\\n"))))
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("  n%d -> n%d;\n", e.From, e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid graph text.
func (g Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, n := range g.Nodes {
		b.WriteString(fmt.Sprintf("    n%d[\"%s\"]\n", n.Index, escapeLabel(nodeLabel(n, "<br/>"))))
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("    n%d --> n%d\n", e.From, e.To))
	}
	return b.String()
}

func nodeLabel(n GraphNode, sep string) string {
	if n.Name == "" {
		return n.Service
	}
	return n.Service + sep + "(" + n.Name + ")"
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
