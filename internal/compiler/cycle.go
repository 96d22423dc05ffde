package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rewrite/internal/rule"
)

// CycleWarning represents a potential rewrite loop in a rule table.
//
// Cycles are warnings, not errors: the Sequencer's loop guard and step
// limit always stop a run, and a cycle may only close for payloads that
// never occur.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["math.a", "math.b", "math.a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on a parsed rule table.
//
// Only rules whose template has no capture references are analyzed: their
// output is a constant, so whether it re-triggers a rule is decidable by
// matching that constant against every pattern in the table.
//
// The algorithm:
//  1. Node per rule ("ruleset.rule"); edge r1 -> r2 when r1's constant
//     output matches r2's pattern
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle
//
// Rules whose pattern fails to compile are skipped; Validate reports them.
// Warnings are ordered by the table position of their first rule.
func AnalyzeCycles(specs []RuleSetSpec) []CycleWarning {
	graph, order := buildRewriteGraph(specs)
	if len(order) == 0 {
		return []CycleWarning{}
	}

	sccs := tarjanSCC(graph, order)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			// Start the path at the earliest declared rule.
			slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return position[a.Path[0]] - position[b.Path[0]]
	})
	return warnings
}

// rewriteGraph maps rule ID -> rule IDs its output could trigger.
type rewriteGraph map[string][]string

// buildRewriteGraph returns the graph and the rule IDs in table order.
func buildRewriteGraph(specs []RuleSetSpec) (rewriteGraph, []string) {
	type node struct {
		id      string
		matcher *rule.Matcher
		output  string
		fixed   bool
	}

	var nodes []node
	for _, rs := range specs {
		for _, r := range rs.Rules {
			m, err := rule.CompileMatcher(r.Pattern)
			if err != nil {
				continue
			}
			n := node{id: rs.Name + "." + r.Name, matcher: m}
			if r.HasTemplate {
				refs, err := rule.TemplateRefs(r.Template)
				if err == nil && !refs {
					n.output = r.Template
					n.fixed = true
				}
			}
			nodes = append(nodes, n)
		}
	}

	graph := make(rewriteGraph, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, from := range nodes {
		order = append(order, from.id)
		graph[from.id] = []string{}
		if !from.fixed {
			continue
		}
		for _, to := range nodes {
			if to.matcher.MatchString(from.output) {
				graph[from.id] = append(graph[from.id], to.id)
			}
		}
	}

	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph rewriteGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in the given order so results are deterministic.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph rewriteGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph rewriteGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("Rule output re-triggers itself: %s → %s", id, id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential rewrite cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: start at the first node, follow edges to other SCC members,
// and stop on returning to the start node.
func reconstructCyclePath(scc []string, graph rewriteGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
