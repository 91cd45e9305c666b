package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// dependencyGraph maps a declaration to the declarations it refers to.
type dependencyGraph map[string][]string

// nodes returns every node of g in name order, including nodes that only
// appear as edge targets.
func (g dependencyGraph) nodes() []string {
	seen := make(map[string]bool)
	for n, edges := range g {
		seen[n] = true
		for _, e := range edges {
			seen[e] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g dependencyGraph) bool {
	for _, neighbor := range g[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Components are returned dependencies first: a component is emitted only
// after every component reachable from it. Nodes are visited in name order,
// so the result is deterministic.
func tarjanSCC(g dependencyGraph) [][]string {
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

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycles returns the components of g that form cycles: components of more
// than one node, and single nodes that refer to themselves.
func cycles(g dependencyGraph) [][]string {
	var out [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			out = append(out, scc)
		}
	}
	return out
}

// topoOrder returns the nodes of an acyclic g with every node after the
// nodes it refers to.
func topoOrder(g dependencyGraph) ([]string, error) {
	var out []string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			return nil, fmt.Errorf("cycle: %s", cyclePath(scc, g))
		}
		out = append(out, scc[0])
	}
	return out, nil
}

// cyclePath renders a cycle through the members of scc, starting and
// ending at its first member.
func cyclePath(scc []string, g dependencyGraph) string {
	if len(scc) == 1 {
		return scc[0] + " → " + scc[0]
	}
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}
	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	for cur := start; ; {
		next := ""
		for _, neighbor := range g[cur] {
			if member[neighbor] && (!visited[neighbor] || neighbor == start) {
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
		visited[next] = true
		cur = next
	}
	return strings.Join(path, " → ")
}
