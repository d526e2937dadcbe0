package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"

	"sbfre/internal/analysis"
	"sbfre/internal/callgraph"
)

// FindEntryPoints returns the designated entry function plus every function
// that no edge targets. Syscalls are never entry points.
func FindEntryPoints(funcs []analysis.Function, g *lattice.Graph) []string {
	targeted := make(map[string]bool)
	for _, e := range g.Edges {
		targeted[e.Callee] = true
	}

	var entries []string
	for _, f := range funcs {
		if f.IsEntry || !targeted[f.Name] {
			entries = append(entries, f.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points along call edges
// and returns the set of all reachable node names.
func ReachableSet(entryPoints []string, g *lattice.Graph) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.Caller] = append(adj[e.Caller], e.Callee)
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the call graph filtered to the reachable set.
// Entry points are highlighted and syscalls are grouped in one cluster.
func ReachabilityDOT(funcs []analysis.Function, g *lattice.Graph, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}
	funcSet := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		funcSet[f.Name] = true
	}
	// Internal call targets whose range was dropped still carry a function name.
	isSyscall := func(name string) bool {
		return !funcSet[name] && name != analysis.UnknownFunc && !strings.HasPrefix(name, analysis.FuncPrefix)
	}

	type edgeKey struct{ from, to string }
	var edges []edgeKey
	seen := make(map[edgeKey]bool)
	for _, e := range g.Edges {
		k := edgeKey{e.Caller, e.Callee}
		if seen[k] || !reachable[e.Caller] || !reachable[e.Callee] {
			continue
		}
		seen[k] = true
		edges = append(edges, k)
	}

	refNodes := make(map[string]bool)
	for _, k := range edges {
		refNodes[k.from] = true
		refNodes[k.to] = true
	}
	for _, ep := range entryPoints {
		refNodes[ep] = true
	}

	var fnNodes, sysNodes []string
	for name := range refNodes {
		if isSyscall(name) {
			sysNodes = append(sysNodes, name)
		} else {
			fnNodes = append(fnNodes, name)
		}
	}
	sort.Strings(fnNodes)
	sort.Strings(sysNodes)

	var b strings.Builder
	b.WriteString("digraph reachable {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeInternal)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for _, name := range fnNodes {
		id := dotID(name)
		label := truncLabel(name, 50)
		switch {
		case entrySet[name]:
			fmt.Fprintf(&b, "  %s [label=%q, penwidth=1.5, color=%q];\n", id, label, t.EntryBorder)
		case name == analysis.UnknownFunc:
			fmt.Fprintf(&b, "  %s [label=%q, fontcolor=%q];\n", id, label, t.ExternalText)
		default:
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	if len(sysNodes) > 0 {
		b.WriteString("  subgraph cluster_syscalls {\n")
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">syscalls</font>>;\n", t.ClusterLabel)
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, name := range sysNodes {
			fmt.Fprintf(&b, "    %s [label=%q, fillcolor=%q];\n", dotID(name), truncLabel(name, 50), t.SyscallFill)
		}
		b.WriteString("  }\n")
	}
	b.WriteByte('\n')

	for _, k := range edges {
		color := t.EdgeInternal
		switch {
		case k.from == analysis.UnknownFunc || strings.HasPrefix(k.to, callgraph.UnmappedPrefix):
			color = t.EdgeUnknown
		case isSyscall(k.to):
			color = t.EdgeSyscall
		}
		fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", dotID(k.from), dotID(k.to), color)
	}

	b.WriteString("}\n")
	return b.String()
}
