// Package depgraph reconstructs the dependency hierarchy declared by an SBOM
// and reports how deep the exposure goes.
package depgraph

import "github.com/xkilldash9x/sbomrisk/api/schemas"

// DefaultFlatDirectCap is how many components count as direct when a document
// declares no usable dependency edges.
const DefaultFlatDirectCap = 20

// Builder computes DependencyGraphStats. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	flatDirectCap int
}

// NewBuilder returns a Builder using flatDirectCap for edgeless documents. A
// non-positive cap selects DefaultFlatDirectCap.
func NewBuilder(flatDirectCap int) *Builder {
	if flatDirectCap <= 0 {
		flatDirectCap = DefaultFlatDirectCap
	}
	return &Builder{flatDirectCap: flatDirectCap}
}

// Build runs the default Builder.
func Build(components []schemas.Component) schemas.DependencyGraphStats {
	return NewBuilder(DefaultFlatDirectCap).Build(components)
}

// graph is the index form of the document. Nodes are positions in the
// component slice, so duplicate purls never merge two components.
type graph struct {
	components []schemas.Component
	edges      [][]int
	incoming   []int
	edgeCount  int
}

func newGraph(components []schemas.Component) *graph {
	g := &graph{
		components: components,
		edges:      make([][]int, len(components)),
		incoming:   make([]int, len(components)),
	}

	// The first component to claim a reference owns it.
	owner := make(map[string]int, len(components)*2)
	for i, c := range components {
		for _, ref := range []string{c.PackageURL, c.BOMRef} {
			if ref == "" {
				continue
			}
			if _, taken := owner[ref]; !taken {
				owner[ref] = i
			}
		}
	}

	for i, c := range components {
		seen := make(map[int]bool, len(c.Dependencies))
		for _, dep := range c.Dependencies {
			target, ok := owner[dep.Ref]
			if !ok || seen[target] {
				// Dangling or repeated reference.
				continue
			}
			seen[target] = true
			g.edges[i] = append(g.edges[i], target)
			g.incoming[target]++
			g.edgeCount++
		}
	}
	return g
}

func (g *graph) hasRoot() bool {
	for _, n := range g.incoming {
		if n == 0 {
			return true
		}
	}
	return false
}

// Build computes depth statistics for components. It never fails: dangling
// references are ignored and cycles are broken by visiting each component at
// most once.
func (b *Builder) Build(components []schemas.Component) schemas.DependencyGraphStats {
	stats := schemas.DependencyGraphStats{
		TotalDependencies: len(components),
		DepthDistribution: map[int]int{},
		Tree:              map[int][]schemas.TreeNode{},
	}
	if len(components) == 0 {
		return stats
	}

	g := newGraph(components)
	if g.edgeCount == 0 || !g.hasRoot() {
		return b.flat(stats, components)
	}

	depth := make([]int, len(components))
	visited := make([]bool, len(components))
	queue := make([]int, 0, len(components))

	enqueueRoot := func(i int) {
		visited[i] = true
		depth[i] = 0
		queue = append(queue, i)
	}
	drain := func() {
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range g.edges[cur] {
				if visited[next] {
					continue
				}
				visited[next] = true
				depth[next] = depth[cur] + 1
				queue = append(queue, next)
			}
		}
	}

	for i := range components {
		if g.incoming[i] == 0 {
			enqueueRoot(i)
		}
	}
	drain()

	// A cycle detached from every root is seeded at depth 0.
	for i := range components {
		if !visited[i] {
			enqueueRoot(i)
			drain()
		}
	}

	for i, c := range components {
		d := depth[i]
		stats.DepthDistribution[d]++
		if d > stats.MaxDepth {
			stats.MaxDepth = d
		}
		stats.Tree[d] = append(stats.Tree[d], treeNode(c))
	}
	for d := 0; d <= stats.MaxDepth; d++ {
		if _, ok := stats.Tree[d]; !ok {
			stats.Tree[d] = []schemas.TreeNode{}
		}
	}

	stats.DirectDependencies = stats.DepthDistribution[0]
	stats.TransitiveDependencies = stats.TotalDependencies - stats.DirectDependencies
	return stats
}

// flat is the model for documents that list components without relationships
// or whose every component is depended on by another.
func (b *Builder) flat(stats schemas.DependencyGraphStats, components []schemas.Component) schemas.DependencyGraphStats {
	n := len(components)
	stats.MaxDepth = 1
	stats.DepthDistribution[1] = n
	stats.DirectDependencies = min(n, b.flatDirectCap)
	stats.TransitiveDependencies = n - stats.DirectDependencies

	nodes := make([]schemas.TreeNode, 0, n)
	for _, c := range components {
		nodes = append(nodes, treeNode(c))
	}
	stats.Tree[0] = []schemas.TreeNode{}
	stats.Tree[1] = nodes
	return stats
}

func treeNode(c schemas.Component) schemas.TreeNode {
	return schemas.TreeNode{
		Name:            c.Name,
		PackageURL:      c.PackageURL,
		DependencyCount: len(c.Dependencies),
	}
}
