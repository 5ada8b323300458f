package depgraph

import (
	"fmt"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

func comp(name string, deps ...string) schemas.Component {
	c := schemas.Component{
		Name:       name,
		Version:    "1.0.0",
		PackageURL: "pkg:npm/" + name + "@1.0.0",
	}
	for _, d := range deps {
		c.Dependencies = append(c.Dependencies, schemas.DependencyRef{Ref: "pkg:npm/" + d + "@1.0.0"})
	}
	return c
}

func sumDistribution(stats schemas.DependencyGraphStats) int {
	total := 0
	for _, n := range stats.DepthDistribution {
		total += n
	}
	return total
}

func TestBuild_Empty(t *testing.T) {
	stats := Build(nil)
	assert.Equal(t, 0, stats.TotalDependencies)
	assert.Equal(t, 0, stats.MaxDepth)
	assert.Equal(t, 0, stats.DirectDependencies)
	assert.Equal(t, 0, stats.TransitiveDependencies)
	assert.Empty(t, stats.DepthDistribution)
	assert.Empty(t, stats.Tree)
}

func TestBuild_FlatFallback(t *testing.T) {
	t.Run("below cap", func(t *testing.T) {
		stats := Build([]schemas.Component{comp("a"), comp("b"), comp("c")})
		assert.Equal(t, 3, stats.TotalDependencies)
		assert.Equal(t, 1, stats.MaxDepth)
		assert.Equal(t, 3, stats.DirectDependencies)
		assert.Equal(t, 0, stats.TransitiveDependencies)
		assert.Equal(t, map[int]int{1: 3}, stats.DepthDistribution)
		assert.Len(t, stats.Tree[1], 3)
		assert.Empty(t, stats.Tree[0])
	})

	t.Run("above cap", func(t *testing.T) {
		components := make([]schemas.Component, 25)
		for i := range components {
			components[i] = comp(fmt.Sprintf("c%d", i))
		}
		stats := Build(components)
		assert.Equal(t, 20, stats.DirectDependencies)
		assert.Equal(t, 5, stats.TransitiveDependencies)
		assert.Equal(t, 1, stats.MaxDepth)
		assert.Equal(t, 25, sumDistribution(stats))
	})

	t.Run("custom cap", func(t *testing.T) {
		components := []schemas.Component{comp("a"), comp("b"), comp("c")}
		stats := NewBuilder(2).Build(components)
		assert.Equal(t, 2, stats.DirectDependencies)
		assert.Equal(t, 1, stats.TransitiveDependencies)
	})

	t.Run("only dangling references", func(t *testing.T) {
		stats := Build([]schemas.Component{comp("a", "ghost"), comp("b")})
		assert.Equal(t, 1, stats.MaxDepth)
		assert.Equal(t, 2, stats.DirectDependencies)
	})
}

func TestBuild_Chain(t *testing.T) {
	// app -> lib -> util, app -> log
	components := []schemas.Component{
		comp("app", "lib", "log"),
		comp("lib", "util"),
		comp("util"),
		comp("log"),
	}
	stats := Build(components)

	assert.Equal(t, 4, stats.TotalDependencies)
	assert.Equal(t, 2, stats.MaxDepth)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, stats.DepthDistribution)
	assert.Equal(t, 1, stats.DirectDependencies)
	assert.Equal(t, 3, stats.TransitiveDependencies)

	require.Len(t, stats.Tree[0], 1)
	assert.Equal(t, schemas.TreeNode{Name: "app", PackageURL: "pkg:npm/app@1.0.0", DependencyCount: 2}, stats.Tree[0][0])
	assert.Len(t, stats.Tree[1], 2)
	require.Len(t, stats.Tree[2], 1)
	assert.Equal(t, "util", stats.Tree[2][0].Name)
}

func TestBuild_FirstVisitWins(t *testing.T) {
	// util is reachable at depth 1 (from app) and depth 2 (via lib); BFS
	// reaches it first at depth 1.
	components := []schemas.Component{
		comp("app", "util", "lib"),
		comp("lib", "util"),
		comp("util"),
	}
	stats := Build(components)
	assert.Equal(t, 1, stats.MaxDepth)
	assert.Equal(t, map[int]int{0: 1, 1: 2}, stats.DepthDistribution)
}

func TestBuild_Cycles(t *testing.T) {
	t.Run("cycle below a root", func(t *testing.T) {
		components := []schemas.Component{
			comp("app", "a"),
			comp("a", "b"),
			comp("b", "a"),
		}
		stats := Build(components)
		assert.Equal(t, 3, sumDistribution(stats))
		assert.Equal(t, 2, stats.MaxDepth)
		assert.Equal(t, 1, stats.DirectDependencies)
	})

	t.Run("pure cycle falls back to the flat model", func(t *testing.T) {
		components := []schemas.Component{
			comp("a", "b"),
			comp("b", "c"),
			comp("c", "a"),
		}
		stats := Build(components)
		assert.Equal(t, 3, stats.TotalDependencies)
		assert.Equal(t, 1, stats.MaxDepth)
		assert.Equal(t, 3, stats.DirectDependencies)
		assert.Equal(t, 0, stats.TransitiveDependencies)
		assert.Equal(t, map[int]int{1: 3}, stats.DepthDistribution)
		assert.Len(t, stats.Tree[1], 3)
	})

	t.Run("detached cycle beside a root", func(t *testing.T) {
		components := []schemas.Component{
			comp("app", "lib"),
			comp("lib"),
			comp("x", "y"),
			comp("y", "x"),
		}
		stats := Build(components)
		assert.Equal(t, 4, sumDistribution(stats))
		assert.Equal(t, map[int]int{0: 2, 1: 2}, stats.DepthDistribution)
		assert.Equal(t, 2, stats.DirectDependencies)
	})

	t.Run("self reference", func(t *testing.T) {
		stats := Build([]schemas.Component{comp("a", "a"), comp("b", "a")})
		assert.Equal(t, 2, sumDistribution(stats))
		assert.Equal(t, 1, stats.DirectDependencies)
	})
}

func TestBuild_DanglingReferencesIgnored(t *testing.T) {
	components := []schemas.Component{
		comp("app", "lib", "missing"),
		comp("lib", "also-missing"),
	}
	stats := Build(components)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, stats.DepthDistribution)
	// The declared count includes dangling references.
	assert.Equal(t, 2, stats.Tree[0][0].DependencyCount)
}

func TestBuild_BOMRefAndDuplicates(t *testing.T) {
	components := []schemas.Component{
		{Name: "app", BOMRef: "app-ref", Dependencies: []schemas.DependencyRef{{Ref: "lib-ref"}}},
		{Name: "lib", BOMRef: "lib-ref", PackageURL: "pkg:pypi/lib@1"},
		// Same purl as lib; stays a separate root.
		{Name: "lib-copy", PackageURL: "pkg:pypi/lib@1"},
	}
	stats := Build(components)
	assert.Equal(t, 3, stats.TotalDependencies)
	assert.Equal(t, map[int]int{0: 2, 1: 1}, stats.DepthDistribution)
	assert.Equal(t, 2, stats.DirectDependencies)
	assert.Equal(t, "lib", stats.Tree[1][0].Name)
}

func TestBuild_TreeCoversEveryDepth(t *testing.T) {
	components := []schemas.Component{comp("a", "b"), comp("b", "c"), comp("c", "d"), comp("d")}
	stats := Build(components)
	for d := 0; d <= stats.MaxDepth; d++ {
		assert.Contains(t, stats.Tree, d)
	}
}

// FuzzBuild checks termination and the distribution sum on arbitrary graphs.
func FuzzBuild(f *testing.F) {
	f.Add([]byte{4, 0, 1, 1, 2, 2, 0, 3, 3})
	f.Add([]byte{1, 0, 0})
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		n, err := consumer.GetByte()
		if err != nil {
			return
		}
		count := int(n%32) + 1
		components := make([]schemas.Component, count)
		for i := range components {
			components[i] = comp(fmt.Sprintf("c%d", i))
		}
		for {
			from, err := consumer.GetByte()
			if err != nil {
				break
			}
			to, err := consumer.GetByte()
			if err != nil {
				break
			}
			// Targets past the end become dangling references.
			target := fmt.Sprintf("pkg:npm/c%d@1.0.0", int(to)%(count+2))
			src := &components[int(from)%count]
			src.Dependencies = append(src.Dependencies, schemas.DependencyRef{Ref: target})
		}

		stats := Build(components)
		if sumDistribution(stats) != stats.TotalDependencies {
			t.Fatalf("distribution sums to %d, want %d", sumDistribution(stats), stats.TotalDependencies)
		}
		if stats.DirectDependencies+stats.TransitiveDependencies != stats.TotalDependencies {
			t.Fatalf("direct %d + transitive %d != total %d", stats.DirectDependencies, stats.TransitiveDependencies, stats.TotalDependencies)
		}
	})
}
