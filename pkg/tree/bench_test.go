package tree_test

import (
	"testing"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/testutil"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// ============================================================================
// Build Benchmarks
// ============================================================================

func BenchmarkBuild_Plant2k(b *testing.B) {
	benchBuild(b, testutil.NewDefault().Plant(4, 5, 10, 9))
}

func BenchmarkBuild_Plant20k(b *testing.B) {
	benchBuild(b, testutil.NewDefault().Plant(10, 10, 20, 9))
}

func BenchmarkBuild_Random10k(b *testing.B) {
	benchBuild(b, testutil.NewDefault().Random(2000, 8000))
}

func benchBuild(b *testing.B, ds model.Dataset) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Build(ds.Locations, ds.Assets)
	}
}

// ============================================================================
// Filter Benchmarks (forest built once, filter per iteration)
// ============================================================================

func BenchmarkFilterByText_Plant20k(b *testing.B) {
	forest := plantForest()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.FilterByText(forest, "bearing")
	}
}

func BenchmarkFilterByCriteria_Plant20k(b *testing.B) {
	forest := plantForest()
	c := tree.Criteria{EnergySensors: true, CriticalStatus: true}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.FilterByCriteria(forest, c)
	}
}

func BenchmarkSorted_Plant20k(b *testing.B) {
	forest := plantForest()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Sorted(forest)
	}
}

func plantForest() []*tree.Node {
	ds := testutil.NewDefault().Plant(10, 10, 20, 9)
	return tree.Build(ds.Locations, ds.Assets)
}
