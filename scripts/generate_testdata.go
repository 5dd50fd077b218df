//go:build ignore

// generate_testdata.go creates standard plant datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates a data directory readable with --data testdata/benchmark:
//
//	testdata/benchmark/companies.json
//	testdata/benchmark/small/{locations,assets}.json   (~150 records)
//	testdata/benchmark/medium/{locations,assets}.json  (~2k records)
//	testdata/benchmark/large/{locations,assets}.json   (~20k records)
//	testdata/benchmark/huge/{locations,assets}.json    (~100k records)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/testutil"
)

type datasetSpec struct {
	name       string
	sites      int
	areas      int
	assets     int
	components int
	desc       string
}

var datasets = []datasetSpec{
	{"small", 2, 3, 5, 4, "Small plant"},
	{"medium", 4, 5, 10, 9, "Medium plant"},
	{"large", 10, 10, 20, 9, "Large plant"},
	{"huge", 20, 20, 25, 9, "Huge plant"},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	var companies []model.Company
	for i, ds := range datasets {
		fmt.Printf("Generating %s dataset...\n", ds.name)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(i + 1) // Reproducible per-size
		cfg.IDPrefix = "BENCH"
		cfg.DanglingRatio = 0.01

		gen := testutil.New(cfg)
		data := gen.Plant(ds.sites, ds.areas, ds.assets, ds.components)
		data.Company = model.Company{ID: ds.name, Name: ds.desc}
		companies = append(companies, data.Company)

		dir := filepath.Join(outputDir, ds.name)
		must(writeJSON(filepath.Join(dir, "locations.json"), data.Locations))
		must(writeJSON(filepath.Join(dir, "assets.json"), data.Assets))

		fmt.Printf("  Written %s (%d locations, %d assets)\n", dir, len(data.Locations), len(data.Assets))
	}
	must(writeJSON(filepath.Join(outputDir, "companies.json"), companies))

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
}
