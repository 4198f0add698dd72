//go:build ignore

// generate_testdata.go creates standard tree sources for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates, for each size, a JSON, a YAML and a SQLite source:
//
//	testdata/benchmark/small.{json,yaml,db}   (~100 entries)
//	testdata/benchmark/medium.{json,yaml,db}  (~1000 entries)
//	testdata/benchmark/large.{json,yaml,db}   (~10000 entries)
//	testdata/benchmark/deep.{json,yaml,db}    (a 200 level chain)
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/testutil"
)

type datasetSpec struct {
	name  string
	build func(g *testutil.Generator) []model.Entry
}

var datasets = []datasetSpec{
	{"small", func(g *testutil.Generator) []model.Entry { return g.Random(100) }},
	{"medium", func(g *testutil.Generator) []model.Entry { return g.Random(1000) }},
	{"large", func(g *testutil.Generator) []model.Entry { return g.Balanced(4, 10) }},
	{"deep", func(g *testutil.Generator) []model.Entry { return g.Chain(200) }},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for i, ds := range datasets {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(i + 1) // Reproducible per dataset
		cfg.IDPrefix = ds.name + "-"
		entries := ds.build(testutil.New(cfg))
		fmt.Printf("Generating %s dataset (%d entries)...\n", ds.name, model.Count(entries))

		for _, f := range []loader.Format{loader.FormatJSON, loader.FormatYAML} {
			data, err := loader.Marshal(entries, f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
				os.Exit(1)
			}
			outputPath := filepath.Join(outputDir, ds.name+"."+string(f))
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
				os.Exit(1)
			}
			fmt.Printf("  Written %s (%d bytes)\n", outputPath, len(data))
		}

		dbPath := filepath.Join(outputDir, ds.name+".db")
		_ = os.Remove(dbPath)
		if err := datasource.CreateSQLite(ctx, dbPath, entries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dbPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s\n", dbPath)
	}

	fmt.Println("\nDone! Test sources created in", outputDir)
}
