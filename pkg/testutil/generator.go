// Package testutil provides tree fixture generators and assertions shared by
// the package tests. All generators produce deterministic output.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// GeneratorConfig controls random tree generation.
type GeneratorConfig struct {
	Seed        int64   // Random seed for determinism (0 = use current time)
	IDPrefix    string  // Prefix for entry IDs (default: "n")
	FolderRatio float64 // Probability that a generated entry is a folder
	MaxChildren int     // Upper bound on children per folder
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		IDPrefix:    "n",
		FolderRatio: 0.3,
		MaxChildren: 6,
	}
}

// Generator creates tree fixtures with various shapes.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = 6
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) id() string {
	g.next++
	return fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next)
}

// Chain nests depth folders, one inside the other, with a single leaf at
// the bottom.
//
//	f1
//	  f2
//	    ...
//	      leaf
func (g *Generator) Chain(depth int) []model.Entry {
	leaf := model.File(g.id(), "leaf")
	cur := leaf
	for i := depth; i >= 1; i-- {
		cur = model.Folder(g.id(), fmt.Sprintf("f%d", i), cur)
	}
	return []model.Entry{cur}
}

// Balanced builds breadth top-level subtrees, each depth levels deep, with
// breadth children per folder. Level depth-1 holds leaves.
func (g *Generator) Balanced(depth, breadth int) []model.Entry {
	type frame struct {
		entry *model.Entry
		level int
	}
	roots := make([]model.Entry, breadth)
	var stack []frame
	for i := range roots {
		roots[i] = g.entry(0, depth, i)
		stack = append(stack, frame{&roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.level+1 >= depth {
			continue
		}
		f.entry.Children = make([]model.Entry, breadth)
		for i := range f.entry.Children {
			f.entry.Children[i] = g.entry(f.level+1, depth, i)
			stack = append(stack, frame{&f.entry.Children[i], f.level + 1})
		}
	}
	return roots
}

func (g *Generator) entry(level, depth, i int) model.Entry {
	id := g.id()
	name := fmt.Sprintf("%s-%d-%d", id, level, i)
	if level+1 < depth {
		return model.Entry{ID: id, Name: name, Folder: true}
	}
	return model.File(id, name)
}

// Wide returns n top-level leaves.
func (g *Generator) Wide(n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = model.File(g.id(), fmt.Sprintf("item-%03d", i))
	}
	return out
}

// Random builds a tree of about size entries with random shape.
func (g *Generator) Random(size int) []model.Entry {
	var roots []model.Entry
	remaining := size
	for remaining > 0 {
		e, used := g.randomEntry(0, remaining)
		roots = append(roots, e)
		remaining -= used
	}
	return roots
}

func (g *Generator) randomEntry(level, budget int) (model.Entry, int) {
	id := g.id()
	name := fmt.Sprintf("%s-l%d", id, level)
	if budget <= 1 || level >= 8 || g.rng.Float64() >= g.cfg.FolderRatio {
		return model.File(id, name), 1
	}
	e := model.Entry{ID: id, Name: name, Folder: true}
	used := 1
	n := g.rng.Intn(g.cfg.MaxChildren + 1)
	for i := 0; i < n && used < budget; i++ {
		c, u := g.randomEntry(level+1, budget-used)
		e.Children = append(e.Children, c)
		used += u
	}
	return e, used
}

// Flat returns top-level leaves whose IDs and names are the given names.
func Flat(names ...string) []model.Entry {
	out := make([]model.Entry, len(names))
	for i, n := range names {
		out[i] = model.File(n, n)
	}
	return out
}

// Sample is the small tree most tests use. IDs equal names.
//
//	a
//	  a1
//	    a1x
//	    a1y
//	  a2
//	b
//	  b1
//	  b2
//	c
func Sample() []model.Entry {
	return []model.Entry{
		model.Folder("a", "a",
			model.Folder("a1", "a1",
				model.File("a1x", "a1x"),
				model.File("a1y", "a1y"),
			),
			model.File("a2", "a2"),
		),
		model.Folder("b", "b",
			model.File("b1", "b1"),
			model.File("b2", "b2"),
		),
		model.File("c", "c"),
	}
}

// DemoTree is a small source tree, folders before files, used by the CLI
// when started with --demo and by widget tests.
func DemoTree() []model.Entry {
	f := model.File
	d := model.Folder
	return []model.Entry{
		d("src", "src",
			d("src/components", "components",
				d("src/components/ui", "ui",
					d("src/components/ui/forms", "forms",
						f("src/components/ui/forms/checkbox.tsx", "checkbox.tsx"),
						f("src/components/ui/forms/input.tsx", "input.tsx"),
						f("src/components/ui/forms/select.tsx", "select.tsx"),
					),
					f("src/components/ui/button.tsx", "button.tsx"),
					f("src/components/ui/card.tsx", "card.tsx"),
					f("src/components/ui/dialog.tsx", "dialog.tsx"),
				),
				f("src/components/header.tsx", "header.tsx"),
				f("src/components/sidebar.tsx", "sidebar.tsx"),
			),
			d("src/hooks", "hooks",
				f("src/hooks/use-debounce.ts", "use-debounce.ts"),
				f("src/hooks/use-media.ts", "use-media.ts"),
			),
			d("src/lib", "lib",
				f("src/lib/api.ts", "api.ts"),
				f("src/lib/utils.ts", "utils.ts"),
			),
			f("src/index.ts", "index.ts"),
			f("src/main.tsx", "main.tsx"),
		),
		d("public", "public",
			f("public/favicon.ico", "favicon.ico"),
			f("public/robots.txt", "robots.txt"),
		),
		f(".gitignore", ".gitignore"),
		f("package.json", "package.json"),
		f("README.md", "README.md"),
		f("tsconfig.json", "tsconfig.json"),
	}
}
