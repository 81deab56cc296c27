// Command bench measures how long listing notebook summaries takes with a
// cold and a warm summary index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/nbform"
)

func main() {
	count := flag.Int("count", 1000, "Number of notebooks to generate")
	cells := flag.Int("cells", 20, "Cells per notebook")
	keep := flag.Bool("keep", false, "Keep the benchmark directory after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "nbform_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d notebooks in %s...\n", *count, benchDir)
	startGen := time.Now()

	t := nbform.NewTranscoder()
	for i := 0; i < *count; i++ {
		nb := nbform.NewNotebook()
		for c := 1; c < *cells; c++ {
			nb.Cells = append(nb.Cells, nbform.Cell{
				CellType: "code",
				Source:   nbform.Text(fmt.Sprintf("# cell %d\nx = %d\nprint(x)\n", c, c)),
				Outputs:  []nbform.Output{},
				Metadata: nbform.Metadata{},
			})
		}
		data, err := t.Marshal(nb)
		if err != nil {
			panic(err)
		}
		filename := filepath.Join(benchDir, fmt.Sprintf("nb_%d.ipynb", i))
		if err := os.WriteFile(filename, data, 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.TODO()

	// Run 1: Cold (decodes every notebook, writes the index)
	cold, n := run(ctx, benchDir, logger)
	fmt.Printf("Run 1 Result: %v (Items: %d)\n", cold, n)

	// Run 2: Warm (a new service, as a second CLI invocation would be)
	warm, n := run(ctx, benchDir, logger)
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", warm, n)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notebooks, %d cells each):\n", *count, *cells)
	fmt.Printf("  Cold: %v\n", cold)
	fmt.Printf("  Warm: %v\n", warm)
	fmt.Printf("--------------------------------------------------\n")
}

func run(ctx context.Context, dir string, logger *slog.Logger) (time.Duration, int) {
	svc, err := nbform.Open(dir, nbform.WithLogger(logger), nbform.WithMustExist(true))
	if err != nil {
		panic(err)
	}
	start := time.Now()
	summaries, err := svc.Summaries(ctx)
	if err != nil {
		panic(err)
	}
	return time.Since(start), len(summaries)
}
