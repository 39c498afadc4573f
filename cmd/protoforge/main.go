// Command protoforge turns per-iteration optimizer suggestion tables into
// runnable liquid-handler protocol scripts by patching a base template.
//
// Single generation:
//
//	protoforge -csv data/BO_R2.csv -template color_mixing.py -out ./protocols
//
// Simulated loop (writes BO_R<n>.csv tables and a protocol per iteration):
//
//	protoforge -simulate 3 -rows 4 -template color_mixing.py -out ./protocols
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"protoforge/internal/batch"
	"protoforge/internal/blob"
	"protoforge/internal/generate"
	"protoforge/internal/protocol"
	"protoforge/internal/runlog"
	"protoforge/internal/suggest"
)

var exitFunc = os.Exit

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "protoforge:", err)
		exitFunc(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("protoforge", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		csvPath      = fs.String("csv", "", "suggestion table (CSV with colorA,colorB,colorC,DispensePos columns)")
		templatePath = fs.String("template", "color_mixing.py", "base protocol template")
		iteration    = fs.Int("iteration", -1, "iteration number; -1 derives it from the csv filename (BO_R<n>)")
		base         = fs.String("base", "", "artifact name stem; empty derives it from the template filename")
		outDir       = fs.String("out", "", "artifact directory; empty uses PROTOFORGE_BLOB_* environment")
		simulate     = fs.Int("simulate", 0, "run n simulated iterations instead of reading one csv")
		rows         = fs.Int("rows", 4, "experiments per simulated iteration")
		seed         = fs.Int64("seed", 1, "sampler seed for -simulate")
		dataDir      = fs.String("data", "./data", "directory simulated suggestion tables are written to")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	store, err := openStore(ctx, *outDir)
	if err != nil {
		return err
	}
	ledger, err := runlog.Open()
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	svc := generate.NewService(store,
		generate.WithRunLog(ledger),
		generate.WithMetrics(generate.NewExpvarMetricsRecorder("")),
	)

	templateText, err := generate.ReadTemplate(*templatePath)
	if err != nil {
		return err
	}
	baseName := *base
	if baseName == "" {
		baseName = strings.TrimSuffix(filepath.Base(*templatePath), filepath.Ext(*templatePath))
	}
	ext := filepath.Ext(*templatePath)

	if *simulate > 0 {
		if err := runSimulated(ctx, svc, templateText, baseName, ext, *simulate, *rows, *seed, *dataDir, out); err != nil {
			return err
		}
	} else {
		if *csvPath == "" {
			return fmt.Errorf("either -csv or -simulate is required")
		}
		iter := *iteration
		if iter < 0 {
			iter = generate.IterationFromPath(*csvPath)
		}
		if err := generateFromCSV(ctx, svc, templateText, baseName, ext, *csvPath, iter, out); err != nil {
			return err
		}
	}

	runs, err := ledger.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "recorded %d run(s)\n", len(runs))
	for _, r := range runs {
		fmt.Fprintln(out, " ", runlog.Summarize(r))
	}
	return nil
}

func openStore(ctx context.Context, outDir string) (blob.Store, error) {
	if outDir != "" {
		return blob.NewFilesystem(outDir)
	}
	return blob.Open(ctx)
}

func generateFromCSV(ctx context.Context, svc *generate.Service, templateText, baseName, ext, csvPath string, iteration int, out io.Writer) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("%w: %v", batch.ErrSourceRead, err)
	}
	b, err := batch.FromCSV(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "loaded %s: %d experiments\n", csvPath, b.Len())
	return generateBatch(ctx, svc, templateText, baseName, ext, csvPath, b, iteration, out)
}

func generateBatch(ctx context.Context, svc *generate.Service, templateText, baseName, ext, source string, b batch.Batch, iteration int, out io.Writer) error {
	art, err := svc.Generate(ctx, generate.Request{
		TemplateText: templateText,
		Batch:        b,
		Iteration:    iteration,
		BaseName:     baseName,
		Ext:          ext,
		Source:       source,
	})
	if err != nil {
		return err
	}
	if !art.Relabeled {
		fmt.Fprintln(out, "warning: protocol name label not found; artifact keeps the base name")
	}
	// Round-trip verification: the patched script must encode the same batch.
	got, err := protocol.Extract(art.Text, protocol.Options{})
	if err != nil {
		return fmt.Errorf("verify artifact %s: %w", art.Key, err)
	}
	if !got.Equal(b) {
		return fmt.Errorf("verify artifact %s: extracted batch differs", art.Key)
	}
	fmt.Fprintf(out, "generated %s (%d bytes, %d experiments)\n", art.Key, art.Info.Size, b.Len())
	return nil
}

func runSimulated(ctx context.Context, svc *generate.Service, templateText, baseName, ext string, iterations, rows int, seed int64, dataDir string, out io.Writer) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	sampler := suggest.New(seed)
	for i := 0; i < iterations; i++ {
		fmt.Fprintf(out, "--- iteration %d ---\n", i)
		b := sampler.Batch(rows)
		table, err := suggest.MarshalCSV(b)
		if err != nil {
			return err
		}
		csvPath := filepath.Join(dataDir, fmt.Sprintf("BO_R%d.csv", i))
		if err := os.WriteFile(csvPath, table, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote suggestions %s\n", csvPath)
		if err := generateBatch(ctx, svc, templateText, baseName, ext, csvPath, b, i, out); err != nil {
			return err
		}
	}
	return nil
}
