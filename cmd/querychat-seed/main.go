package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/demo"
	"github.com/querychat/querychat/internal/schema"
)

func main() {
	rows := flag.Int("rows", 500, "number of enrollment rows to generate")
	seed := flag.Int64("seed", 42, "random seed; the same seed reproduces the same dataset")
	dataDir := flag.String("data-dir", "", "warehouse data directory; defaults to QUERYCHAT_WAREHOUSE_DATA_DIR")
	flag.Parse()

	cfg, err := config.LoadFromEnv("querychat-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	dir := *dataDir
	if dir == "" {
		dir = cfg.Warehouse.DataDir
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "QUERYCHAT_WAREHOUSE_DATA_DIR or -data-dir is required")
		os.Exit(1)
	}
	if *rows <= 0 {
		fmt.Fprintf(os.Stderr, "invalid -rows: %d\n", *rows)
		os.Exit(1)
	}

	encoded, err := demo.EncodeParquet(demo.Generate(*rows, *seed))
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode parquet: %v\n", err)
		os.Exit(1)
	}

	tableDir := filepath.Join(dir, schema.EventsTable().Name)
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create table directory: %v\n", err)
		os.Exit(1)
	}
	target := filepath.Join(tableDir, "part-00000.parquet")
	if err := os.WriteFile(target, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write parquet file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d row(s) to %s\n", *rows, target)
}
