package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"go-station-index/internal/config"
	"go-station-index/internal/pipeline"
	"go-station-index/internal/store"
)

func main() {
	specPath := flag.String("spec", "", "path to run spec file (YAML or JSON)")
	dbPath := flag.String("db", "stationindex.db", "path to the run store database")
	flag.Parse()

	if *specPath == "" {
		fmt.Fprintln(os.Stderr, "usage: stationindex -spec run.yaml [-db stationindex.db]")
		os.Exit(2)
	}

	spec, err := config.LoadRunSpec(*specPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := store.InitDB(*dbPath); err != nil {
		log.Fatalf("❌ failed to open run store: %v", err)
	}
	defer store.Close()

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		log.Fatalf("❌ failed to save run: %v", err)
	}

	res, err := pipeline.Run(context.Background(), runID, spec)
	if err != nil {
		log.Fatalf("❌ run failed: %v", err)
	}

	fmt.Printf("Indexed %d stations from %d trips (%d raw rows, %d skipped)\n",
		len(res.Index), res.Stats.RawRows-res.Stats.Total(), res.Stats.RawRows, res.Stats.Total())
	if len(res.Report.Failed) > 0 {
		fmt.Printf("Validation FAILED: %v\n", res.Report.Failed)
		os.Exit(1)
	}
	fmt.Println("Validation passed.")
}
