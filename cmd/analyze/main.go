// Command analyze runs a one-shot decision analysis over a JSON counts
// file without a database. Useful for spot checks and offline reports.
//
// Usage:
//
//	analyze -input counts.json [-run run-1] [-seed 42] [-config config.json] [-xlsx report.xlsx]
//
// The input file holds an array of variant counters:
//
//	[{"variant_id": "a", "clicks": 5000, "conversions": 500}, ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"launchlab/adapters/excel"
	"launchlab/adapters/memory"
	"launchlab/adapters/rng"
	"launchlab/app"
	"launchlab/domain/core"
	"launchlab/domain/decision"
	"launchlab/internal"
	"launchlab/ui"
)

func main() {
	inputPath := flag.String("input", "", "path to JSON variant counts file (required)")
	runID := flag.String("run", "adhoc", "run identifier")
	seed := flag.Int64("seed", 1, "base seed for the Monte-Carlo simulation")
	configPath := flag.String("config", "", "optional JSON config overrides file")
	xlsxPath := flag.String("xlsx", "", "optional path to write an xlsx report")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*inputPath, *runID, *seed, *configPath, *xlsxPath); err != nil {
		log.Fatalf("analyze failed: %v", err)
	}
}

func run(inputPath, runID string, seed int64, configPath, xlsxPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read counts file: %w", err)
	}

	var counts []app.VariantCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		return fmt.Errorf("failed to parse counts file: %w", err)
	}

	var configJSON json.RawMessage
	if configPath != "" {
		configJSON, err = os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	logger := internal.NewDefaultLogger()
	service := app.NewDecisionService(memory.NewDecisionRepository(), rng.NewAdapter(), logger, decision.DefaultConfig(), seed)

	result, err := service.Analyze(context.Background(), app.AnalyzeRequest{
		RunID:  core.RunID(runID),
		Counts: counts,
		Config: configJSON,
		Seed:   seed,
	})
	if err != nil {
		return err
	}

	fmt.Print(ui.RenderReportMarkdown(result.Decision))

	if xlsxPath != "" {
		writer := excel.NewReportWriter()
		if err := writer.Write(&result.Decision.Analysis, xlsxPath); err != nil {
			return fmt.Errorf("failed to write xlsx report: %w", err)
		}
		fmt.Printf("\nWrote %s\n", xlsxPath)
	}
	return nil
}
