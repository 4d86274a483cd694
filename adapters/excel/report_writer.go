// Package excel exports decision analyses as spreadsheet reports for
// marketing hand-off.
package excel

import (
	"fmt"

	"launchlab/domain/decision"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Decision"

// ReportWriter renders a decision analysis into an xlsx workbook.
type ReportWriter struct{}

// NewReportWriter creates a new report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write renders the analysis to the given path. One summary block at the
// top, then the full ranking table.
func (w *ReportWriter) Write(analysis *decision.Analysis, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Run", analysis.RunID.String()},
		{"Confidence", string(analysis.Confidence)},
		{"Recommendation", string(analysis.Recommendation)},
		{"Winner", winnerLabel(analysis)},
		{"Total clicks", analysis.Aggregate.TotalClicks},
		{"Total conversions", analysis.Aggregate.TotalConversions},
		{"Rationale", analysis.Rationale},
		{"Analyzed at", analysis.AnalyzedAt.String()},
	}
	if analysis.AdditionalSamplesNeeded != nil {
		summary = append(summary, []interface{}{"Additional clicks needed", *analysis.AdditionalSamplesNeeded})
	}

	row := 1
	for _, pair := range summary {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &pair); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
		row++
	}
	row++ // blank separator

	header := []interface{}{
		"Rank", "Variant", "Clicks", "Conversions", "CVR",
		"Wilson lower", "Wilson upper", "Win probability", "Score",
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row++

	for _, entry := range analysis.Ranking {
		values := []interface{}{
			entry.Rank,
			entry.VariantID.String(),
			entry.Metrics.Clicks,
			entry.Metrics.Conversions,
			entry.Metrics.CVR,
			entry.WilsonCI.Lower,
			entry.WilsonCI.Upper,
			entry.BayesianWinProbability,
			entry.Score,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write ranking row: %w", err)
		}
		row++
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func winnerLabel(analysis *decision.Analysis) string {
	if analysis.WinnerID == nil {
		return "none"
	}
	return analysis.WinnerID.String()
}
