package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gostamp/domain/comparison"
	apperrors "gostamp/internal/errors"
)

const (
	summarySheet  = "Summary"
	featuresSheet = "Features"
	postHocSheet  = "PostHoc"
)

var (
	twoGroupHeader = []interface{}{
		"feature", "count_a", "count_b", "total_a", "total_b",
		"p_one_sided", "p_two_sided", "adjusted_p", "reject",
		"ci_lower", "ci_upper", "ci_point", "effect", "passes_filter", "significant",
		"note", "error",
	}
	multiGroupHeader = []interface{}{
		"feature", "statistic", "p_value", "adjusted_p", "reject", "note", "error",
	}
	postHocHeader = []interface{}{
		"feature", "group_a", "group_b", "effect", "lower_ci", "upper_ci", "p_value", "reject", "note",
	}
)

// Exporter writes comparison runs as xlsx workbooks
type Exporter struct{}

// NewExporter creates an exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// Workbook builds the workbook for a run; the caller closes it
func (e *Exporter) Workbook(run *comparison.Run) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, run); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(featuresSheet); err != nil {
		f.Close()
		return nil, err
	}
	var err error
	if run.Kind == comparison.KindMultiGroup {
		err = writeGroupFeatures(f, run)
	} else {
		err = writeFeatures(f, run)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteFile exports the run to path
func (e *Exporter) WriteFile(run *comparison.Run, path string) error {
	f, err := e.Workbook(run)
	if err != nil {
		return apperrors.ExportError(path, err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return apperrors.ExportError(path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(f *excelize.File, run *comparison.Run) error {
	total, rejected, failed := run.Counts()
	rows := [][]interface{}{
		{"run_id", run.ID.String()},
		{"kind", string(run.Kind)},
		{"test", run.TestName},
		{"confidence_interval", run.CIName},
		{"coverage", run.Coverage},
		{"effect_filter", run.EffectName},
		{"effect_threshold", run.EffectMin},
		{"correction", run.CorrectionName},
		{"post_hoc", run.PostHocName},
		{"alpha", run.Alpha},
		{"features", total},
		{"rejected", rejected},
		{"failed", failed},
		{"started_at", run.StartedAt},
		{"completed_at", run.CompletedAt},
	}
	for i, row := range rows {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// optional renders a missing value as an empty cell
func optional(v float64, ok bool) interface{} {
	if !ok {
		return ""
	}
	return v
}

func writeFeatures(f *excelize.File, run *comparison.Run) error {
	if err := writeRow(f, featuresSheet, 1, twoGroupHeader); err != nil {
		return err
	}
	for i, feat := range run.Features {
		obs := feat.Observation
		row := []interface{}{feat.Key.String(), obs.CountA, obs.CountB, obs.TotalA, obs.TotalB}

		var note string
		if feat.Test != nil {
			one, ok := feat.Test.OneSided()
			row = append(row, optional(one, ok), feat.Test.PTwoSided)
			note = feat.Test.Note
		} else {
			row = append(row, "", "")
		}
		if feat.Correction != nil {
			row = append(row, feat.Correction.AdjustedP, feat.Correction.Reject)
		} else {
			row = append(row, "", "")
		}
		if feat.CI != nil {
			row = append(row, feat.CI.LowerBound, feat.CI.UpperBound, feat.CI.PointEffect)
		} else {
			row = append(row, "", "", "")
		}
		row = append(row, optional(effectValue(feat), feat.Effect != nil), feat.PassesFilter, feat.Significant(), note, feat.Error)

		if err := writeRow(f, featuresSheet, i+2, row); err != nil {
			return fmt.Errorf("failed to write feature %s: %w", feat.Key, err)
		}
	}
	return nil
}

func effectValue(feat comparison.FeatureResult) float64 {
	if feat.Effect == nil {
		return 0
	}
	return feat.Effect.Value
}

func writeGroupFeatures(f *excelize.File, run *comparison.Run) error {
	if err := writeRow(f, featuresSheet, 1, multiGroupHeader); err != nil {
		return err
	}
	postHocRow := 0
	for i, feat := range run.GroupFeatures {
		row := []interface{}{feat.Key.String()}
		if feat.Test != nil {
			row = append(row, feat.Test.Statistic, feat.Test.PValue)
		} else {
			row = append(row, "", "")
		}
		if feat.Correction != nil {
			row = append(row, feat.Correction.AdjustedP, feat.Correction.Reject)
		} else {
			row = append(row, "", "")
		}
		note := ""
		if feat.Test != nil {
			note = feat.Test.Note
		}
		row = append(row, note, feat.Error)
		if err := writeRow(f, featuresSheet, i+2, row); err != nil {
			return fmt.Errorf("failed to write feature %s: %w", feat.Key, err)
		}

		if feat.PostHoc == nil {
			continue
		}
		if postHocRow == 0 {
			if _, err := f.NewSheet(postHocSheet); err != nil {
				return err
			}
			if err := writeRow(f, postHocSheet, 1, postHocHeader); err != nil {
				return err
			}
			postHocRow = 1
		}
		for _, pair := range feat.PostHoc.Pairs {
			postHocRow++
			values := []interface{}{
				feat.Key.String(), pair.GroupA, pair.GroupB, pair.Effect,
				pair.LowerCI, pair.UpperCI, pair.PValue, pair.Reject, pair.Note,
			}
			if err := writeRow(f, postHocSheet, postHocRow, values); err != nil {
				return err
			}
		}
	}
	return nil
}
