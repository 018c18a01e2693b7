// Package excel reads feature profiles from xlsx or csv files and exports
// comparison runs as xlsx workbooks.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal"
)

// Required headers of a two-group profile, one row per feature
var TwoGroupColumns = []string{"feature", "count_a", "count_b", "total_a", "total_b"}

// Required headers of a grouped profile in long form, one row per sample value
var GroupedColumns = []string{"feature", "group", "value"}

// ProfileReader handles reading Excel and CSV profile files
type ProfileReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewProfileReader creates a reader; the file type follows the extension
func NewProfileReader(filePath string, logger *internal.Logger) *ProfileReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ProfileReader{filePath: filePath, fileType: fileType, logger: logger}
}

// table is a header-indexed view of the raw rows
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) cell(row []string, column string) string {
	i := t.columns[column]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (r *ProfileReader) read(required []string) (*table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	start := time.Now()
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s profile read in %s (%d rows)", r.fileType, time.Since(start), len(rows))

	if len(rows) < 2 {
		return nil, core.NewInvalidInputError("profile", "file must have a header row and at least one data row")
	}

	t := &table{columns: make(map[string]int), rows: rows[1:]}
	for i, header := range rows[0] {
		t.columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, column := range required {
		if _, ok := t.columns[column]; !ok {
			return nil, core.NewInvalidInputError("profile", fmt.Sprintf("missing column %q", column))
		}
	}
	return t, nil
}

// readExcel reads the first sheet of the workbook
func (r *ProfileReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInvalidInputError("profile", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *ProfileReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// ReadTwoGroup parses one feature per row. Observations are validated so a
// bad row is reported with its line number.
func (r *ProfileReader) ReadTwoGroup() ([]comparison.Feature, error) {
	t, err := r.read(TwoGroupColumns)
	if err != nil {
		return nil, err
	}

	features := make([]comparison.Feature, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		key := t.cell(row, "feature")
		if key == "" {
			continue
		}
		var counts [4]int
		for j, column := range TwoGroupColumns[1:] {
			v, err := strconv.Atoi(t.cell(row, column))
			if err != nil {
				return nil, core.NewInvalidInputError(column, fmt.Sprintf("line %d: %q is not an integer", line, t.cell(row, column)))
			}
			counts[j] = v
		}
		obs, err := stats.NewObservation(counts[0], counts[1], counts[2], counts[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		features = append(features, comparison.Feature{Key: core.FeatureKey(key), Observation: obs})
	}
	return features, nil
}

// ReadGrouped parses long-form rows into grouped features. Groups are
// ordered by first appearance in the file and shared across features.
func (r *ProfileReader) ReadGrouped() ([]comparison.GroupedFeature, []string, error) {
	t, err := r.read(GroupedColumns)
	if err != nil {
		return nil, nil, err
	}

	var groupNames []string
	groupIndex := make(map[string]int)
	var keys []core.FeatureKey
	values := make(map[core.FeatureKey]map[int][]float64)

	for i, row := range t.rows {
		line := i + 2
		key := core.FeatureKey(t.cell(row, "feature"))
		if key == "" {
			continue
		}
		group := t.cell(row, "group")
		v, err := strconv.ParseFloat(t.cell(row, "value"), 64)
		if err != nil {
			return nil, nil, core.NewInvalidInputError("value", fmt.Sprintf("line %d: %q is not a number", line, t.cell(row, "value")))
		}

		g, ok := groupIndex[group]
		if !ok {
			g = len(groupNames)
			groupIndex[group] = g
			groupNames = append(groupNames, group)
		}
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
			values[key] = make(map[int][]float64)
		}
		values[key][g] = append(values[key][g], v)
	}

	features := make([]comparison.GroupedFeature, len(keys))
	for i, key := range keys {
		groups := make([][]float64, len(groupNames))
		for g := range groups {
			groups[g] = values[key][g]
		}
		features[i] = comparison.GroupedFeature{Key: key, Groups: groups}
	}
	return features, groupNames, nil
}
