package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"housing-map/internal/errors"
	"housing-map/internal/models"
)

const utf8BOM = "\ufeff"

// LoadTable reads a sales table from path. Files ending in .xlsx are read from
// their first worksheet; anything else is parsed as comma-separated text.
func LoadTable(ctx context.Context, path string) (*models.SalesTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadWorkbook(ctx, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseWrap(err, "open input file").WithDetails("path %q", path)
	}
	defer file.Close()

	table, err := ReadCSV(ctx, file)
	if err != nil {
		return nil, err
	}
	table.Source = path
	return table, nil
}

// ReadCSV parses comma-separated data with a header row. Every data row must
// have as many fields as the header.
func ReadCSV(ctx context.Context, r io.Reader) (*models.SalesTable, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Parse("input file is empty")
	}
	if err != nil {
		return nil, errors.ParseWrap(err, "read CSV headers")
	}

	table := &models.SalesTable{Columns: normalizeHeaders(headers)}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseWrap(err, "read CSV row")
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func loadWorkbook(ctx context.Context, path string) (*models.SalesTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.ParseWrap(err, "open workbook").WithDetails("path %q", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Parse("workbook has no sheets").WithDetails("path %q", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.ParseWrap(err, "read worksheet").WithDetails("sheet %q", sheets[0])
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Parse("worksheet is empty").WithDetails("sheet %q", sheets[0])
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := &models.SalesTable{
		Source:  path,
		Columns: normalizeHeaders(rows[0]),
	}

	// GetRows trims trailing empty cells, so short rows are padded to the header width.
	width := len(table.Columns)
	for i, row := range rows[1:] {
		if len(row) > width {
			return nil, errors.Parse("worksheet row wider than header").
				WithDetails("row %d has %d cells, header has %d", i+2, len(row), width)
		}
		padded := make([]string, width)
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}

	return table, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// describeTable is used in log lines.
func describeTable(t *models.SalesTable) string {
	return fmt.Sprintf("%d columns x %d rows", len(t.Columns), t.Len())
}
