// Package export writes aggregated housing sales to files other than the
// interactive charts: an XLSX workbook and a static PNG bar chart.
package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"housing-map/internal/errors"
	"housing-map/internal/models"
)

const (
	SheetSnapshot = "Snapshot"
	SheetSeries   = "Series"
)

// WriteWorkbook writes the snapshot and the long-format series to w as an
// XLSX workbook with one sheet each.
func WriteWorkbook(w io.Writer, snap *models.Snapshot, series *models.Series, regionLabel string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSnapshot); err != nil {
		return errors.RenderWrap(err, "rename snapshot sheet")
	}
	if _, err := f.NewSheet(SheetSeries); err != nil {
		return errors.RenderWrap(err, "create series sheet")
	}

	snapRows := [][]any{{regionLabel, snap.Period}}
	for _, t := range snap.Totals {
		snapRows = append(snapRows, []any{t.Region, t.Value})
	}
	if err := writeRows(f, SheetSnapshot, snapRows); err != nil {
		return err
	}

	seriesRows := [][]any{{regionLabel, "Date", "Sales"}}
	for _, p := range series.Points {
		seriesRows = append(seriesRows, []any{p.Region, p.Period, p.Value})
	}
	if err := writeRows(f, SheetSeries, seriesRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.RenderWrap(err, "write workbook")
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.RenderWrap(err, "resolve cell")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.RenderWrap(err, "write row").WithDetails("sheet %q row %d", sheet, i+1)
		}
	}
	return nil
}
