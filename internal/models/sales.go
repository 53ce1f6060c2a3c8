package models

// SalesTable is a parsed input file: one row per region, one column per header cell.
// Cells are kept as raw strings; numeric interpretation happens at aggregation time.
type SalesTable struct {
	Source  string
	Columns []string
	Rows    [][]string
}

func (t *SalesTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

func (t *SalesTable) Len() int {
	return len(t.Rows)
}

// Cell returns the value at row i, column j, or "" when the row is short.
func (t *SalesTable) Cell(i, j int) string {
	row := t.Rows[i]
	if j >= len(row) {
		return ""
	}
	return row[j]
}

type RegionTotal struct {
	Region string  `json:"region"`
	Value  float64 `json:"value"`
}

type Snapshot struct {
	Period  string        `json:"period"`
	Measure string        `json:"measure"`
	Totals  []RegionTotal `json:"totals"`
}

type SeriesPoint struct {
	Region string  `json:"region"`
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// Series is the long-format aggregation. Points are grouped by period, in Periods order.
type Series struct {
	Periods []string      `json:"periods"`
	Points  []SeriesPoint `json:"points"`
}
