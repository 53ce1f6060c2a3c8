package services

import (
	"os"
	"path/filepath"
	"testing"

	"housing-map/internal/models"
)

// sampleCSV is the CA/NY scenario: five leading columns, then two periods.
const sampleCSV = `StateName,metaA,metaB,metaC,metaD,2023-01,2023-02
CA,0,0,0,0,10,15
CA,0,0,0,0,5,0
NY,0,0,0,0,3,2
`

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func lookupTotal(snap *models.Snapshot, region string) (float64, bool) {
	for _, t := range snap.Totals {
		if t.Region == region {
			return t.Value, true
		}
	}
	return 0, false
}

func seriesSlice(series *models.Series, period string) []models.SeriesPoint {
	var out []models.SeriesPoint
	for _, p := range series.Points {
		if p.Period == period {
			out = append(out, p)
		}
	}
	return out
}
