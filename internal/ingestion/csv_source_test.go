package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCSVSource_Bars(t *testing.T) {
	path := writeCSV(t, `instrument_id,date,open,high,low,close,volume
600519,2024-01-05,1700,1750,1690,1720,12000
000001,2024-01-05,10.5,10.8,10.4,10.6,800000
`)

	src := &CSVSource{Path: path}
	bars, err := src.Bars(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	b := bars[0]
	if b.InstrumentID != "600519" {
		t.Errorf("expected instrument 600519, got %s", b.InstrumentID)
	}
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if !b.Date.Equal(want) {
		t.Errorf("expected date %v, got %v", want, b.Date)
	}
	if b.Open != 1700 || b.High != 1750 || b.Low != 1690 || b.Close != 1720 {
		t.Errorf("unexpected OHLC: %+v", b)
	}
	if b.Volume != 12000 {
		t.Errorf("expected volume 12000, got %d", b.Volume)
	}
}

func TestCSVSource_BadHeader(t *testing.T) {
	path := writeCSV(t, "symbol,date,open,high,low,close,volume\n")

	src := &CSVSource{Path: path}
	if _, err := src.Bars(context.Background()); err == nil {
		t.Error("expected error for unexpected header, got nil")
	}
}

func TestCSVSource_MalformedRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"bad date", "600519,05-01-2024,1700,1750,1690,1720,12000"},
		{"bad price", "600519,2024-01-05,abc,1750,1690,1720,12000"},
		{"bad volume", "600519,2024-01-05,1700,1750,1690,1720,1.5"},
		{"short row", "600519,2024-01-05,1700"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCSV(t, "instrument_id,date,open,high,low,close,volume\n"+tc.row+"\n")
			src := &CSVSource{Path: path}
			if _, err := src.Bars(context.Background()); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "absent.csv")}
	if _, err := src.Bars(context.Background()); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
