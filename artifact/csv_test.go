package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/eth2030/focil-analysis/types"
)

func TestCSVHeaderOrder(t *testing.T) {
	// The first variant columns must follow the delay-major order the
	// historical dataset uses.
	wantPrefix := []string{
		"block_number", "block_timestamp", "base_fee", "gas_used", "gas_limit",
		"included_tx_count", "mempool_coverage_of_next_block",
		"mempool_unique_txs_in_window", "censored_detected_count",
		"0delay_topfee_tx_count", "0delay_topfee_size_bytes", "0delay_topfee_inclusion_rate",
		"0delay_censored_tx_count",
	}
	for i, want := range wantPrefix {
		if csvHeader[i] != want {
			t.Fatalf("header[%d] = %q, want %q", i, csvHeader[i], want)
		}
	}
	wantCols := 9 + (types.MaxDelay+1)*len(types.Strategies)*3
	if len(csvHeader) != wantCols {
		t.Errorf("header has %d columns, want %d", len(csvHeader), wantCols)
	}
}

func TestCSVRowMatchesHeader(t *testing.T) {
	rows := sampleRows(100, 1)
	if got := len(csvRow(&rows[0])); got != len(csvHeader) {
		t.Errorf("row has %d fields, header has %d", got, len(csvHeader))
	}
}

func TestCSVNilRateEmpty(t *testing.T) {
	var m types.BlockMetrics
	row := csvRow(&m)
	// 0delay_topfee_inclusion_rate is column index 11.
	if row[11] != "" {
		t.Errorf("nil inclusion rate rendered as %q, want empty field", row[11])
	}
}

func TestWriteCSVParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := writeCSV(path, sampleRows(100, 3)); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 { // header + 3 rows
		t.Fatalf("csv has %d records, want 4", len(records))
	}
	if records[1][0] != "100" {
		t.Errorf("first row block number = %q, want 100", records[1][0])
	}
}
