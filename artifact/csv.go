// csv.go renders chunk rows as CSV with the same column contract as the
// parquet artifacts. CSV exists for quick inspection with standard unix
// tooling; parquet remains the canonical interchange format.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/eth2030/focil-analysis/types"
)

// csvHeader is the column order of the CSV artifact. It must match the
// parquet schema of types.BlockMetrics.
var csvHeader = buildCSVHeader()

func buildCSVHeader() []string {
	header := []string{
		"block_number",
		"block_timestamp",
		"base_fee",
		"gas_used",
		"gas_limit",
		"included_tx_count",
		"mempool_coverage_of_next_block",
		"mempool_unique_txs_in_window",
		"censored_detected_count",
	}
	for delay := 0; delay <= types.MaxDelay; delay++ {
		for _, strategy := range types.Strategies {
			prefix := types.VariantName(delay, strategy)
			header = append(header,
				prefix+"_tx_count",
				prefix+"_size_bytes",
				prefix+"_inclusion_rate",
			)
		}
	}
	return header
}

func csvRow(m *types.BlockMetrics) []string {
	row := []string{
		strconv.FormatUint(m.BlockNumber, 10),
		strconv.FormatInt(m.BlockTimestamp, 10),
		strconv.FormatUint(m.BaseFee, 10),
		strconv.FormatUint(m.GasUsed, 10),
		strconv.FormatUint(m.GasLimit, 10),
		strconv.FormatInt(int64(m.IncludedTxCount), 10),
		strconv.FormatFloat(m.MempoolCoverageOfNextBlock, 'f', 6, 64),
		strconv.FormatInt(int64(m.MempoolUniqueTxsInWindow), 10),
		strconv.FormatInt(int64(m.CensoredDetectedCount), 10),
	}
	for delay := 0; delay <= types.MaxDelay; delay++ {
		for _, strategy := range types.Strategies {
			v := m.Variant(delay, strategy)
			row = append(row,
				strconv.FormatInt(int64(v.TxCount), 10),
				strconv.FormatInt(v.SizeBytes, 10),
				formatRate(v.InclusionRate),
			)
		}
	}
	return row
}

func writeCSV(path string, rows []types.BlockMetrics) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(csvHeader)
	for i := range rows {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(csvRow(&rows[i]))
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: write %s: %w", path, writeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: rename %s: %w", path, err)
	}
	return nil
}
