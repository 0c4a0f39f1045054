// summary.go renders the human-readable report over a set of metrics
// rows: bandwidth matrix per variant, the delay effect on bandwidth
// (the primary research question), censorship detection stats and a
// sample-size note.
package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/eth2030/focil-analysis/types"
)

// blocksPerYear converts per-block bandwidth into annual figures
// (12-second slots).
const blocksPerYear = 7200 * 365

const rule = "======================================================================"

// strategyLabel maps a strategy identifier to its report heading.
func strategyLabel(strategy string) string {
	if strategy == types.StrategyTopFee {
		return "Top Fee"
	}
	return "Censored"
}

// WriteSummary writes the analysis report for the given rows to w.
func WriteSummary(w io.Writer, rows []types.BlockMetrics) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No blocks analyzed.")
		return
	}

	fmt.Fprintf(w, "\n%s\nSUMMARY - 6-VARIANT FOCIL ANALYSIS\n%s\n", rule, rule)
	fmt.Fprintf(w, "\nBlocks analyzed: %d\n", len(rows))
	fmt.Fprintf(w, "Block range: %d to %d\n", rows[0].BlockNumber, rows[len(rows)-1].BlockNumber)

	gasUsed := meanU64(rows, func(m *types.BlockMetrics) uint64 { return m.GasUsed })
	gasLimit := meanU64(rows, func(m *types.BlockMetrics) uint64 { return m.GasLimit })
	if gasLimit > 0 {
		fmt.Fprintf(w, "Average gas usage: %.2fM (%.1f%% of limit)\n",
			gasUsed/1e6, gasUsed/gasLimit*100)
	}
	coverage := mean(rows, func(m *types.BlockMetrics) float64 { return m.MempoolCoverageOfNextBlock })
	unique := mean(rows, func(m *types.BlockMetrics) float64 { return float64(m.MempoolUniqueTxsInWindow) })
	fmt.Fprintf(w, "Avg mempool coverage of next block: %.1f%%\n", coverage)
	fmt.Fprintf(w, "Avg unique mempool txs in window: %.0f\n", unique)

	// Bandwidth matrix.
	fmt.Fprintf(w, "\n%s\nBANDWIDTH MATRIX\n%s\n", rule, rule)
	for _, strategy := range types.Strategies {
		fmt.Fprintf(w, "\n## %s Strategy\n", strategyLabel(strategy))
		for delay := 0; delay <= types.MaxDelay; delay++ {
			size := mean(rows, func(m *types.BlockMetrics) float64 {
				return float64(m.Variant(delay, strategy).SizeBytes)
			})
			count := mean(rows, func(m *types.BlockMetrics) float64 {
				return float64(m.Variant(delay, strategy).TxCount)
			})
			line := fmt.Sprintf("  %d-delay: %.2f KiB/block, %.1f txs, %.2f GB/year",
				delay, size/1024, count, annualGB(size))
			if rate, ok := meanRate(rows, delay, strategy); ok {
				line += fmt.Sprintf(", inclusion=%.1f%%", rate)
			}
			fmt.Fprintln(w, line)
		}
	}

	// Delay effect on bandwidth.
	fmt.Fprintf(w, "\n%s\nDELAY EFFECT ON BANDWIDTH\n%s\n", rule, rule)
	for _, strategy := range types.Strategies {
		base := mean(rows, func(m *types.BlockMetrics) float64 {
			return float64(m.Variant(0, strategy).SizeBytes)
		})
		if base == 0 {
			continue
		}
		fmt.Fprintf(w, "\n## %s Strategy\n", strategyLabel(strategy))
		for delay := 0; delay <= types.MaxDelay; delay++ {
			size := mean(rows, func(m *types.BlockMetrics) float64 {
				return float64(m.Variant(delay, strategy).SizeBytes)
			})
			suffix := " (baseline)"
			if delay > 0 {
				suffix = fmt.Sprintf(" (%+.1f%%)", (size/base-1)*100)
			}
			fmt.Fprintf(w, "  %d-delay: %.2f GB/year%s\n", delay, annualGB(size), suffix)
		}
	}

	// Censorship detection.
	fmt.Fprintf(w, "\n%s\nCENSORSHIP DETECTION\n%s\n", rule, rule)
	detected := mean(rows, func(m *types.BlockMetrics) float64 { return float64(m.CensoredDetectedCount) })
	withCensorship := 0
	for i := range rows {
		if rows[i].CensoredDetectedCount > 0 {
			withCensorship++
		}
	}
	fmt.Fprintf(w, "  Average censored txs/block: %.2f\n", detected)
	fmt.Fprintf(w, "  Blocks with censorship: %d (%.1f%%)\n",
		withCensorship, float64(withCensorship)/float64(len(rows))*100)

	// Statistical notes.
	fmt.Fprintf(w, "\n%s\nSTATISTICAL NOTES\n%s\n", rule, rule)
	fmt.Fprintf(w, "  Sample size: %d blocks\n", len(rows))
	switch {
	case len(rows) < 1000:
		fmt.Fprintln(w, "  WARNING: Small sample. Recommend >= 1,000 blocks (ideally 50,000+).")
	case len(rows) < 10000:
		fmt.Fprintln(w, "  Moderate sample. Results indicative but extend to 50,000 for publication.")
	default:
		fmt.Fprintln(w, "  Large sample. Results likely statistically significant.")
	}
	fmt.Fprintln(w)
}

// Summary returns the report as a string.
func Summary(rows []types.BlockMetrics) string {
	var b strings.Builder
	WriteSummary(&b, rows)
	return b.String()
}

func annualGB(avgBytesPerBlock float64) float64 {
	return avgBytesPerBlock * blocksPerYear / (1 << 30)
}

func mean(rows []types.BlockMetrics, f func(*types.BlockMetrics) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for i := range rows {
		sum += f(&rows[i])
	}
	return sum / float64(len(rows))
}

func meanU64(rows []types.BlockMetrics, f func(*types.BlockMetrics) uint64) float64 {
	return mean(rows, func(m *types.BlockMetrics) float64 { return float64(f(m)) })
}

// meanRate averages the non-nil inclusion rates for a variant. The
// second return is false when no row carried a rate.
func meanRate(rows []types.BlockMetrics, delay int, strategy string) (float64, bool) {
	var sum float64
	n := 0
	for i := range rows {
		if rate := rows[i].Variant(delay, strategy).InclusionRate; rate != nil {
			sum += *rate
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
