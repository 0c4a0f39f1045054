package types

import "fmt"

// Inclusion list variant axes. Every evaluation block yields six lists:
// {topfee, censored} x {0, 1, 2} block delay.
const (
	StrategyTopFee   = "topfee"
	StrategyCensored = "censored"

	MaxDelay = 2
)

// Strategies lists the two candidate-selection strategies in output order.
var Strategies = []string{StrategyTopFee, StrategyCensored}

// VariantName returns the stable column prefix for a (delay, strategy)
// pair, e.g. "1delay_censored". The naming is a compatibility contract
// for downstream chunk concatenation and must not change.
func VariantName(delay int, strategy string) string {
	return fmt.Sprintf("%ddelay_%s", delay, strategy)
}

// VariantMetrics holds the output cells for one inclusion list variant.
// InclusionRate is nil when no blocks were available to check against.
type VariantMetrics struct {
	TxCount       int32
	SizeBytes     int64
	InclusionRate *float64
}

// BlockMetrics is one output row per evaluated block. The parquet column
// names mirror the historical dataset layout and are a compatibility
// contract for downstream concatenation.
type BlockMetrics struct {
	BlockNumber    uint64 `parquet:"block_number"`
	BlockTimestamp int64  `parquet:"block_timestamp"`
	BaseFee        uint64 `parquet:"base_fee"`
	GasUsed        uint64 `parquet:"gas_used"`
	GasLimit       uint64 `parquet:"gas_limit"`

	IncludedTxCount int32 `parquet:"included_tx_count"`

	// MempoolCoverageOfNextBlock is the percentage of block N+1's
	// transactions that were visible in block N's mempool window.
	MempoolCoverageOfNextBlock float64 `parquet:"mempool_coverage_of_next_block"`
	MempoolUniqueTxsInWindow   int32   `parquet:"mempool_unique_txs_in_window"`

	// CensoredDetectedCount is the size of the delay-1 censorship
	// snapshot, the headline censorship indicator for the block.
	CensoredDetectedCount int32 `parquet:"censored_detected_count"`

	TopFee0TxCount       int32    `parquet:"0delay_topfee_tx_count"`
	TopFee0SizeBytes     int64    `parquet:"0delay_topfee_size_bytes"`
	TopFee0InclusionRate *float64 `parquet:"0delay_topfee_inclusion_rate,optional"`

	Censored0TxCount       int32    `parquet:"0delay_censored_tx_count"`
	Censored0SizeBytes     int64    `parquet:"0delay_censored_size_bytes"`
	Censored0InclusionRate *float64 `parquet:"0delay_censored_inclusion_rate,optional"`

	TopFee1TxCount       int32    `parquet:"1delay_topfee_tx_count"`
	TopFee1SizeBytes     int64    `parquet:"1delay_topfee_size_bytes"`
	TopFee1InclusionRate *float64 `parquet:"1delay_topfee_inclusion_rate,optional"`

	Censored1TxCount       int32    `parquet:"1delay_censored_tx_count"`
	Censored1SizeBytes     int64    `parquet:"1delay_censored_size_bytes"`
	Censored1InclusionRate *float64 `parquet:"1delay_censored_inclusion_rate,optional"`

	TopFee2TxCount       int32    `parquet:"2delay_topfee_tx_count"`
	TopFee2SizeBytes     int64    `parquet:"2delay_topfee_size_bytes"`
	TopFee2InclusionRate *float64 `parquet:"2delay_topfee_inclusion_rate,optional"`

	Censored2TxCount       int32    `parquet:"2delay_censored_tx_count"`
	Censored2SizeBytes     int64    `parquet:"2delay_censored_size_bytes"`
	Censored2InclusionRate *float64 `parquet:"2delay_censored_inclusion_rate,optional"`
}

// SetVariant stores the cells for the given (delay, strategy) pair.
func (m *BlockMetrics) SetVariant(delay int, strategy string, v VariantMetrics) {
	switch {
	case delay == 0 && strategy == StrategyTopFee:
		m.TopFee0TxCount, m.TopFee0SizeBytes, m.TopFee0InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	case delay == 0 && strategy == StrategyCensored:
		m.Censored0TxCount, m.Censored0SizeBytes, m.Censored0InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	case delay == 1 && strategy == StrategyTopFee:
		m.TopFee1TxCount, m.TopFee1SizeBytes, m.TopFee1InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	case delay == 1 && strategy == StrategyCensored:
		m.Censored1TxCount, m.Censored1SizeBytes, m.Censored1InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	case delay == 2 && strategy == StrategyTopFee:
		m.TopFee2TxCount, m.TopFee2SizeBytes, m.TopFee2InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	case delay == 2 && strategy == StrategyCensored:
		m.Censored2TxCount, m.Censored2SizeBytes, m.Censored2InclusionRate = v.TxCount, v.SizeBytes, v.InclusionRate
	default:
		panic(fmt.Sprintf("unknown inclusion list variant %d/%s", delay, strategy))
	}
}

// Variant returns the cells for the given (delay, strategy) pair.
func (m *BlockMetrics) Variant(delay int, strategy string) VariantMetrics {
	switch {
	case delay == 0 && strategy == StrategyTopFee:
		return VariantMetrics{m.TopFee0TxCount, m.TopFee0SizeBytes, m.TopFee0InclusionRate}
	case delay == 0 && strategy == StrategyCensored:
		return VariantMetrics{m.Censored0TxCount, m.Censored0SizeBytes, m.Censored0InclusionRate}
	case delay == 1 && strategy == StrategyTopFee:
		return VariantMetrics{m.TopFee1TxCount, m.TopFee1SizeBytes, m.TopFee1InclusionRate}
	case delay == 1 && strategy == StrategyCensored:
		return VariantMetrics{m.Censored1TxCount, m.Censored1SizeBytes, m.Censored1InclusionRate}
	case delay == 2 && strategy == StrategyTopFee:
		return VariantMetrics{m.TopFee2TxCount, m.TopFee2SizeBytes, m.TopFee2InclusionRate}
	case delay == 2 && strategy == StrategyCensored:
		return VariantMetrics{m.Censored2TxCount, m.Censored2SizeBytes, m.Censored2InclusionRate}
	}
	panic(fmt.Sprintf("unknown inclusion list variant %d/%s", delay, strategy))
}
