// clickhouse.go implements Source against a ClickHouse instance exposed
// over its HTTP interface. Queries are plain SQL with "FORMAT
// CSVWithNames"; rows stream back as CSV and are decoded here. Transient
// failures are retried with exponential backoff; individual malformed
// rows are dropped and counted, never fatal.
package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/log"
	"github.com/eth2030/focil-analysis/types"
)

// Store errors.
var (
	ErrQueryFailed   = errors.New("store: query failed")
	ErrMissingColumn = errors.New("store: missing column")
)

// ClickHouse is a Source backed by a ClickHouse HTTP endpoint.
type ClickHouse struct {
	cfg    config.StoreConfig
	client *http.Client
	logger *log.Logger

	// dropped counts malformed rows discarded across all queries, kept
	// per chunk for auditability.
	dropped atomic.Int64
}

// NewClickHouse creates a ClickHouse source from the given settings.
func NewClickHouse(cfg config.StoreConfig, logger *log.Logger) *ClickHouse {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &ClickHouse{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.Module("store"),
	}
}

// DroppedRecords returns the number of malformed rows discarded so far.
func (c *ClickHouse) DroppedRecords() int64 {
	return c.dropped.Load()
}

// query runs one SQL statement and returns the decoded CSV records
// (header first). The whole request is retried with exponential backoff
// on transient failure.
func (c *ClickHouse) query(ctx context.Context, sql string) ([][]string, error) {
	var records [][]string

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.URL+"?"+url.Values{"database": {c.cfg.Database}}.Encode(),
			strings.NewReader(sql+" FORMAT CSVWithNames"))
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.cfg.User != "" {
			req.SetBasicAuth(c.cfg.User, c.cfg.Password)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("%w: HTTP %d: %s", ErrQueryFailed, resp.StatusCode, body)
		}

		r := csv.NewReader(resp.Body)
		r.ReuseRecord = false
		recs, err := r.ReadAll()
		if err != nil {
			return fmt.Errorf("%w: decode: %v", ErrQueryFailed, err)
		}
		records = recs
		return nil
	}

	retries := c.cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("query failed, retrying", "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return records, nil
}

// columnIndex maps header names to their positions.
func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, n := range names {
		if _, ok := idx[n]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
	}
	return idx, nil
}

// Blocks implements Source.
func (c *ClickHouse) Blocks(ctx context.Context, start, end uint64) ([]*types.Block, error) {
	sql := fmt.Sprintf(`
SELECT
    execution_payload_block_number AS block_number,
    toUnixTimestamp(slot_start_date_time) AS block_timestamp,
    toString(execution_payload_base_fee_per_gas) AS base_fee,
    execution_payload_transactions_count AS included_tx_count,
    execution_payload_gas_used AS gas_used,
    execution_payload_gas_limit AS gas_limit
FROM canonical_beacon_block
WHERE block_number >= %d AND block_number < %d
ORDER BY block_number`, start, end)

	records, err := c.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	idx, err := columnIndex(records[0], "block_number", "block_timestamp",
		"base_fee", "included_tx_count", "gas_used", "gas_limit")
	if err != nil {
		return nil, err
	}

	blocks := make([]*types.Block, 0, len(records)-1)
	for _, rec := range records[1:] {
		b, err := parseBlock(rec, idx)
		if err != nil {
			c.dropRecord("block", err)
			continue
		}
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Number < blocks[j].Number })
	return blocks, nil
}

func parseBlock(rec []string, idx map[string]int) (*types.Block, error) {
	number, err := strconv.ParseUint(rec[idx["block_number"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("block_number: %v", err)
	}
	ts, err := strconv.ParseInt(rec[idx["block_timestamp"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("block_timestamp: %v", err)
	}
	baseFee, err := uint256.FromDecimal(rec[idx["base_fee"]])
	if err != nil {
		return nil, fmt.Errorf("base_fee: %v", err)
	}
	txCount, err := strconv.Atoi(rec[idx["included_tx_count"]])
	if err != nil {
		return nil, fmt.Errorf("included_tx_count: %v", err)
	}
	gasUsed, err := strconv.ParseUint(rec[idx["gas_used"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gas_used: %v", err)
	}
	gasLimit, err := strconv.ParseUint(rec[idx["gas_limit"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gas_limit: %v", err)
	}
	return &types.Block{
		Number:          number,
		Timestamp:       ts,
		BaseFee:         baseFee,
		IncludedTxCount: txCount,
		GasUsed:         gasUsed,
		GasLimit:        gasLimit,
	}, nil
}

// MempoolObservations implements Source. The store records one row per
// sighting; rows are collapsed per hash here (earliest sighting wins for
// the fee fields) so the engine sees one observation per transaction
// version.
func (c *ClickHouse) MempoolObservations(ctx context.Context, fromTS, toTS int64) ([]*types.MempoolObservation, error) {
	sql := fmt.Sprintf(`
SELECT
    hash AS tx_hash,
    `+"`from`"+` AS sender,
    nonce,
    toUnixTimestamp(event_date_time) AS seen_timestamp,
    toString(gas_fee_cap) AS max_fee,
    toString(gas_tip_cap) AS priority_fee,
    size AS tx_size,
    gas AS gas_limit,
    type AS tx_type
FROM mempool_transaction
WHERE event_date_time >= toDateTime(%d) AND event_date_time < toDateTime(%d)
ORDER BY event_date_time`, fromTS, toTS)

	records, err := c.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	idx, err := columnIndex(records[0], "tx_hash", "sender", "nonce",
		"seen_timestamp", "max_fee", "priority_fee", "tx_size", "gas_limit", "tx_type")
	if err != nil {
		return nil, err
	}

	byHash := make(map[common.Hash]*types.MempoolObservation)
	for _, rec := range records[1:] {
		obs, err := parseObservation(rec, idx)
		if err != nil {
			c.dropRecord("mempool", err)
			continue
		}
		if prev, ok := byHash[obs.Hash]; ok {
			// Rows arrive in seen order, so prev holds the earliest
			// sighting; only the last-seen time moves.
			if obs.LastSeen > prev.LastSeen {
				prev.LastSeen = obs.LastSeen
			}
			if obs.FirstSeen < prev.FirstSeen {
				prev.FirstSeen = obs.FirstSeen
			}
			continue
		}
		byHash[obs.Hash] = obs
	}

	observations := make([]*types.MempoolObservation, 0, len(byHash))
	for _, obs := range byHash {
		observations = append(observations, obs)
	}
	sort.Slice(observations, func(i, j int) bool {
		if observations[i].FirstSeen != observations[j].FirstSeen {
			return observations[i].FirstSeen < observations[j].FirstSeen
		}
		return observations[i].Hash.Cmp(observations[j].Hash) < 0
	})
	return observations, nil
}

func parseObservation(rec []string, idx map[string]int) (*types.MempoolObservation, error) {
	nonce, err := strconv.ParseUint(rec[idx["nonce"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("nonce: %v", err)
	}
	seen, err := strconv.ParseInt(rec[idx["seen_timestamp"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seen_timestamp: %v", err)
	}
	maxFee, err := uint256.FromDecimal(rec[idx["max_fee"]])
	if err != nil {
		return nil, fmt.Errorf("max_fee: %v", err)
	}
	tip, err := uint256.FromDecimal(rec[idx["priority_fee"]])
	if err != nil {
		return nil, fmt.Errorf("priority_fee: %v", err)
	}
	size, err := strconv.ParseUint(rec[idx["tx_size"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tx_size: %v", err)
	}
	gas, err := strconv.ParseUint(rec[idx["gas_limit"]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gas_limit: %v", err)
	}
	txType, err := strconv.ParseUint(rec[idx["tx_type"]], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("tx_type: %v", err)
	}
	return &types.MempoolObservation{
		Hash:        common.HexToHash(rec[idx["tx_hash"]]),
		Sender:      common.HexToAddress(rec[idx["sender"]]),
		Nonce:       nonce,
		MaxFee:      maxFee,
		PriorityFee: tip,
		TxType:      uint8(txType),
		Size:        size,
		GasLimit:    gas,
		FirstSeen:   seen,
		LastSeen:    seen,
	}, nil
}

// IncludedTransactions implements Source.
func (c *ClickHouse) IncludedTransactions(ctx context.Context, start, end uint64) (map[uint64][]common.Hash, error) {
	sql := fmt.Sprintf(`
SELECT DISTINCT
    block_number,
    transaction_hash
FROM canonical_execution_transaction
WHERE block_number >= %d AND block_number < %d`, start, end)

	records, err := c.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return map[uint64][]common.Hash{}, nil
	}
	idx, err := columnIndex(records[0], "block_number", "transaction_hash")
	if err != nil {
		return nil, err
	}

	included := make(map[uint64][]common.Hash)
	for _, rec := range records[1:] {
		number, err := strconv.ParseUint(rec[idx["block_number"]], 10, 64)
		if err != nil {
			c.dropRecord("included", err)
			continue
		}
		included[number] = append(included[number], common.HexToHash(rec[idx["transaction_hash"]]))
	}
	return included, nil
}

func (c *ClickHouse) dropRecord(table string, err error) {
	c.dropped.Add(1)
	c.logger.Debug("dropping malformed record", "table", table, "err", err)
}
