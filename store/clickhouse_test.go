package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/log"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *ClickHouse {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClickHouse(config.StoreConfig{
		URL:        srv.URL,
		Database:   "default",
		MaxRetries: 1,
	}, log.New(log.VerbosityToLevel(0)))
}

func TestBlocksParsesCSV(t *testing.T) {
	body := strings.Join([]string{
		`"block_number","block_timestamp","base_fee","included_tx_count","gas_used","gas_limit"`,
		`100,1700000000,12000000000,150,15000000,30000000`,
		`101,1700000012,12500000000,140,14000000,30000000`,
	}, "\n")

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		sql, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(sql), "FORMAT CSVWithNames") {
			t.Errorf("query missing CSV format clause: %s", sql)
		}
		io.WriteString(w, body)
	})

	blocks, err := src.Blocks(context.Background(), 100, 102)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	b := blocks[0]
	if b.Number != 100 || b.Timestamp != 1700000000 {
		t.Errorf("block = %d@%d, want 100@1700000000", b.Number, b.Timestamp)
	}
	if b.BaseFee.Uint64() != 12_000_000_000 {
		t.Errorf("base fee = %d, want 12000000000", b.BaseFee.Uint64())
	}
	if b.IncludedTxCount != 150 || b.GasUsed != 15_000_000 {
		t.Errorf("block fields wrong: %+v", b)
	}
}

func TestBlocksDropsMalformedRows(t *testing.T) {
	body := strings.Join([]string{
		`"block_number","block_timestamp","base_fee","included_tx_count","gas_used","gas_limit"`,
		`100,1700000000,12000000000,150,15000000,30000000`,
		`not-a-number,1700000012,12500000000,140,14000000,30000000`,
	}, "\n")

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})

	blocks, err := src.Blocks(context.Background(), 100, 102)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("got %d blocks, want 1 with malformed row dropped", len(blocks))
	}
	if src.DroppedRecords() != 1 {
		t.Errorf("dropped = %d, want 1", src.DroppedRecords())
	}
}

func TestBlocksMissingColumn(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "\"block_number\",\"block_timestamp\"\n100,1700000000\n")
	})

	_, err := src.Blocks(context.Background(), 100, 102)
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestMempoolObservationsDedupPerHash(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	body := strings.Join([]string{
		`"tx_hash","sender","nonce","seen_timestamp","max_fee","priority_fee","tx_size","gas_limit","tx_type"`,
		hash + `,0x1111111111111111111111111111111111111111,7,1000,50000000000,2000000000,250,21000,2`,
		hash + `,0x1111111111111111111111111111111111111111,7,1030,50000000000,2000000000,250,21000,2`,
	}, "\n")

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})

	obs, err := src.MempoolObservations(context.Background(), 900, 1100)
	if err != nil {
		t.Fatalf("MempoolObservations: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1 after per-hash dedup", len(obs))
	}
	o := obs[0]
	if o.FirstSeen != 1000 || o.LastSeen != 1030 {
		t.Errorf("sighting range = [%d, %d], want [1000, 1030]", o.FirstSeen, o.LastSeen)
	}
	if o.Nonce != 7 || o.TxType != 2 || o.Size != 250 {
		t.Errorf("observation fields wrong: %+v", o)
	}
	if o.MaxFee.Uint64() != 50_000_000_000 {
		t.Errorf("max fee = %d, want 50000000000", o.MaxFee.Uint64())
	}
}

func TestIncludedTransactionsGroupsByBlock(t *testing.T) {
	h1 := "0x" + strings.Repeat("01", 32)
	h2 := "0x" + strings.Repeat("02", 32)
	body := strings.Join([]string{
		`"block_number","transaction_hash"`,
		`100,` + h1,
		`100,` + h2,
		`101,` + h1,
	}, "\n")

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})

	included, err := src.IncludedTransactions(context.Background(), 100, 102)
	if err != nil {
		t.Fatalf("IncludedTransactions: %v", err)
	}
	if len(included[100]) != 2 || len(included[101]) != 1 {
		t.Errorf("grouping wrong: %v", included)
	}
	if included[100][0] != common.HexToHash(h1) {
		t.Errorf("hash = %v, want %v", included[100][0], common.HexToHash(h1))
	}
}

func TestQueryRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "DB::Exception: too many simultaneous queries", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "\"block_number\",\"transaction_hash\"\n")
	})

	_, err := src.IncludedTransactions(context.Background(), 100, 102)
	if err != nil {
		t.Fatalf("IncludedTransactions after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestQueryExhaustsRetries(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := src.Blocks(context.Background(), 100, 102)
	if !errors.Is(err, ErrQueryFailed) {
		t.Errorf("err = %v, want ErrQueryFailed", err)
	}
}
