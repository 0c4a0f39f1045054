package types

import "testing"

func TestVariantName(t *testing.T) {
	if got := VariantName(1, StrategyCensored); got != "1delay_censored" {
		t.Errorf("VariantName = %q, want %q", got, "1delay_censored")
	}
	if got := VariantName(0, StrategyTopFee); got != "0delay_topfee" {
		t.Errorf("VariantName = %q, want %q", got, "0delay_topfee")
	}
}

func TestVariantRoundTrip(t *testing.T) {
	var m BlockMetrics
	rate := 42.5

	for delay := 0; delay <= MaxDelay; delay++ {
		for _, strategy := range Strategies {
			want := VariantMetrics{
				TxCount:       int32(delay*10 + len(strategy)),
				SizeBytes:     int64(delay * 1000),
				InclusionRate: &rate,
			}
			m.SetVariant(delay, strategy, want)
			got := m.Variant(delay, strategy)
			if got.TxCount != want.TxCount || got.SizeBytes != want.SizeBytes {
				t.Errorf("variant %d/%s = %+v, want %+v", delay, strategy, got, want)
			}
			if got.InclusionRate == nil || *got.InclusionRate != rate {
				t.Errorf("variant %d/%s inclusion rate not preserved", delay, strategy)
			}
		}
	}
}

func TestVariantUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown variant")
		}
	}()
	var m BlockMetrics
	m.Variant(3, StrategyTopFee)
}
