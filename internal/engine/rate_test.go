package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEffectiveRateNoAdjustments(t *testing.T) {
	m := NewMultiplicativeModel(decimal.Zero, decimal.Zero)

	rate := m.EffectiveRate(RateInputs{
		QuotedRate: dec("0.0025"),
		MinRate:    dec("0.0025"),
		VolIndex:   dec("1.0"),
		EventRisk:  5,
	})
	if !rate.Equal(dec("0.0025")) {
		t.Fatalf("expected 0.0025, got %s", rate)
	}
}

func TestEffectiveRateClampToMin(t *testing.T) {
	m := NewMultiplicativeModel(decimal.Zero, decimal.Zero)

	rate := m.EffectiveRate(RateInputs{
		QuotedRate: dec("0.0010"),
		MinRate:    dec("0.0300"),
	})
	if !rate.Equal(dec("0.0300")) {
		t.Fatalf("quoted below minimum should clamp to minimum, got %s", rate)
	}
}

func TestEffectiveRateVolatilityAdjustment(t *testing.T) {
	m := NewMultiplicativeModel(dec("0.10"), decimal.Zero)

	// 0.05 × (1 + 0.10×2.0) = 0.06
	rate := m.EffectiveRate(RateInputs{
		QuotedRate: dec("0.05"),
		MinRate:    dec("0.0025"),
		VolIndex:   dec("2.0"),
	})
	if !rate.Equal(dec("0.06")) {
		t.Fatalf("expected 0.06, got %s", rate)
	}
}

func TestEffectiveRateEventRiskAdjustment(t *testing.T) {
	m := NewMultiplicativeModel(decimal.Zero, dec("0.02"))

	// 0.05 × (1 + 0.02×5) = 0.055
	rate := m.EffectiveRate(RateInputs{
		QuotedRate: dec("0.05"),
		MinRate:    dec("0.0025"),
		EventRisk:  5,
	})
	if !rate.Equal(dec("0.055")) {
		t.Fatalf("expected 0.055, got %s", rate)
	}
}

func TestEffectiveRateRoundsToFourPlaces(t *testing.T) {
	m := NewMultiplicativeModel(dec("0.10"), decimal.Zero)

	// 0.0333 × (1 + 0.10×1.7) = 0.038961 → 0.0390
	rate := m.EffectiveRate(RateInputs{
		QuotedRate: dec("0.0333"),
		MinRate:    dec("0.0025"),
		VolIndex:   dec("1.7"),
	})
	if !rate.Equal(dec("0.0390")) {
		t.Fatalf("expected 0.0390, got %s", rate)
	}
}

func TestEffectiveRateDeterministic(t *testing.T) {
	m := NewMultiplicativeModel(dec("0.10"), dec("0.02"))
	in := RateInputs{
		QuotedRate: dec("0.0412"),
		MinRate:    dec("0.0025"),
		VolIndex:   dec("1.3"),
		EventRisk:  3,
	}

	first := m.EffectiveRate(in)
	for i := 0; i < 10; i++ {
		if got := m.EffectiveRate(in); !got.Equal(first) {
			t.Fatalf("rate not deterministic: %s vs %s", got, first)
		}
	}
}
