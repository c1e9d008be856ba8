package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
)

func TestComputeFlatFee(t *testing.T) {
	e := NewFeeEngine(365)
	broker := models.BrokerConfig{
		BrokerID:      "BRK-1",
		MarkupPercent: dec("5.0"),
		FeeType:       models.FeeFlat,
		FeeAmount:     dec("25.00"),
		Active:        true,
	}

	// 100000 × 0.0025 × 30/365 = 20.5479... → 20.55
	total, bd := e.Compute(dec("0.0025"), dec("100000"), 30, broker)

	if !bd.BorrowCost.Equal(dec("20.55")) {
		t.Fatalf("borrow cost: expected 20.55, got %s", bd.BorrowCost)
	}
	if !bd.Markup.Equal(dec("1.03")) {
		t.Fatalf("markup: expected 1.03, got %s", bd.Markup)
	}
	if !bd.TransactionFee.Equal(dec("25.00")) {
		t.Fatalf("transaction fee: expected 25.00, got %s", bd.TransactionFee)
	}
	if !total.Equal(dec("46.58")) {
		t.Fatalf("total: expected 46.58, got %s", total)
	}
}

func TestComputePercentageFee(t *testing.T) {
	e := NewFeeEngine(365)
	broker := models.BrokerConfig{
		BrokerID:      "BRK-2",
		MarkupPercent: dec("10.0"),
		FeeType:       models.FeePercentage,
		FeeAmount:     dec("0.01"), // 0.01% of position
		Active:        true,
	}

	total, bd := e.Compute(dec("0.05"), dec("50000"), 10, broker)

	// 50000 × 0.05 × 10/365 = 68.4931... → 68.49
	if !bd.BorrowCost.Equal(dec("68.49")) {
		t.Fatalf("borrow cost: expected 68.49, got %s", bd.BorrowCost)
	}
	// 68.49 × 10% = 6.849 → 6.85
	if !bd.Markup.Equal(dec("6.85")) {
		t.Fatalf("markup: expected 6.85, got %s", bd.Markup)
	}
	// 50000 × 0.01/100 = 5.00
	if !bd.TransactionFee.Equal(dec("5.00")) {
		t.Fatalf("transaction fee: expected 5.00, got %s", bd.TransactionFee)
	}
	if !total.Equal(dec("80.34")) {
		t.Fatalf("total: expected 80.34, got %s", total)
	}
}

func TestComputeTotalIsSumOfBreakdown(t *testing.T) {
	e := NewFeeEngine(360)
	broker := models.BrokerConfig{
		BrokerID:      "BRK-3",
		MarkupPercent: dec("7.5"),
		FeeType:       models.FeeFlat,
		FeeAmount:     dec("12.34"),
		Active:        true,
	}

	total, bd := e.Compute(dec("0.0417"), dec("73211.19"), 17, broker)

	sum := bd.BorrowCost.Add(bd.Markup).Add(bd.TransactionFee)
	if !total.Equal(sum) {
		t.Fatalf("total %s != breakdown sum %s", total, sum)
	}
}

func TestComputeDayCountConvention(t *testing.T) {
	broker := models.BrokerConfig{
		MarkupPercent: decimal.Zero,
		FeeType:       models.FeeFlat,
		FeeAmount:     decimal.Zero,
	}

	total365, _ := NewFeeEngine(365).Compute(dec("0.05"), dec("100000"), 365, broker)
	if !total365.Equal(dec("5000.00")) {
		t.Fatalf("full year at 365: expected 5000.00, got %s", total365)
	}

	total360, _ := NewFeeEngine(360).Compute(dec("0.05"), dec("100000"), 360, broker)
	if !total360.Equal(dec("5000.00")) {
		t.Fatalf("full year at 360: expected 5000.00, got %s", total360)
	}
}
