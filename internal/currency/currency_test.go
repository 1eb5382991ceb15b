package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvert_SameCurrency_RateOne(t *testing.T) {
	svc := NewService(NewStaticRateTable(nil))
	converted, rate, matched := svc.Convert(decimal.NewFromInt(100), "ILS", "ILS")
	if !converted.Equal(decimal.NewFromInt(100)) {
		t.Errorf("converted = %s, want 100", converted)
	}
	if !rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("rate = %s, want 1", rate)
	}
	if !matched {
		t.Error("expected matched=true for identity conversion")
	}
}

func TestConvert_KnownRate(t *testing.T) {
	svc := NewService(NewStaticRateTable(map[string]decimal.Decimal{
		"USD/ILS": decimal.NewFromFloat(3.7),
	}))
	converted, rate, matched := svc.Convert(decimal.NewFromInt(100), "USD", "ILS")
	if !matched {
		t.Fatal("expected matched=true")
	}
	if !rate.Equal(decimal.NewFromFloat(3.7)) {
		t.Errorf("rate = %s, want 3.7", rate)
	}
	want := decimal.NewFromFloat(370)
	if !converted.Equal(want) {
		t.Errorf("converted = %s, want %s", converted, want)
	}
}

func TestConvert_MissingRate_FailsOpen(t *testing.T) {
	svc := NewService(NewStaticRateTable(nil))
	converted, rate, matched := svc.Convert(decimal.NewFromInt(100), "USD", "EUR")
	if matched {
		t.Error("expected matched=false for a missing rate")
	}
	if !rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("rate = %s, want fail-open rate 1", rate)
	}
	if !converted.Equal(decimal.NewFromInt(100)) {
		t.Errorf("converted = %s, want unchanged amount 100", converted)
	}
}

func TestConvert_RoundsHalfUpToTwoDecimals(t *testing.T) {
	svc := NewService(NewStaticRateTable(map[string]decimal.Decimal{
		"USD/ILS": decimal.NewFromFloat(3.335),
	}))
	converted, _, _ := svc.Convert(decimal.NewFromInt(1), "USD", "ILS")
	if !converted.Equal(decimal.NewFromFloat(3.34)) {
		t.Errorf("converted = %s, want 3.34", converted)
	}
}

func TestPrepareCurrencyFields_StampsOriginalTriple(t *testing.T) {
	svc := NewService(NewStaticRateTable(map[string]decimal.Decimal{
		"USD/ILS": decimal.NewFromFloat(3.7),
	}))
	fields := svc.PrepareCurrencyFields(decimal.NewFromInt(50), "USD", "ILS")

	if !fields.OriginalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("OriginalAmount = %s, want 50", fields.OriginalAmount)
	}
	if fields.OriginalCurrency != "USD" {
		t.Errorf("OriginalCurrency = %s, want USD", fields.OriginalCurrency)
	}
	if !fields.ConvertedAmount.Equal(decimal.NewFromFloat(185)) {
		t.Errorf("ConvertedAmount = %s, want 185", fields.ConvertedAmount)
	}
	if !fields.ExchangeRate.Equal(decimal.NewFromFloat(3.7)) {
		t.Errorf("ExchangeRate = %s, want 3.7", fields.ExchangeRate)
	}
}
