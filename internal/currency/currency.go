// Package currency converts monetary amounts between ISO currency codes
// using an injectable rate table, per (B).
package currency

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RateTable looks up a conversion rate for a "FROM/TO" pair. A future
// real rate provider can implement this interface in place of the
// in-memory map below; callers only depend on the interface.
type RateTable interface {
	Rate(from, to string) (rate decimal.Decimal, matched bool)
}

// StaticRateTable is an in-memory rate table keyed "FROM/TO".
type StaticRateTable struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateTable builds a rate table from a "FROM/TO" keyed map.
func NewStaticRateTable(rates map[string]decimal.Decimal) *StaticRateTable {
	return &StaticRateTable{rates: rates}
}

func (t *StaticRateTable) Rate(from, to string) (decimal.Decimal, bool) {
	r, ok := t.rates[fmt.Sprintf("%s/%s", from, to)]
	return r, ok
}

// Service converts amounts using a RateTable.
type Service struct {
	table RateTable
}

func NewService(table RateTable) *Service {
	return &Service{table: table}
}

// Convert returns (converted_amount, rate, matched). When from==to it
// returns (amount, 1, true) without a table lookup. When the rate is
// absent it returns the fail-open sentinel (amount unchanged, rate=1,
// matched=false) and logs at warn — the missingness is observable by the
// caller rather than silently swallowed (§9 Open Question, resolved).
func (s *Service) Convert(amount decimal.Decimal, from, to string) (converted decimal.Decimal, rate decimal.Decimal, matched bool) {
	if from == to {
		return amount.Round(2), decimal.NewFromInt(1), true
	}
	r, ok := s.table.Rate(from, to)
	if !ok {
		log.Warn().Str("from", from).Str("to", to).Msg("currency rate not found, using fail-open rate=1")
		return amount.Round(2), decimal.NewFromInt(1), false
	}
	return amount.Mul(r).Round(2), r, true
}

// CurrencyFields is the standard {converted, original, original_currency,
// exchange_rate} tuple creators stamp on every currency-bearing entity.
type CurrencyFields struct {
	ConvertedAmount  decimal.Decimal
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
	ExchangeRate     decimal.Decimal
}

// PrepareCurrencyFields converts amount from `from` into `base` and
// returns the full stamped tuple a repository Create persists.
func (s *Service) PrepareCurrencyFields(amount decimal.Decimal, from, base string) CurrencyFields {
	converted, rate, _ := s.Convert(amount, from, base)
	return CurrencyFields{
		ConvertedAmount:  converted,
		OriginalAmount:   amount,
		OriginalCurrency: from,
		ExchangeRate:     rate,
	}
}
