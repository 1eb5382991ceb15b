package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	colorPattern     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	currencyPattern  = regexp.MustCompile(`^[A-Z]{3}$`)
	maxIntegerDigits = 13
)

// StripHTMLTags removes HTML tags from a user-supplied string, matching
// the "non-empty after HTML-tag stripping" validation floor.
func StripHTMLTags(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// ValidateName enforces non-empty (after tag stripping) and max length.
func ValidateName(name string) (string, error) {
	clean := StripHTMLTags(name)
	if clean == "" {
		return "", ErrNameRequired
	}
	if len(clean) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return clean, nil
}

// ValidateAmount enforces amount > 0, scale <= 2, and <= 13 integer digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return ErrInvalidAmount
	}
	intPart := amount.Truncate(0).Abs().String()
	if len(intPart) > maxIntegerDigits {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateCurrency enforces the 3-letter ISO code floor.
func ValidateCurrency(code string) error {
	if !currencyPattern.MatchString(code) {
		return ErrInvalidCurrency
	}
	return nil
}

// ValidateColor enforces the #RRGGBB floor.
func ValidateColor(color string) error {
	if !colorPattern.MatchString(color) {
		return ErrInvalidColor
	}
	return nil
}

// ValidateDayOfMonth enforces day_of_month in [1,31].
func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return ErrInvalidDayOfMonth
	}
	return nil
}

// ValidateBillingDay enforces billing_day in [1,28].
func ValidateBillingDay(day int) error {
	if day < 1 || day > 28 {
		return ErrInvalidBillingDay
	}
	return nil
}

// ClampDayToMonth returns the day-of-month clamped to the last day of the
// given (year, month) — end-of-month clamping, not roll-over.
func ClampDayToMonth(year, month, day int) int {
	last := DaysInMonth(year, month)
	if day > last {
		return last
	}
	return day
}

// DaysInMonth returns the number of days in the given (year, month).
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 30
	}
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
