package postgres

import (
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// decimalToPgNumeric converts a shopspring/decimal value into the
// pgtype.Numeric binary format pgx binds directly to a NUMERIC column,
// avoiding a string round-trip.
func decimalToPgNumeric(d decimal.Decimal) pgtype.Numeric {
	coeff := new(big.Int).Set(d.Coeff().BigInt())
	if d.Sign() < 0 {
		coeff.Neg(coeff)
	}
	return pgtype.Numeric{Int: coeff, Exp: d.Exponent(), Valid: true}
}

// pgNumericToDecimal converts a scanned pgtype.Numeric back into a
// shopspring/decimal value.
func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// nullableDecimalToPgNumeric converts an optional decimal into a
// pgtype.Numeric with Valid=false when nil.
func nullableDecimalToPgNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{Valid: false}
	}
	return decimalToPgNumeric(*d)
}

// pgNumericToNullableDecimal is the inverse of nullableDecimalToPgNumeric.
func pgNumericToNullableDecimal(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := pgNumericToDecimal(n)
	return &v
}
