package csvexport

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
)

func TestSanitize_PrefixesFormulaTriggerCharacters(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1:A9)": "'=SUM(A1:A9)",
		"+1234":       "'+1234",
		"-1234":       "'-1234",
		"@SUM(A1)":    "'@SUM(A1)",
		"\tgotcha":    "'\tgotcha",
		"Groceries":   "Groceries",
		"":            "",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTransactionsCSV_IsBOMPrefixedAndSanitizesCells(t *testing.T) {
	txns := []domain.Transaction{
		{
			ID: uuid.New(), Amount: decimal.NewFromInt(100), Currency: "ILS",
			Type: domain.EntryTypeExpense, Description: "=cmd|' /C calc'!A0",
			Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), EntryPattern: domain.EntryPatternOneTime,
		},
	}
	catLookup := func(id *uuid.UUID) (string, string) { return "Groceries", "מכולת" }

	out, err := TransactionsCSV(txns, catLookup)
	if err != nil {
		t.Fatalf("TransactionsCSV() error = %v", err)
	}

	if !strings.HasPrefix(string(out), "﻿") {
		t.Error("expected output to start with a UTF-8 BOM")
	}
	if !strings.Contains(string(out), "'=cmd") {
		t.Error("expected the malicious description to be sanitized with a leading quote")
	}
	if !strings.Contains(string(out), "Groceries") || !strings.Contains(string(out), "מכולת") {
		t.Error("expected both category name variants to appear in the row")
	}
}

func TestBackupJSON_RoundTripsShape(t *testing.T) {
	b := Backup{
		ExportedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Categories: []domain.Category{{ID: uuid.New(), Name: "Food"}},
	}
	out, err := BackupJSON(b)
	if err != nil {
		t.Fatalf("BackupJSON() error = %v", err)
	}
	if !strings.Contains(string(out), "Food") {
		t.Error("expected category name to survive serialization")
	}
}
