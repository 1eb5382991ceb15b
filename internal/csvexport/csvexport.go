// Package csvexport renders entity rows as CSV or JSON for the backup
// and reporting endpoints (§4.M), guarding every CSV cell against
// formula injection when the file is opened in a spreadsheet.
package csvexport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

// dangerousPrefixes are the characters that trigger formula evaluation
// when a cell is opened in Excel or Google Sheets.
var dangerousPrefixes = []byte{'=', '+', '-', '@', '\t', '\r'}

// Sanitize prefixes a cell with a single quote when it starts with a
// character a spreadsheet would interpret as a formula.
func Sanitize(value string) string {
	if value == "" {
		return value
	}
	for _, p := range dangerousPrefixes {
		if value[0] == p {
			return "'" + value
		}
	}
	return value
}

// CategoryLookup resolves a transaction's category into its (name,
// name_he) pair, or two empty strings when id is nil or unknown.
type CategoryLookup func(id *uuid.UUID) (name, nameHe string)

// TransactionsCSV renders transactions as a BOM-prefixed CSV, the
// encoding Excel needs to render Hebrew category names correctly.
func TransactionsCSV(txns []domain.Transaction, categoryName CategoryLookup) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("﻿")

	w := csv.NewWriter(&buf)
	header := []string{"date", "amount", "type", "category", "category_he", "description", "entry_pattern", "currency"}
	for i, h := range header {
		header[i] = Sanitize(h)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range txns {
		name, nameHe := categoryName(t.CategoryID)
		row := []string{
			t.Date.Format(time.RFC3339),
			t.Amount.String(),
			string(t.Type),
			Sanitize(name),
			Sanitize(nameHe),
			Sanitize(t.Description),
			string(t.EntryPattern),
			t.Currency,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// TransactionsJSON renders transactions as an indented JSON array, the
// other accepted export format alongside CSV.
func TransactionsJSON(rows []TransactionRow) ([]byte, error) {
	return json.MarshalIndent(rows, "", "  ")
}

// TransactionRow is the flattened, export-facing transaction shape.
type TransactionRow struct {
	Date         string `json:"date"`
	Amount       string `json:"amount"`
	Type         string `json:"type"`
	Category     string `json:"category,omitempty"`
	CategoryHe   string `json:"categoryHe,omitempty"`
	Description  string `json:"description"`
	EntryPattern string `json:"entryPattern"`
	Currency     string `json:"currency"`
}

// UsersCSV renders the admin user-export view. last_login_at is not
// tracked by this system (§1 non-goal: session tracking), so the export
// has no such column.
func UsersCSV(users []domain.User) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("﻿")

	w := csv.NewWriter(&buf)
	header := []string{"username", "email", "full_name", "is_admin", "is_super_admin", "is_active", "created_at"}
	for i, h := range header {
		header[i] = Sanitize(h)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, u := range users {
		name := ""
		if u.Name != nil {
			name = *u.Name
		}
		row := []string{
			Sanitize(u.Username),
			Sanitize(u.Email),
			Sanitize(name),
			strconv.FormatBool(u.IsAdmin),
			strconv.FormatBool(u.IsSuperAdmin),
			strconv.FormatBool(u.IsActive),
			u.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Backup is the full-account JSON export shape (§4.M); it carries no
// pagination and each slice is capped by the caller via the per-entity
// limit query parameter.
type Backup struct {
	ExportedAt     time.Time              `json:"exportedAt"`
	Categories     []domain.Category      `json:"categories"`
	Transactions   []domain.Transaction   `json:"transactions"`
	FixedSchedules []domain.FixedSchedule `json:"fixedSchedules"`
	Installments   []domain.Installment   `json:"installments"`
	Loans          []domain.Loan          `json:"loans"`
	BankBalances   []domain.BankBalance   `json:"bankBalances"`
	Subscriptions  []domain.Subscription  `json:"subscriptions"`
}

func BackupJSON(b Backup) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}
