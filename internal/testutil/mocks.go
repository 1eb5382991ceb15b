// Package testutil holds in-memory fakes of the domain repositories, used
// by service/engine tests that need a repository but not a database
// (mirrors the teacher's testutil mock-repository pattern).
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

// MockTransactionRepository is an in-memory domain.TransactionRepository.
type MockTransactionRepository struct {
	rows map[uuid.UUID]domain.Transaction
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{rows: make(map[uuid.UUID]domain.Transaction)}
}

func (m *MockTransactionRepository) Add(t domain.Transaction) domain.Transaction {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.rows[t.ID] = t
	return t
}

func (m *MockTransactionRepository) Create(ctx context.Context, dctx domain.DataContext, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	m.rows[txn.ID] = *txn
	out := *txn
	return &out, nil
}

func (m *MockTransactionRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Transaction, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	out := t
	return &out, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter, page domain.Page) (domain.PagedResult[domain.Transaction], error) {
	var items []domain.Transaction
	for _, t := range m.rows {
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Transaction) error) (*domain.Transaction, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if err := patch(&t); err != nil {
		return nil, err
	}
	m.rows[id] = t
	out := t
	return &out, nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *MockTransactionRepository) BulkCreate(ctx context.Context, dctx domain.DataContext, txns []*domain.Transaction) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(txns))
	for _, t := range txns {
		created, err := m.Create(ctx, dctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (m *MockTransactionRepository) BulkDelete(ctx context.Context, dctx domain.DataContext, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MockTransactionRepository) ListInRange(ctx context.Context, dctx domain.DataContext, start, end time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range m.rows {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockTransactionRepository) ExistsForSource(ctx context.Context, dctx domain.DataContext, sourceKind domain.EntryPattern, sourceID uuid.UUID, date time.Time) (bool, error) {
	for _, t := range m.rows {
		if !sameDay(t.Date, date) {
			continue
		}
		switch sourceKind {
		case domain.EntryPatternLoanPayment:
			if t.LoanID != nil && *t.LoanID == sourceID {
				return true, nil
			}
		case domain.EntryPatternRecurring:
			if t.RecurringSourceID != nil && *t.RecurringSourceID == sourceID {
				return true, nil
			}
		case domain.EntryPatternInstallment:
			if t.InstallmentID != nil && *t.InstallmentID == sourceID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MockTransactionRepository) ExportRows(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return m.ListInRange(ctx, dctx, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MockFixedScheduleRepository is an in-memory domain.FixedScheduleRepository.
type MockFixedScheduleRepository struct {
	rows map[uuid.UUID]domain.FixedSchedule
}

func NewMockFixedScheduleRepository() *MockFixedScheduleRepository {
	return &MockFixedScheduleRepository{rows: make(map[uuid.UUID]domain.FixedSchedule)}
}

func (m *MockFixedScheduleRepository) Add(f domain.FixedSchedule) domain.FixedSchedule {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	m.rows[f.ID] = f
	return f
}

func (m *MockFixedScheduleRepository) Create(ctx context.Context, dctx domain.DataContext, fs *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	if fs.ID == uuid.Nil {
		fs.ID = uuid.New()
	}
	m.rows[fs.ID] = *fs
	out := *fs
	return &out, nil
}

func (m *MockFixedScheduleRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.FixedSchedule, error) {
	f, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrFixedScheduleNotFound
	}
	out := f
	return &out, nil
}

func (m *MockFixedScheduleRepository) List(ctx context.Context, dctx domain.DataContext, activeOnly bool, page domain.Page) (domain.PagedResult[domain.FixedSchedule], error) {
	var items []domain.FixedSchedule
	for _, f := range m.rows {
		if activeOnly && !f.IsActive {
			continue
		}
		items = append(items, f)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockFixedScheduleRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.FixedSchedule) error) (*domain.FixedSchedule, error) {
	f, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrFixedScheduleNotFound
	}
	if err := patch(&f); err != nil {
		return nil, err
	}
	m.rows[id] = f
	out := f
	return &out, nil
}

func (m *MockFixedScheduleRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

func (m *MockFixedScheduleRepository) ListActive(ctx context.Context, dctx domain.DataContext) ([]domain.FixedSchedule, error) {
	var out []domain.FixedSchedule
	for _, f := range m.rows {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockFixedScheduleRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.FixedSchedule, error) {
	var out []domain.FixedSchedule
	for _, f := range m.rows {
		if f.IsActive && f.DayOfMonth == day {
			out = append(out, f)
		}
	}
	return out, nil
}

// MockInstallmentRepository is an in-memory domain.InstallmentRepository.
type MockInstallmentRepository struct {
	rows map[uuid.UUID]domain.Installment
}

func NewMockInstallmentRepository() *MockInstallmentRepository {
	return &MockInstallmentRepository{rows: make(map[uuid.UUID]domain.Installment)}
}

func (m *MockInstallmentRepository) Add(i domain.Installment) domain.Installment {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	m.rows[i.ID] = i
	return i
}

func (m *MockInstallmentRepository) Create(ctx context.Context, dctx domain.DataContext, inst *domain.Installment) (*domain.Installment, error) {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	m.rows[inst.ID] = *inst
	out := *inst
	return &out, nil
}

func (m *MockInstallmentRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Installment, error) {
	i, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrInstallmentNotFound
	}
	out := i
	return &out, nil
}

func (m *MockInstallmentRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Installment], error) {
	var items []domain.Installment
	for _, i := range m.rows {
		items = append(items, i)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockInstallmentRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Installment) error) (*domain.Installment, error) {
	i, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrInstallmentNotFound
	}
	if err := patch(&i); err != nil {
		return nil, err
	}
	m.rows[id] = i
	out := i
	return &out, nil
}

func (m *MockInstallmentRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

func (m *MockInstallmentRepository) ListOutstanding(ctx context.Context, dctx domain.DataContext) ([]domain.Installment, error) {
	var out []domain.Installment
	for _, i := range m.rows {
		if i.PaymentsCompleted < i.NumberOfPayments {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *MockInstallmentRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.Installment, error) {
	var out []domain.Installment
	for _, i := range m.rows {
		if i.DayOfMonth == day {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *MockInstallmentRepository) LockForUpdate(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Installment, error) {
	return m.Get(ctx, dctx, id)
}

// MockLoanRepository is an in-memory domain.LoanRepository.
type MockLoanRepository struct {
	rows map[uuid.UUID]domain.Loan
}

func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{rows: make(map[uuid.UUID]domain.Loan)}
}

func (m *MockLoanRepository) Add(l domain.Loan) domain.Loan {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	m.rows[l.ID] = l
	return l
}

func (m *MockLoanRepository) Create(ctx context.Context, dctx domain.DataContext, loan *domain.Loan) (*domain.Loan, error) {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	m.rows[loan.ID] = *loan
	out := *loan
	return &out, nil
}

func (m *MockLoanRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	l, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	out := l
	return &out, nil
}

func (m *MockLoanRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Loan], error) {
	var items []domain.Loan
	for _, l := range m.rows {
		items = append(items, l)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockLoanRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Loan) error) (*domain.Loan, error) {
	l, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if err := patch(&l); err != nil {
		return nil, err
	}
	m.rows[id] = l
	out := l
	return &out, nil
}

func (m *MockLoanRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

func (m *MockLoanRepository) ListActive(ctx context.Context, dctx domain.DataContext) ([]domain.Loan, error) {
	var out []domain.Loan
	for _, l := range m.rows {
		if l.Status == domain.LoanActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockLoanRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.Loan, error) {
	var out []domain.Loan
	for _, l := range m.rows {
		if l.Status == domain.LoanActive && l.DayOfMonth == day {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockLoanRepository) LockForUpdate(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	return m.Get(ctx, dctx, id)
}

// MockBankBalanceRepository is an in-memory domain.BankBalanceRepository.
type MockBankBalanceRepository struct {
	rows    map[uuid.UUID]domain.BankBalance
	current *uuid.UUID
}

func NewMockBankBalanceRepository() *MockBankBalanceRepository {
	return &MockBankBalanceRepository{rows: make(map[uuid.UUID]domain.BankBalance)}
}

func (m *MockBankBalanceRepository) SetCurrent(b domain.BankBalance) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.IsCurrent = true
	for id, existing := range m.rows {
		existing.IsCurrent = false
		m.rows[id] = existing
	}
	m.rows[b.ID] = b
	id := b.ID
	m.current = &id
}

func (m *MockBankBalanceRepository) Create(ctx context.Context, dctx domain.DataContext, bal *domain.BankBalance) (*domain.BankBalance, error) {
	if bal.ID == uuid.Nil {
		bal.ID = uuid.New()
	}
	if bal.IsCurrent {
		for id, existing := range m.rows {
			existing.IsCurrent = false
			m.rows[id] = existing
		}
		id := bal.ID
		m.current = &id
	}
	m.rows[bal.ID] = *bal
	out := *bal
	return &out, nil
}

func (m *MockBankBalanceRepository) GetCurrent(ctx context.Context, dctx domain.DataContext) (*domain.BankBalance, error) {
	if m.current == nil {
		return nil, domain.ErrBankBalanceNotFound
	}
	b := m.rows[*m.current]
	return &b, nil
}

func (m *MockBankBalanceRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.BankBalance], error) {
	var items []domain.BankBalance
	for _, b := range m.rows {
		items = append(items, b)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockBankBalanceRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

// MockExpectedIncomeRepository is an in-memory domain.ExpectedIncomeRepository.
type MockExpectedIncomeRepository struct {
	byMonth map[string]domain.ExpectedIncome
}

func NewMockExpectedIncomeRepository() *MockExpectedIncomeRepository {
	return &MockExpectedIncomeRepository{byMonth: make(map[string]domain.ExpectedIncome)}
}

func (m *MockExpectedIncomeRepository) Set(ei domain.ExpectedIncome) {
	if ei.ID == uuid.Nil {
		ei.ID = uuid.New()
	}
	m.byMonth[monthKeyOf(ei.Month)] = ei
}

func (m *MockExpectedIncomeRepository) Upsert(ctx context.Context, dctx domain.DataContext, ei *domain.ExpectedIncome) (*domain.ExpectedIncome, error) {
	m.Set(*ei)
	out := *ei
	return &out, nil
}

func (m *MockExpectedIncomeRepository) GetForMonth(ctx context.Context, dctx domain.DataContext, month time.Time) (*domain.ExpectedIncome, error) {
	ei, ok := m.byMonth[monthKeyOf(month)]
	if !ok {
		return nil, domain.NewNotFoundError("expected income not found")
	}
	out := ei
	return &out, nil
}

func (m *MockExpectedIncomeRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.ExpectedIncome], error) {
	var items []domain.ExpectedIncome
	for _, ei := range m.byMonth {
		items = append(items, ei)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockExpectedIncomeRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	for k, ei := range m.byMonth {
		if ei.ID == id {
			delete(m.byMonth, k)
			return nil
		}
	}
	return domain.NewNotFoundError("expected income not found")
}

func monthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

// MockAlertRepository is an in-memory domain.AlertRepository that
// reproduces the postgres Reconcile semantics (§4.H): matched keys keep
// ID/IsRead/IsDismissed/CreatedAt, unmatched bucketed keys are deleted.
type MockAlertRepository struct {
	byKey map[string]domain.Alert
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{byKey: make(map[string]domain.Alert)}
}

func (m *MockAlertRepository) ListNonDismissedByKeyPrefix(ctx context.Context, dctx domain.DataContext, prefix string) ([]domain.Alert, error) {
	var out []domain.Alert
	for k, a := range m.byKey {
		if !a.IsDismissed && hasPrefix(k, prefix) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAlertRepository) List(ctx context.Context, dctx domain.DataContext, unreadOnly bool, page domain.Page) (domain.PagedResult[domain.Alert], error) {
	var items []domain.Alert
	for _, a := range m.byKey {
		if unreadOnly && a.IsRead {
			continue
		}
		items = append(items, a)
	}
	return domain.NewPagedResult(items, len(items), page.Normalize()), nil
}

func (m *MockAlertRepository) Reconcile(ctx context.Context, dctx domain.DataContext, keyPrefix string, fresh []domain.Alert) ([]domain.Alert, error) {
	freshKeys := make(map[string]bool, len(fresh))
	result := make([]domain.Alert, 0, len(fresh))
	now := time.Now().UTC()

	for _, a := range fresh {
		freshKeys[a.Key] = true
		if old, ok := m.byKey[a.Key]; ok {
			a.ID = old.ID
			a.IsRead = old.IsRead
			a.IsDismissed = old.IsDismissed
			a.CreatedAt = old.CreatedAt
		} else {
			a.ID = uuid.New()
			a.CreatedAt = now
		}
		m.byKey[a.Key] = a
		result = append(result, a)
	}

	for k := range m.byKey {
		if hasPrefix(k, keyPrefix) && !freshKeys[k] {
			delete(m.byKey, k)
		}
	}

	return result, nil
}

func (m *MockAlertRepository) MarkRead(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	for k, a := range m.byKey {
		if a.ID == id {
			a.IsRead = true
			m.byKey[k] = a
			return nil
		}
	}
	return domain.NewNotFoundError("alert not found")
}

func (m *MockAlertRepository) Dismiss(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	for k, a := range m.byKey {
		if a.ID == id {
			a.IsDismissed = true
			m.byKey[k] = a
			return nil
		}
	}
	return domain.NewNotFoundError("alert not found")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
