package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
)

// MemoryOption configures an in-memory store
type MemoryOption func(*memoryDB)

// WithCommitHook runs hook before every Atomic commit; a non-nil error
// aborts the commit as a storage failure would.
func WithCommitHook(hook func() error) MemoryOption {
	return func(db *memoryDB) {
		db.commitHook = hook
	}
}

type memoryState struct {
	wallets      map[string]models.Wallet
	transactions map[string]models.Transaction
	history      map[string][]models.BalanceHistoryEntry
	idempotency  map[string]models.IdempotencyRecord
	reports      []models.ReconciliationReport
}

func newMemoryState() *memoryState {
	return &memoryState{
		wallets:      make(map[string]models.Wallet),
		transactions: make(map[string]models.Transaction),
		history:      make(map[string][]models.BalanceHistoryEntry),
		idempotency:  make(map[string]models.IdempotencyRecord),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([]models.BalanceHistoryEntry(nil), v...)
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	c.reports = append([]models.ReconciliationReport(nil), s.reports...)
	return c
}

type memoryDB struct {
	mu         sync.Mutex
	state      *memoryState
	commitHook func() error
}

// memoryView reads and writes either the committed state (taking the
// store lock per call) or a transaction's private copy.
type memoryView struct {
	db   *memoryDB
	work *memoryState
}

func (v *memoryView) do(fn func(*memoryState) error) error {
	if v.work != nil {
		return fn(v.work)
	}
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	return fn(v.db.state)
}

// NewMemoryRepositories creates repositories backed by process memory.
// Atomic blocks run against a private snapshot and commit optimistically:
// a block that changed a wallet or transaction another commit changed
// first fails with a concurrent modification, as a version-checked
// database write would.
func NewMemoryRepositories(opts ...MemoryOption) *Repositories {
	db := &memoryDB{state: newMemoryState()}
	for _, opt := range opts {
		opt(db)
	}
	return newMemoryRepositories(&memoryView{db: db})
}

func newMemoryRepositories(view *memoryView) *Repositories {
	repos := &Repositories{
		Wallet:         &memoryWalletRepository{view},
		Transaction:    &memoryTransactionRepository{view},
		History:        &memoryHistoryRepository{view},
		Idempotency:    &memoryIdempotencyRepository{view},
		Reconciliation: &memoryReconciliationRepository{view},
	}

	if view.work != nil {
		repos.atomic = func(ctx context.Context, fn func(*Repositories) error) error {
			return fn(repos)
		}
		return repos
	}

	db := view.db
	repos.atomic = func(ctx context.Context, fn func(*Repositories) error) error {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		db.mu.Lock()
		base := db.state.clone()
		db.mu.Unlock()

		work := base.clone()
		if err := fn(newMemoryRepositories(&memoryView{db: db, work: work})); err != nil {
			return err
		}
		if db.commitHook != nil {
			if err := db.commitHook(); err != nil {
				return errors.WithStack(err)
			}
		}

		db.mu.Lock()
		defer db.mu.Unlock()
		return db.state.merge(base, work)
	}
	return repos
}

// merge applies the writes a transaction made to its snapshot. Nothing is
// applied when a record it wrote was written by another commit first.
func (s *memoryState) merge(base, work *memoryState) error {
	for id, w := range work.wallets {
		old, existed := base.wallets[id]
		current, exists := s.wallets[id]
		if !existed {
			if exists {
				return ErrDuplicateKey
			}
			for _, other := range s.wallets {
				if other.UserID == w.UserID && other.WalletType == w.WalletType {
					return apperrors.NewDuplicateWalletError(w.UserID, w.WalletType)
				}
			}
			continue
		}
		if old.Version != w.Version && (!exists || current.Version != old.Version) {
			return apperrors.NewConcurrentModificationError("wallet", id)
		}
	}

	for id, txn := range work.transactions {
		old, existed := base.transactions[id]
		current, exists := s.transactions[id]
		if !existed {
			if exists {
				return ErrDuplicateKey
			}
			continue
		}
		if old.Version != txn.Version && (!exists || current.Version != old.Version) {
			return apperrors.NewConcurrentModificationError("transaction", id)
		}
	}

	for walletID, entries := range work.history {
		for _, entry := range entries[len(base.history[walletID]):] {
			for _, existing := range s.history[walletID] {
				if existing.Sequence == entry.Sequence || existing.ID == entry.ID {
					return ErrDuplicateKey
				}
			}
		}
	}

	for key := range work.idempotency {
		if _, existed := base.idempotency[key]; existed {
			continue
		}
		if _, exists := s.idempotency[key]; exists {
			return ErrDuplicateKey
		}
	}

	for id, w := range work.wallets {
		if old, existed := base.wallets[id]; !existed || old.Version != w.Version {
			s.wallets[id] = w
		}
	}
	for id, txn := range work.transactions {
		if old, existed := base.transactions[id]; !existed || old.Version != txn.Version {
			s.transactions[id] = txn
		}
	}
	for walletID, entries := range work.history {
		s.history[walletID] = append(s.history[walletID], entries[len(base.history[walletID]):]...)
	}
	for key, record := range work.idempotency {
		if _, existed := base.idempotency[key]; !existed {
			s.idempotency[key] = record
		}
	}
	s.reports = append(s.reports, work.reports[len(base.reports):]...)
	return nil
}

func pageOf[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type memoryWalletRepository struct {
	view *memoryView
}

func (r *memoryWalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.view.do(func(s *memoryState) error {
		if _, ok := s.wallets[wallet.ID]; ok {
			return ErrDuplicateKey
		}
		for _, existing := range s.wallets {
			if existing.UserID == wallet.UserID && existing.WalletType == wallet.WalletType {
				return apperrors.NewDuplicateWalletError(wallet.UserID, wallet.WalletType)
			}
		}
		now := time.Now()
		if wallet.CreatedAt.IsZero() {
			wallet.CreatedAt = now
		}
		if wallet.UpdatedAt.IsZero() {
			wallet.UpdatedAt = now
		}
		s.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *memoryWalletRepository) GetByID(ctx context.Context, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.view.do(func(s *memoryState) error {
		w, ok := s.wallets[id]
		if !ok {
			return apperrors.NewWalletNotFoundError(id)
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *memoryWalletRepository) GetByUserAndType(ctx context.Context, userID, walletType string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := r.view.do(func(s *memoryState) error {
		for _, w := range s.wallets {
			if w.UserID == userID && w.WalletType == walletType {
				found := w
				wallet = &found
				return nil
			}
		}
		return apperrors.New(apperrors.ErrWalletNotFound, "no "+walletType+" wallet for user "+userID)
	})
	return wallet, err
}

func (r *memoryWalletRepository) ListByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.view.do(func(s *memoryState) error {
		for _, w := range s.wallets {
			if w.UserID == userID {
				wallets = append(wallets, w)
			}
		}
		return nil
	})
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.Before(wallets[j].CreatedAt) })
	return wallets, err
}

func (r *memoryWalletRepository) Update(ctx context.Context, wallet *models.Wallet) error {
	return r.view.do(func(s *memoryState) error {
		current, ok := s.wallets[wallet.ID]
		if !ok || current.Version != wallet.Version {
			return apperrors.NewConcurrentModificationError("wallet", wallet.ID)
		}
		wallet.Version++
		wallet.UpdatedAt = time.Now()
		s.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *memoryWalletRepository) GetAllForReconciliation(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.view.do(func(s *memoryState) error {
		for _, w := range s.wallets {
			wallets = append(wallets, w)
		}
		return nil
	})
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets, err
}

type memoryTransactionRepository struct {
	view *memoryView
}

func (r *memoryTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.view.do(func(s *memoryState) error {
		if _, ok := s.transactions[txn.ID]; ok {
			return ErrDuplicateKey
		}
		now := time.Now()
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = now
		}
		if txn.UpdatedAt.IsZero() {
			txn.UpdatedAt = now
		}
		s.transactions[txn.ID] = *txn
		return nil
	})
}

func (r *memoryTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.view.do(func(s *memoryState) error {
		t, ok := s.transactions[id]
		if !ok {
			return apperrors.NewTransactionNotFoundError(id)
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *memoryTransactionRepository) Update(ctx context.Context, txn *models.Transaction) error {
	return r.view.do(func(s *memoryState) error {
		current, ok := s.transactions[txn.ID]
		if !ok || current.Version != txn.Version {
			return apperrors.NewConcurrentModificationError("transaction", txn.ID)
		}
		if txn.ReferenceNumber != nil {
			for id, other := range s.transactions {
				if id != txn.ID && other.ReferenceNumber != nil && *other.ReferenceNumber == *txn.ReferenceNumber {
					return ErrDuplicateKey
				}
			}
		}
		txn.Version++
		txn.UpdatedAt = time.Now()
		s.transactions[txn.ID] = *txn
		return nil
	})
}

func (r *memoryTransactionRepository) filter(match func(models.Transaction) bool) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.view.do(func(s *memoryState) error {
		for _, t := range s.transactions {
			if match(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (r *memoryTransactionRepository) ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.Transaction, int64, error) {
	transactions, err := r.filter(func(t models.Transaction) bool { return t.WalletID == walletID })
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].CreatedAt.Equal(transactions[j].CreatedAt) {
			return transactions[i].ID > transactions[j].ID
		}
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return pageOf(transactions, offset, limit), int64(len(transactions)), nil
}

func (r *memoryTransactionRepository) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Transaction, error) {
	transactions, err := r.filter(func(t models.Transaction) bool {
		return t.Status == models.TransactionStatusProcessing && t.UpdatedAt.Before(updatedBefore)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].UpdatedAt.Before(transactions[j].UpdatedAt) })
	return pageOf(transactions, 0, limit), nil
}

func (r *memoryTransactionRepository) ListRetryable(ctx context.Context, codes []string, createdAfter time.Time, limit int) ([]models.Transaction, error) {
	allowed := make(map[string]bool, len(codes))
	for _, code := range codes {
		allowed[code] = true
	}
	transactions, err := r.filter(func(t models.Transaction) bool {
		return t.Status == models.TransactionStatusFailed &&
			allowed[t.ErrorCode] &&
			!t.CreatedAt.Before(createdAfter) &&
			t.RetryCount < t.MaxRetries
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].CreatedAt.Before(transactions[j].CreatedAt) })
	return pageOf(transactions, 0, limit), nil
}

func (r *memoryTransactionRepository) Stats(ctx context.Context, filter models.TransactionStatsFilter) ([]models.TransactionStatsRow, error) {
	transactions, err := r.filter(func(t models.Transaction) bool {
		if t.CreatedAt.Before(filter.From) || !t.CreatedAt.Before(filter.To) {
			return false
		}
		if filter.WalletID != "" && t.WalletID != filter.WalletID {
			return false
		}
		return filter.UserID == "" || t.UserID == filter.UserID
	})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		txType   models.TransactionType
		status   models.TransactionStatus
		currency models.Currency
	}
	totals := make(map[bucket]*models.TransactionStatsRow)
	for _, t := range transactions {
		key := bucket{t.Type, t.Status, t.Currency}
		row, ok := totals[key]
		if !ok {
			row = &models.TransactionStatsRow{Type: t.Type, Status: t.Status, Currency: t.Currency}
			totals[key] = row
		}
		row.Count++
		if t.Amount < 0 {
			row.Volume -= t.Amount
		} else {
			row.Volume += t.Amount
		}
	}

	rows := make([]models.TransactionStatsRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		if rows[i].Status != rows[j].Status {
			return rows[i].Status < rows[j].Status
		}
		return rows[i].Currency < rows[j].Currency
	})
	return rows, nil
}

type memoryHistoryRepository struct {
	view *memoryView
}

func (r *memoryHistoryRepository) Append(ctx context.Context, entry *models.BalanceHistoryEntry) error {
	return r.view.do(func(s *memoryState) error {
		for _, existing := range s.history[entry.WalletID] {
			if existing.Sequence == entry.Sequence || existing.ID == entry.ID {
				return ErrDuplicateKey
			}
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		s.history[entry.WalletID] = append(s.history[entry.WalletID], *entry)
		return nil
	})
}

func (r *memoryHistoryRepository) ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.BalanceHistoryEntry, int64, error) {
	entries, err := r.ListAllByWallet(ctx, walletID)
	if err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return pageOf(entries, offset, limit), int64(len(entries)), nil
}

func (r *memoryHistoryRepository) ListAllByWallet(ctx context.Context, walletID string) ([]models.BalanceHistoryEntry, error) {
	var entries []models.BalanceHistoryEntry
	err := r.view.do(func(s *memoryState) error {
		entries = append(entries, s.history[walletID]...)
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
	return entries, err
}

func (r *memoryHistoryRepository) ExistsForTransaction(ctx context.Context, walletID, transactionID string) (bool, error) {
	exists := false
	err := r.view.do(func(s *memoryState) error {
		for _, e := range s.history[walletID] {
			if e.TransactionID == transactionID {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

type memoryIdempotencyRepository struct {
	view *memoryView
}

func (r *memoryIdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record *models.IdempotencyRecord
	err := r.view.do(func(s *memoryState) error {
		if rec, ok := s.idempotency[key]; ok {
			record = &rec
		}
		return nil
	})
	return record, err
}

func (r *memoryIdempotencyRepository) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	return r.view.do(func(s *memoryState) error {
		if _, ok := s.idempotency[record.Key]; ok {
			return ErrDuplicateKey
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
		s.idempotency[record.Key] = *record
		return nil
	})
}

type memoryReconciliationRepository struct {
	view *memoryView
}

func (r *memoryReconciliationRepository) Create(ctx context.Context, report *models.ReconciliationReport) error {
	return r.view.do(func(s *memoryState) error {
		if report.CreatedAt.IsZero() {
			report.CreatedAt = time.Now()
		}
		s.reports = append(s.reports, *report)
		return nil
	})
}

func (r *memoryReconciliationRepository) collect(match func(models.ReconciliationReport) bool) ([]models.ReconciliationReport, error) {
	var reports []models.ReconciliationReport
	err := r.view.do(func(s *memoryState) error {
		for i := len(s.reports) - 1; i >= 0; i-- {
			if match(s.reports[i]) {
				reports = append(reports, s.reports[i])
			}
		}
		return nil
	})
	return reports, err
}

func (r *memoryReconciliationRepository) GetByWalletID(ctx context.Context, walletID string) ([]models.ReconciliationReport, error) {
	return r.collect(func(rep models.ReconciliationReport) bool { return rep.WalletID == walletID })
}

func (r *memoryReconciliationRepository) List(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error) {
	reports, err := r.collect(func(models.ReconciliationReport) bool { return true })
	return pageOf(reports, offset, limit), err
}

func (r *memoryReconciliationRepository) GetMismatches(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error) {
	reports, err := r.collect(func(rep models.ReconciliationReport) bool { return rep.HasAnyIssue() })
	return pageOf(reports, offset, limit), err
}
