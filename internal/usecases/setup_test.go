package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/database"
	"github.com/estatex/wallet-ledger/internal/events"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testStart = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.TransactionStatusChanged
}

func (r *recordingEmitter) Emit(event events.TransactionStatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// statuses returns the status sequence announced for one transaction
func (r *recordingEmitter) statuses(transactionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, event := range r.events {
		if event.TransactionID == transactionID {
			out = append(out, event.Status)
		}
	}
	return out
}

// commitFaults fails a chosen memory-store commit the way a lost database
// connection would, or runs another writer just before it.
type commitFaults struct {
	mu           sync.Mutex
	count        int
	failAt       int
	interleaveAt int
	interleave   func()
}

func (f *commitFaults) hook() error {
	f.mu.Lock()
	f.count++
	fail := f.count == f.failAt
	var interleave func()
	if f.count == f.interleaveAt {
		interleave, f.interleave = f.interleave, nil
	}
	f.mu.Unlock()

	if interleave != nil {
		interleave()
	}
	if fail {
		return errors.New("storage unavailable")
	}
	return nil
}

// failNth arms the n-th commit from now to fail
func (f *commitFaults) failNth(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = f.count + n
}

// interleaveNth runs fn once the n-th commit from now has done its work
// and before that work is published
func (f *commitFaults) interleaveNth(n int, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interleaveAt = f.count + n
	f.interleave = fn
}

// gormFaults injects storage faults into a gorm database through callbacks
type gormFaults struct {
	mu          sync.Mutex
	failApply   bool
	staleWallet string
}

func installGormFaults(t *testing.T, db *gorm.DB) *gormFaults {
	t.Helper()
	f := &gormFaults{}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("ledger_test:fail_apply", f.beforeCreate))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("ledger_test:stale_wallet", f.beforeUpdate))
	return f
}

func (f *gormFaults) beforeCreate(tx *gorm.DB) {
	if tx.Statement.Table != "balance_history" {
		return
	}
	f.mu.Lock()
	armed := f.failApply
	f.failApply = false
	f.mu.Unlock()

	if armed {
		_ = tx.AddError(errors.New("storage unavailable"))
	}
}

// beforeUpdate moves the armed wallet's version on, as a competing
// instance committing between the reload and this write would.
func (f *gormFaults) beforeUpdate(tx *gorm.DB) {
	if tx.Statement.Table != "wallets" {
		return
	}
	f.mu.Lock()
	walletID := f.staleWallet
	f.staleWallet = ""
	f.mu.Unlock()

	if walletID == "" {
		return
	}
	err := tx.Session(&gorm.Session{NewDB: true}).
		Exec("UPDATE wallets SET version = version + 1 WHERE id = ?", walletID).Error
	if err != nil {
		_ = tx.AddError(err)
	}
}

type testEnv struct {
	repos  *repositories.Repositories
	uc     *UseCases
	clock  *testClock
	events *recordingEmitter
	faults *commitFaults
	gorm   *gormFaults
}

type envFactory func(t *testing.T, ledger config.LedgerConfig) *testEnv

// forEachBackend runs the same test against the in-memory store and a
// migrated SQLite database
func forEachBackend(t *testing.T, run func(t *testing.T, newEnv envFactory)) {
	t.Run("memory", func(t *testing.T) { run(t, newTestEnv) })
	t.Run("sqlite", func(t *testing.T) { run(t, newSQLiteTestEnv) })
}

func newTestEnv(t *testing.T, ledger config.LedgerConfig) *testEnv {
	t.Helper()
	faults := &commitFaults{}
	env := newEnvWith(repositories.NewMemoryRepositories(repositories.WithCommitHook(faults.hook)), ledger)
	env.faults = faults
	return env
}

func newSQLiteTestEnv(t *testing.T, ledger config.LedgerConfig) *testEnv {
	t.Helper()
	db, err := database.InitWithConfig(config.LoadConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	faults := installGormFaults(t, db)
	env := newEnvWith(repositories.NewRepositories(db), ledger)
	env.gorm = faults
	return env
}

func newEnvWith(repos *repositories.Repositories, ledger config.LedgerConfig) *testEnv {
	clock := &testClock{now: testStart}
	emitter := &recordingEmitter{}

	if ledger.DefaultCurrency == "" {
		ledger.DefaultCurrency = "IRR"
	}

	uc := NewUseCases(repos, Options{
		Ledger: ledger,
		Events: emitter,
		Clock:  clock.Now,
	})

	return &testEnv{repos: repos, uc: uc, clock: clock, events: emitter}
}

// failNextApply loses the commit that applies the next posting or retry.
// On the memory store that is the second commit from now: the write-ahead
// or retry claim comes first.
func (e *testEnv) failNextApply() {
	if e.gorm != nil {
		e.gorm.mu.Lock()
		defer e.gorm.mu.Unlock()
		e.gorm.failApply = true
		return
	}
	e.faults.failNth(2)
}

// staleNextWalletWrite makes the next gorm write to walletID find a newer
// version than the one it read
func (e *testEnv) staleNextWalletWrite(walletID string) {
	e.gorm.mu.Lock()
	defer e.gorm.mu.Unlock()
	e.gorm.staleWallet = walletID
}

func (e *testEnv) createWallet(t *testing.T, userID string) *models.Wallet {
	t.Helper()
	wallet, err := e.uc.Wallet.CreateWallet(context.Background(), CreateWalletCommand{UserID: userID})
	require.NoError(t, err)
	return wallet
}

func (e *testEnv) fund(t *testing.T, walletID string, amount int64) {
	t.Helper()
	txn, err := e.uc.Ledger.Deposit(context.Background(), DepositCommand{WalletID: walletID, Amount: amount, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusCompleted, txn.Status)
}

func (e *testEnv) balance(t *testing.T, walletID string) int64 {
	t.Helper()
	wallet, err := e.repos.Wallet.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	return wallet.Balance
}

func (e *testEnv) history(t *testing.T, walletID string) []models.BalanceHistoryEntry {
	t.Helper()
	entries, err := e.repos.History.ListAllByWallet(context.Background(), walletID)
	require.NoError(t, err)
	return entries
}

// assertConserved checks the stored balance equals the sum of its history
func (e *testEnv) assertConserved(t *testing.T, walletID string) {
	t.Helper()
	wallet, err := e.repos.Wallet.GetByID(context.Background(), walletID)
	require.NoError(t, err)

	var sum int64
	entries := e.history(t, walletID)
	for i, entry := range entries {
		assert.Equal(t, int64(i+1), entry.Sequence)
		assert.True(t, entry.IsConsistent())
		sum += entry.Amount
	}
	assert.Equal(t, wallet.Balance, sum, "balance must equal the sum of history")
	assert.Equal(t, int64(len(entries)), wallet.Usage.TotalTransactions)
}
