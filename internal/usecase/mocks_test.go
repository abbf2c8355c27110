package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/stretchr/testify/mock"
)

// memStore guarda o estado dos repositórios em memória. A fakeUow tira um
// snapshot no início da transação e restaura se fn falhar.
type memStore struct {
	mu          sync.Mutex
	invoices    map[string]*domain.Invoice
	wallets     map[string]*domain.WalletAccount      // por user id
	walletTxs   map[string]*domain.WalletTransaction  // por referência
	withdrawals map[string]*domain.WithdrawalRequest
	shares      map[string]domain.SellerRevenue // invoice:item
	seedRevenue map[string]int64                // receita já existente por vendedor
}

func newMemStore() *memStore {
	return &memStore{
		invoices:    map[string]*domain.Invoice{},
		wallets:     map[string]*domain.WalletAccount{},
		walletTxs:   map[string]*domain.WalletTransaction{},
		withdrawals: map[string]*domain.WithdrawalRequest{},
		shares:      map[string]domain.SellerRevenue{},
		seedRevenue: map[string]int64{},
	}
}

type snapshot struct {
	invoices    map[string]*domain.Invoice
	wallets     map[string]*domain.WalletAccount
	walletTxs   map[string]*domain.WalletTransaction
	withdrawals map[string]*domain.WithdrawalRequest
	shares      map[string]domain.SellerRevenue
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		invoices:    make(map[string]*domain.Invoice, len(s.invoices)),
		wallets:     make(map[string]*domain.WalletAccount, len(s.wallets)),
		walletTxs:   make(map[string]*domain.WalletTransaction, len(s.walletTxs)),
		withdrawals: make(map[string]*domain.WithdrawalRequest, len(s.withdrawals)),
		shares:      make(map[string]domain.SellerRevenue, len(s.shares)),
	}
	for k, v := range s.invoices {
		snap.invoices[k] = cloneInvoice(v)
	}
	for k, v := range s.wallets {
		w := *v
		snap.wallets[k] = &w
	}
	for k, v := range s.walletTxs {
		snap.walletTxs[k] = v
	}
	for k, v := range s.withdrawals {
		r := *v
		snap.withdrawals[k] = &r
	}
	for k, v := range s.shares {
		snap.shares[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = snap.invoices
	s.wallets = snap.wallets
	s.walletTxs = snap.walletTxs
	s.withdrawals = snap.withdrawals
	s.shares = snap.shares
}

func cloneInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	c.Items = append([]domain.InvoiceItem(nil), inv.Items...)
	c.Transactions = make([]*domain.Transaction, 0, len(inv.Transactions))
	for _, tx := range inv.Transactions {
		t := *tx
		c.Transactions = append(c.Transactions, &t)
	}
	return &c
}

// fakeUow serializa as transações (como o FOR UPDATE faria) e participa da
// transação externa quando o contexto já carrega uma.
type fakeUow struct {
	store *memStore
	txMu  sync.Mutex
	runs  int
}

func (u *fakeUow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if gateway.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	u.txMu.Lock()
	defer u.txMu.Unlock()
	u.runs++

	snap := u.store.snapshot()
	if err := fn(context.WithValue(ctx, gateway.TransactionKey, "memtx")); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// --- Invoices

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[inv.ID]; ok {
		return domain.ErrConflict
	}
	inv.Version = 1
	r.s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *memInvoiceRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *memInvoiceRepo) FindByReference(_ context.Context, ref string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, inv := range r.s.invoices {
		if _, err := inv.FindTransaction(ref); err == nil {
			return id, nil
		}
	}
	return "", domain.ErrTransactionNotFound
}

func (r *memInvoiceRepo) Save(_ context.Context, inv *domain.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	if stored.Version != inv.Version {
		return domain.ErrConcurrentUpdate
	}
	inv.Version++
	r.s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *memInvoiceRepo) WithTx(gateway.TransactionObject) gateway.InvoiceRepository { return r }

// --- Wallets

type memWalletRepo struct{ s *memStore }

func (r *memWalletRepo) GetByUserID(_ context.Context, userID string) (*domain.WalletAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	c := *w
	return &c, nil
}

func (r *memWalletRepo) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memWalletRepo) CreateIfMissing(_ context.Context, w *domain.WalletAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.UserID]; ok {
		return nil
	}
	c := *w
	c.Version = 1
	r.s.wallets[w.UserID] = &c
	return nil
}

func (r *memWalletRepo) UpdateBalance(_ context.Context, w *domain.WalletAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.wallets[w.UserID]
	if !ok || stored.Version != w.Version {
		return domain.ErrConcurrentUpdate
	}
	w.Version++
	c := *w
	r.s.wallets[w.UserID] = &c
	return nil
}

func (r *memWalletRepo) AppendTransaction(_ context.Context, tx *domain.WalletTransaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.walletTxs[tx.Reference]; ok {
		return false, nil
	}
	c := *tx
	r.s.walletTxs[tx.Reference] = &c
	return true, nil
}

func (r *memWalletRepo) GetTransactionByReference(_ context.Context, ref string) (*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.walletTxs[ref]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	c := *tx
	return &c, nil
}

func (r *memWalletRepo) ListTransactions(_ context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.WalletTransaction
	for _, tx := range r.s.walletTxs {
		if tx.WalletID == walletID {
			c := *tx
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memWalletRepo) WithTx(gateway.TransactionObject) gateway.WalletRepository { return r }

// --- Withdrawals

type memWithdrawalRepo struct{ s *memStore }

func (r *memWithdrawalRepo) Create(_ context.Context, req *domain.WithdrawalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *req
	r.s.withdrawals[req.ID] = &c
	return nil
}

func (r *memWithdrawalRepo) GetByID(_ context.Context, id string) (*domain.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.withdrawals[id]
	if !ok {
		return nil, domain.ErrWithdrawalNotFound
	}
	c := *req
	return &c, nil
}

func (r *memWithdrawalRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *memWithdrawalRepo) Save(_ context.Context, req *domain.WithdrawalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *req
	r.s.withdrawals[req.ID] = &c
	return nil
}

func (r *memWithdrawalRepo) WithTx(gateway.TransactionObject) gateway.WithdrawalRepository { return r }

// --- Receita de vendedores

type memRevenueRepo struct {
	s      *memStore
	locked []string
}

func (r *memRevenueRepo) GetSellerRevenue(_ context.Context, sellerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := r.s.seedRevenue[sellerID]
	for _, sh := range r.s.shares {
		if sh.SellerID == sellerID {
			total += sh.Amount
		}
	}
	return total, nil
}

func (r *memRevenueRepo) GetSellerWithdrawals(_ context.Context, sellerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, w := range r.s.withdrawals {
		if w.Type == domain.WithdrawalSellerRevenue && w.SellerID == sellerID && w.Status == domain.WithdrawalProcessed {
			total += w.Amount
		}
	}
	return total, nil
}

func (r *memRevenueRepo) LockSeller(_ context.Context, sellerID string) error {
	r.locked = append(r.locked, sellerID)
	return nil
}

func (r *memRevenueRepo) Accrue(_ context.Context, shares []domain.SellerRevenue) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inserted := 0
	for _, sh := range shares {
		key := sh.InvoiceID + ":" + sh.ItemID
		if _, ok := r.s.shares[key]; ok {
			continue
		}
		r.s.shares[key] = sh
		inserted++
	}
	return inserted, nil
}

func (r *memRevenueRepo) WithTx(gateway.TransactionObject) gateway.RevenueRepository { return r }

// --- Estoque

type memStock struct {
	mu      sync.Mutex
	applied map[string]domain.StockReduction
	missing map[string]bool // produtos sem cadastro de estoque
}

func newMemStock() *memStock {
	return &memStock{applied: map[string]domain.StockReduction{}, missing: map[string]bool{}}
}

func (s *memStock) ReduceStock(_ context.Context, red domain.StockReduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applied[red.Key]; ok {
		return nil
	}
	if s.missing[red.ProductID] {
		return domain.ErrProductNotFound
	}
	s.applied[red.Key] = red
	return nil
}

// --- Auditoria

type memAudit struct {
	mu      sync.Mutex
	entries []gateway.SettlementAudit
}

func (a *memAudit) Save(_ context.Context, entry gateway.SettlementAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) ListByInvoice(_ context.Context, invoiceID string, limit int64) ([]gateway.SettlementAudit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []gateway.SettlementAudit
	for _, e := range a.entries {
		if e.InvoiceID == invoiceID && int64(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Mocks (testify)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, ref string) (*domain.VerificationResult, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}

// recordingDispatcher guarda os lotes despachados.
type recordingDispatcher struct {
	mu      sync.Mutex
	batches [][]domain.Effect
	err     error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, effects []domain.Effect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, effects)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.batches)
}
