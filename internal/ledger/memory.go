package ledger

import (
	"context"
	"math"
	"sync"

	"landlock/pkg/domain"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

// Memory is the in-memory substrate. It favors clarity over performance:
// a transaction copies the full state, mutates the copy, and swaps it in on
// success, which makes atomicity and isolation trivially correct. It is the
// default backend for development and the fake for unit tests.
type Memory struct {
	mu       sync.Mutex
	records  map[Address]Record
	accounts map[domain.PublicKey]uint64
}

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[Address]Record),
		accounts: make(map[domain.PublicKey]uint64),
	}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		records:  make(map[Address]Record, len(m.records)),
		accounts: make(map[domain.PublicKey]uint64, len(m.accounts)),
	}
	for addr, rec := range m.records {
		tx.records[addr] = cloneRecord(rec)
	}
	for owner, bal := range m.accounts {
		tx.accounts[owner] = bal
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.records = tx.records
	m.accounts = tx.accounts
	return nil
}

func (m *Memory) Get(_ context.Context, addr Address) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (m *Memory) Balance(_ context.Context, owner domain.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[owner], nil
}

func (m *Memory) Credit(_ context.Context, owner domain.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := addChecked(m.accounts[owner], amount)
	if err != nil {
		return err
	}
	m.accounts[owner] = next
	return nil
}

type memoryTx struct {
	records  map[Address]Record
	accounts map[domain.PublicKey]uint64
}

func (t *memoryTx) Create(ctx context.Context, kind string, addr Address, data []byte) error {
	if _, ok := t.records[addr]; ok {
		return sentinel.ErrAlreadyExists
	}
	now := requestcontext.Now(ctx)
	t.records[addr] = Record{
		Address:   addr,
		Kind:      kind,
		Data:      append([]byte(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (t *memoryTx) Get(_ context.Context, addr Address) (*Record, error) {
	rec, ok := t.records[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (t *memoryTx) Put(ctx context.Context, addr Address, data []byte) error {
	rec, ok := t.records[addr]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Data = append([]byte(nil), data...)
	rec.UpdatedAt = requestcontext.Now(ctx)
	t.records[addr] = rec
	return nil
}

func (t *memoryTx) Reclaim(_ context.Context, addr Address, recipient domain.PublicKey) error {
	rec, ok := t.records[addr]
	if !ok {
		return sentinel.ErrNotFound
	}
	next, err := addChecked(t.accounts[recipient], rec.Balance)
	if err != nil {
		return err
	}
	t.accounts[recipient] = next
	delete(t.records, addr)
	return nil
}

func (t *memoryTx) Deposit(ctx context.Context, from domain.PublicKey, to Address, amount uint64) error {
	rec, ok := t.records[to]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.accounts[from] < amount {
		return sentinel.ErrInsufficientFunds
	}
	next, err := addChecked(rec.Balance, amount)
	if err != nil {
		return err
	}
	t.accounts[from] -= amount
	rec.Balance = next
	rec.UpdatedAt = requestcontext.Now(ctx)
	t.records[to] = rec
	return nil
}

func (t *memoryTx) Release(ctx context.Context, from Address, to domain.PublicKey, amount uint64) error {
	rec, ok := t.records[from]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Balance < amount {
		return sentinel.ErrInsufficientFunds
	}
	next, err := addChecked(t.accounts[to], amount)
	if err != nil {
		return err
	}
	rec.Balance -= amount
	rec.UpdatedAt = requestcontext.Now(ctx)
	t.records[from] = rec
	t.accounts[to] = next
	return nil
}

func cloneRecord(rec Record) Record {
	rec.Data = append([]byte(nil), rec.Data...)
	return rec
}

func addChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, sentinel.ErrOverflow
	}
	return a + b, nil
}
