package ledger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landlock/pkg/domain"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

type MemoryLedgerSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func (s *MemoryLedgerSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(MemoryLedgerSuite))
}

func (s *MemoryLedgerSuite) TestFirstWriterWins() {
	addr := NewAddress("registrar", "key-a")

	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.Create(s.ctx, KindRegistrar, addr, []byte(`{"a":1}`))
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.Create(s.ctx, KindRegistrar, addr, []byte(`{"a":2}`))
	})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)

	rec, err := s.store.Get(s.ctx, addr)
	s.Require().NoError(err)
	s.JSONEq(`{"a":1}`, string(rec.Data))
}

func (s *MemoryLedgerSuite) TestTxAtomicity() {
	first := NewAddress("title_deed", "T-001")
	second := NewAddress("title_deed", "T-002")

	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		s.Require().NoError(tx.Create(s.ctx, KindTitleDeed, first, []byte(`{}`)))
		s.Require().NoError(tx.Create(s.ctx, KindTitleDeed, second, []byte(`{}`)))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	// Neither write survives a failed transaction.
	_, err = s.store.Get(s.ctx, first)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, second)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryLedgerSuite) TestDepositAndRelease() {
	buyer := domain.PublicKey("buyer")
	seller := domain.PublicKey("seller")
	deposit := NewAddress("deposit", "escrow-1")

	s.Require().NoError(s.store.Credit(s.ctx, buyer, 1500))

	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.Create(s.ctx, KindDeposit, deposit, []byte(`{}`)); err != nil {
			return err
		}
		return tx.Deposit(s.ctx, buyer, deposit, 1000)
	})
	s.Require().NoError(err)

	balance, err := s.store.Balance(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(uint64(500), balance)

	rec, err := s.store.Get(s.ctx, deposit)
	s.Require().NoError(err)
	s.Equal(uint64(1000), rec.Balance)

	err = s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.Release(s.ctx, deposit, seller, 1000)
	})
	s.Require().NoError(err)

	balance, err = s.store.Balance(s.ctx, seller)
	s.Require().NoError(err)
	s.Equal(uint64(1000), balance)
}

func (s *MemoryLedgerSuite) TestDepositInsufficientFunds() {
	buyer := domain.PublicKey("buyer")
	deposit := NewAddress("deposit", "escrow-1")

	s.Require().NoError(s.store.Credit(s.ctx, buyer, 10))

	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.Create(s.ctx, KindDeposit, deposit, []byte(`{}`)); err != nil {
			return err
		}
		return tx.Deposit(s.ctx, buyer, deposit, 1000)
	})
	s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)

	// Failed transfer rolls back record creation too.
	_, err = s.store.Get(s.ctx, deposit)
	s.ErrorIs(err, sentinel.ErrNotFound)

	balance, err := s.store.Balance(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(uint64(10), balance)
}

func (s *MemoryLedgerSuite) TestOverflowGuard() {
	rich := domain.PublicKey("rich")
	s.Require().NoError(s.store.Credit(s.ctx, rich, math.MaxUint64))
	s.ErrorIs(s.store.Credit(s.ctx, rich, 1), sentinel.ErrOverflow)
}

func (s *MemoryLedgerSuite) TestReclaimReturnsBalance() {
	buyer := domain.PublicKey("buyer")
	deposit := NewAddress("deposit", "escrow-1")

	s.Require().NoError(s.store.Credit(s.ctx, buyer, 1000))
	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.Create(s.ctx, KindDeposit, deposit, []byte(`{}`)); err != nil {
			return err
		}
		return tx.Deposit(s.ctx, buyer, deposit, 1000)
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.Reclaim(s.ctx, deposit, buyer)
	})
	s.Require().NoError(err)

	balance, err := s.store.Balance(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(uint64(1000), balance)

	_, err = s.store.Get(s.ctx, deposit)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryLedgerSuite) TestPutStampsUpdatedAt() {
	addr := NewAddress("title_deed", "T-001")
	s.Require().NoError(s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.Create(s.ctx, KindTitleDeed, addr, []byte(`{"v":1}`))
	}))

	later := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(s.store.RunInTx(later, func(tx Tx) error {
		return tx.Put(later, addr, []byte(`{"v":2}`))
	}))

	rec, err := s.store.Get(s.ctx, addr)
	s.Require().NoError(err)
	s.True(rec.UpdatedAt.After(rec.CreatedAt))
	s.JSONEq(`{"v":2}`, string(rec.Data))
}
