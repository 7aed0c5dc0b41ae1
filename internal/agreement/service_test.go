package agreement

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/internal/title"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

func testKey(b byte) domain.PublicKey {
	return domain.FromRawKey(bytes.Repeat([]byte{b}, 32))
}

type AgreementServiceSuite struct {
	suite.Suite
	store   *ledger.Memory
	titles  *title.Service
	service *Service
	ctx     context.Context

	seller     domain.PublicKey
	sellerAddr ledger.Address
	buyer      domain.PublicKey
	buyerAddr  ledger.Address
	deedAddr   ledger.Address
}

func (s *AgreementServiceSuite) SetupTest() {
	s.store = ledger.NewMemory()
	s.titles = title.New(s.store)
	s.service = New(s.store)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	admin := testKey(0x01)
	registrar := testKey(0x02)
	s.seller = testKey(0x03)
	s.buyer = testKey(0x04)

	ids, err := identity.New(s.store, []domain.PublicKey{admin})
	s.Require().NoError(err)
	_, err = ids.ConfirmAdmin(s.as(admin))
	s.Require().NoError(err)
	_, code, err := ids.AddRegistrar(s.as(admin), registrar, "Amina", "Odhiambo", "REG-77")
	s.Require().NoError(err)
	_, err = ids.ConfirmRegistrar(s.as(registrar), code)
	s.Require().NoError(err)

	_, s.sellerAddr, err = ids.CreateUser(s.as(s.seller), "Alice", "Wanjiru", "ID-100", "+254700000001")
	s.Require().NoError(err)
	_, s.buyerAddr, err = ids.CreateUser(s.as(s.buyer), "Bob", "Mwangi", "ID-200", "+254700000002")
	s.Require().NoError(err)

	_, s.deedAddr, err = s.titles.Assign(s.as(registrar), title.AssignParams{
		OwnerAddr:   s.sellerAddr,
		TitleNumber: "LR-001",
		Location:    "Nakuru East",
		Acreage:     2.5,
	})
	s.Require().NoError(err)
}

func TestAgreementServiceSuite(t *testing.T) {
	suite.Run(t, new(AgreementServiceSuite))
}

func (s *AgreementServiceSuite) as(key domain.PublicKey) context.Context {
	return requestcontext.WithCaller(s.ctx, key)
}

// list + search put the deed in the state Draft expects.
func (s *AgreementServiceSuite) listAndSearch() {
	_, _, err := s.titles.MarkForSale(s.as(s.seller), "LR-001", 500_000)
	s.Require().NoError(err)
	_, _, err = s.titles.Search(s.as(s.buyer), "LR-001", s.buyerAddr)
	s.Require().NoError(err)
}

// A record of another kind occupying the index address must read as a missing
// index, and losing the index creation to it is a conflict, not an internal
// failure.
func (s *AgreementServiceSuite) TestDraftIndexAddressSquatted() {
	s.listAndSearch()

	indexAddr := IndexAddress(s.deedAddr)
	err := s.store.RunInTx(s.ctx, func(tx ledger.Tx) error {
		return tx.Create(s.ctx, ledger.KindTitleLookup, indexAddr, []byte(`{}`))
	})
	s.Require().NoError(err)

	_, _, err = s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	// The draft rolled back with the index create.
	_, err = s.store.Get(context.Background(), AgreementAddress(s.seller, s.buyer, s.deedAddr, 500_000))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AgreementServiceSuite) TestDraft() {
	s.listAndSearch()

	agreement, addr, err := s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Require().NoError(err)
	s.Equal(AgreementAddress(s.seller, s.buyer, s.deedAddr, 500_000), addr)
	s.Equal(s.seller, agreement.Seller.Authority)
	s.Equal(s.buyer, agreement.Buyer.Authority)
	s.Equal(s.deedAddr, agreement.TitleDeed)
	s.False(agreement.Signed())

	// The index now points at the live agreement; a second draft is blocked
	// even at a different price or with a different buyer.
	_, _, err = s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 450_000)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *AgreementServiceSuite) TestDraftPreconditions() {
	// Not listed, never searched.
	_, _, err := s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeFailedPrecondition, dErrors.CodeOf(err))

	_, _, err = s.titles.MarkForSale(s.as(s.seller), "LR-001", 500_000)
	s.Require().NoError(err)

	// Listed but the buyer has not searched.
	_, _, err = s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeFailedPrecondition, dErrors.CodeOf(err))

	// Someone other than the buyer searched last: the stale binding blocks
	// this draft until the buyer searches again.
	_, _, err = s.titles.Search(s.as(s.seller), "LR-001", s.sellerAddr)
	s.Require().NoError(err)
	_, _, err = s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	// Only the deed authority drafts.
	_, _, err = s.titles.Search(s.as(s.buyer), "LR-001", s.buyerAddr)
	s.Require().NoError(err)
	_, _, err = s.service.Draft(s.as(s.buyer), "LR-001", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	_, _, err = s.service.Draft(s.as(s.seller), "LR-404", s.buyerAddr, 500_000)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *AgreementServiceSuite) TestSign() {
	s.listAndSearch()
	_, addr, err := s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Require().NoError(err)

	// Only the named buyer may sign.
	_, err = s.service.Sign(s.as(s.seller), addr)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	signed, err := s.service.Sign(s.as(s.buyer), addr)
	s.Require().NoError(err)
	s.True(signed.Signed())
	s.Equal(s.buyer, *signed.BuyerConfirmation)
	s.NotNil(signed.BuyerConfirmedAt)

	_, err = s.service.Sign(s.as(s.buyer), ledger.NewAddress(ledger.KindAgreement, "missing"))
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *AgreementServiceSuite) TestCancelReopensTheDeed() {
	s.listAndSearch()
	_, addr, err := s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Require().NoError(err)

	// A stranger cannot cancel.
	err = s.service.Cancel(s.as(testKey(0x09)), addr)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	err = s.service.Cancel(s.as(s.buyer), addr)
	s.Require().NoError(err)

	// Agreement and index records are gone.
	_, err = s.store.Get(context.Background(), addr)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(context.Background(), IndexAddress(s.deedAddr))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// A fresh draft passes the index gate again.
	_, _, err = s.service.Draft(s.as(s.seller), "LR-001", s.buyerAddr, 500_000)
	s.Require().NoError(err)
}
