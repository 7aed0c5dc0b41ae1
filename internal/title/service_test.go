package title

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/requestcontext"
)

func testKey(b byte) domain.PublicKey {
	return domain.FromRawKey(bytes.Repeat([]byte{b}, 32))
}

type TitleServiceSuite struct {
	suite.Suite
	store   *ledger.Memory
	service *Service
	ctx     context.Context

	registrar domain.PublicKey
	owner     domain.PublicKey
	ownerAddr ledger.Address
	buyer     domain.PublicKey
	buyerAddr ledger.Address
}

func (s *TitleServiceSuite) SetupTest() {
	s.store = ledger.NewMemory()
	s.service = New(s.store)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	admin := testKey(0x01)
	s.registrar = testKey(0x02)
	s.owner = testKey(0x03)
	s.buyer = testKey(0x04)

	ids, err := identity.New(s.store, []domain.PublicKey{admin})
	s.Require().NoError(err)

	_, err = ids.ConfirmAdmin(s.as(admin))
	s.Require().NoError(err)
	_, code, err := ids.AddRegistrar(s.as(admin), s.registrar, "Amina", "Odhiambo", "REG-77")
	s.Require().NoError(err)
	_, err = ids.ConfirmRegistrar(s.as(s.registrar), code)
	s.Require().NoError(err)

	_, s.ownerAddr, err = ids.CreateUser(s.as(s.owner), "Alice", "Wanjiru", "ID-100", "+254700000001")
	s.Require().NoError(err)
	_, s.buyerAddr, err = ids.CreateUser(s.as(s.buyer), "Bob", "Mwangi", "ID-200", "+254700000002")
	s.Require().NoError(err)
}

func TestTitleServiceSuite(t *testing.T) {
	suite.Run(t, new(TitleServiceSuite))
}

func (s *TitleServiceSuite) as(key domain.PublicKey) context.Context {
	return requestcontext.WithCaller(s.ctx, key)
}

func (s *TitleServiceSuite) assign(titleNumber string) (*Deed, ledger.Address) {
	deed, addr, err := s.service.Assign(s.as(s.registrar), AssignParams{
		OwnerAddr:              s.ownerAddr,
		TitleNumber:            titleNumber,
		Location:               "Nakuru East",
		Acreage:                2.5,
		DistrictRegistry:       "Nakuru",
		RegistryMapsheetNumber: 134,
	})
	s.Require().NoError(err)
	return deed, addr
}

func (s *TitleServiceSuite) TestAssignRegistrarOnly() {
	_, _, err := s.service.Assign(s.as(s.owner), AssignParams{
		OwnerAddr:   s.ownerAddr,
		TitleNumber: "LR-001",
		Acreage:     2.5,
	})
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *TitleServiceSuite) TestAssignNormalizesAndSnapshots() {
	deed, addr := s.assign(" lr-001 ")
	s.Equal("LR-001", deed.TitleNumber)
	s.Equal(DeedAddress("LR-001"), addr)
	s.Equal(s.owner, deed.Authority)
	s.Equal(s.owner, deed.Owner.Authority)
	s.Equal("Alice", deed.Owner.FirstName)
	s.False(deed.IsForSale)
}

func (s *TitleServiceSuite) TestAssignOverwritesExistingDeed() {
	s.assign("LR-001")

	// Re-registration under the same number replaces the deed in place.
	deed, _, err := s.service.Assign(s.as(s.registrar), AssignParams{
		OwnerAddr:   s.buyerAddr,
		TitleNumber: "LR-001",
		Location:    "Nakuru West",
		Acreage:     3.0,
	})
	s.Require().NoError(err)
	s.Equal(s.buyer, deed.Owner.Authority)
	s.Equal("Nakuru West", deed.Location)
}

func (s *TitleServiceSuite) TestAssignUnknownOwner() {
	_, _, err := s.service.Assign(s.as(s.registrar), AssignParams{
		OwnerAddr:   ledger.NewAddress(ledger.KindUser, "ID-999", "nobody"),
		TitleNumber: "LR-001",
		Acreage:     2.5,
	})
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *TitleServiceSuite) TestMarkForSale() {
	deed, deedAddr := s.assign("LR-001")

	listing, _, err := s.service.MarkForSale(s.as(s.owner), "LR-001", 500_000)
	s.Require().NoError(err)
	s.Equal(deedAddr, listing.TitleDeed)
	s.Equal(deed.Owner, listing.Seller)
	s.Equal(uint64(500_000), listing.SalePrice)

	updated, _, err := s.service.GetByNumber(context.Background(), "LR-001")
	s.Require().NoError(err)
	s.True(updated.IsForSale)

	// One listing per (seller, deed).
	_, _, err = s.service.MarkForSale(s.as(s.owner), "LR-001", 600_000)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *TitleServiceSuite) TestMarkForSaleOwnerOnly() {
	s.assign("LR-001")

	_, _, err := s.service.MarkForSale(s.as(s.buyer), "LR-001", 500_000)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	_, _, err = s.service.MarkForSale(s.as(s.owner), "LR-404", 500_000)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *TitleServiceSuite) TestSearchLastWriterWins() {
	_, deedAddr := s.assign("LR-001")

	deed, lookup, err := s.service.Search(s.as(s.buyer), "LR-001", s.buyerAddr)
	s.Require().NoError(err)
	s.Equal("LR-001", deed.TitleNumber)
	s.Equal(deedAddr, lookup.TitleDeed)
	s.Equal(s.buyer, lookup.SearchedBy)

	// A later search by another user overwrites the searcher binding.
	_, lookup, err = s.service.Search(s.as(s.owner), "LR-001", s.ownerAddr)
	s.Require().NoError(err)
	s.Equal(s.owner, lookup.SearchedBy)
}

func (s *TitleServiceSuite) TestSearchRequiresOwnUserRecord() {
	s.assign("LR-001")

	// Presenting someone else's user record is an authorization failure.
	_, _, err := s.service.Search(s.as(s.buyer), "LR-001", s.ownerAddr)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	_, _, err = s.service.Search(s.as(s.buyer), "LR-404", s.buyerAddr)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}
