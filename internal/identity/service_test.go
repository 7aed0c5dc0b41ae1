package identity

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/requestcontext"
)

func testKey(b byte) domain.PublicKey {
	return domain.FromRawKey(bytes.Repeat([]byte{b}, 32))
}

type IdentityServiceSuite struct {
	suite.Suite
	store   *ledger.Memory
	service *Service
	admin   domain.PublicKey
	ctx     context.Context
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = ledger.NewMemory()
	s.admin = testKey(0x01)

	var err error
	s.service, err = New(s.store, []domain.PublicKey{s.admin})
	s.Require().NoError(err)

	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) as(key domain.PublicKey) context.Context {
	return requestcontext.WithCaller(s.ctx, key)
}

func (s *IdentityServiceSuite) TestNewRejectsBadAllowlists() {
	_, err := New(s.store, nil)
	s.Require().ErrorContains(err, "must not be empty")

	keys := make([]domain.PublicKey, MaxAdmins+1)
	for i := range keys {
		keys[i] = testKey(byte(i + 1))
	}
	_, err = New(s.store, keys)
	s.Require().ErrorContains(err, "limited to")

	_, err = New(s.store, []domain.PublicKey{s.admin, s.admin})
	s.Require().ErrorContains(err, "twice")

	_, err = New(s.store, []domain.PublicKey{""})
	s.Require().ErrorContains(err, "empty key")
}

func (s *IdentityServiceSuite) TestConfirmAdmin() {
	admin, err := s.service.ConfirmAdmin(s.as(s.admin))
	s.Require().NoError(err)
	s.Equal(s.admin, admin.Authority)

	// Second confirmation hits the occupied address.
	_, err = s.service.ConfirmAdmin(s.as(s.admin))
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	// A key outside the allowlist never reaches the ledger.
	_, err = s.service.ConfirmAdmin(s.as(testKey(0x09)))
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *IdentityServiceSuite) TestRegistrarLifecycle() {
	_, err := s.service.ConfirmAdmin(s.as(s.admin))
	s.Require().NoError(err)

	registrarKey := testKey(0x02)
	registrar, code, err := s.service.AddRegistrar(s.as(s.admin), registrarKey, "Amina", "Odhiambo", "REG-77")
	s.Require().NoError(err)
	s.False(registrar.IsActive)
	s.NotEmpty(code)

	// The record stores only the hash of the invitation code.
	s.NotContains(registrar.InviteHash, code)

	_, _, err = s.service.AddRegistrar(s.as(s.admin), registrarKey, "Amina", "Odhiambo", "REG-77")
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	_, err = s.service.ConfirmRegistrar(s.as(registrarKey), "not-the-code")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	confirmed, err := s.service.ConfirmRegistrar(s.as(registrarKey), code)
	s.Require().NoError(err)
	s.True(confirmed.IsActive)
	s.False(confirmed.ConfirmedAt.IsZero())

	_, err = s.service.ConfirmRegistrar(s.as(registrarKey), code)
	s.Equal(dErrors.CodeFailedPrecondition, dErrors.CodeOf(err))
}

func (s *IdentityServiceSuite) TestAddRegistrarRequiresConfirmedAdmin() {
	// The admin is allowlisted but has not confirmed their seat.
	_, _, err := s.service.AddRegistrar(s.as(s.admin), testKey(0x02), "Amina", "Odhiambo", "REG-77")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *IdentityServiceSuite) TestCreateUserClaimsIDNumber() {
	alice := testKey(0x03)
	user, addr, err := s.service.CreateUser(s.as(alice), "Alice", "Wanjiru", "ID-100", "+254700000001")
	s.Require().NoError(err)
	s.Equal(alice, user.Authority)
	s.Equal(UserAddress("ID-100", alice), addr)

	// A different key cannot reuse the id number: the claim record blocks it,
	// and the user record from the failed attempt must not survive.
	mallory := testKey(0x04)
	_, _, err = s.service.CreateUser(s.as(mallory), "Mallory", "Njeri", "ID-100", "+254700000002")
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	_, err = s.store.Get(context.Background(), UserAddress("ID-100", mallory))
	s.Error(err)
}

func (s *IdentityServiceSuite) TestCreateUserValidatesInput() {
	_, _, err := s.service.CreateUser(s.as(testKey(0x03)), "Alice", "", "ID-100", "+254700000001")
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}
